package vectorindex

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/mikey/llm-smish-guard/internal/core"
	"go.uber.org/zap"
)

// referenceFile is the on-disk format of a reference set: parallel arrays
// zipped by index.
type referenceFile struct {
	Class              string      `json:"class"`
	ModelName          string      `json:"model_name"`
	EmbeddingDimension int         `json:"embedding_dimension"`
	TotalEmbeddings    int         `json:"total_embeddings"`
	Embeddings         [][]float32 `json:"embeddings"`
	Texts              []string    `json:"texts"`
	IDs                []string    `json:"ids"`
}

// Index holds the two fixed labeled reference sets and answers top-K
// cosine similarity queries over them. Sets are loaded once and never
// mutated afterwards, so searches need no locking.
type Index struct {
	logger    *zap.Logger
	dimension int
	benign    []core.ReferenceExample
	smishing  []core.ReferenceExample
}

// NewIndex loads both reference sets. A missing or malformed file degrades
// that class to an empty set instead of failing the load.
func NewIndex(benignPath, smishingPath string, dimension int, logger *zap.Logger) *Index {
	idx := &Index{
		logger:    logger,
		dimension: dimension,
	}

	idx.benign = idx.loadReferenceSet(benignPath, core.LabelBenign)
	idx.smishing = idx.loadReferenceSet(smishingPath, core.LabelSmishing)

	logger.Info("Vector index initialized",
		zap.Int("benign_examples", len(idx.benign)),
		zap.Int("smishing_examples", len(idx.smishing)),
		zap.Int("dimension", idx.dimension))

	return idx
}

// Dimension returns the embedding dimension the index was configured with
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Search returns up to k examples from the label's reference set, ranked by
// descending cosine similarity against the query. Ties keep insertion order.
// It never fails: an unknown label, empty set or mismatched query dimension
// all degrade to fewer (or zero) results.
func (idx *Index) Search(query []float32, k int, label core.Label) []core.ReferenceExample {
	set := idx.referenceSet(label)
	if len(set) == 0 || k <= 0 {
		return nil
	}

	matches := make([]core.SimilarityMatch, len(set))
	for i, example := range set {
		matches[i] = core.SimilarityMatch{
			Example:    example,
			Similarity: idx.cosineSimilarity(query, example.Embedding),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if k > len(matches) {
		k = len(matches)
	}
	results := make([]core.ReferenceExample, k)
	for i := 0; i < k; i++ {
		results[i] = matches[i].Example
	}
	return results
}

func (idx *Index) referenceSet(label core.Label) []core.ReferenceExample {
	switch label {
	case core.LabelBenign:
		return idx.benign
	case core.LabelSmishing:
		return idx.smishing
	default:
		idx.logger.Warn("Unknown reference label", zap.String("label", string(label)))
		return nil
	}
}

// cosineSimilarity accumulates in float64 even though vectors are stored as
// float32, to avoid cancellation error on high-dimensional near-duplicate
// vectors. A dimension mismatch yields 0, never an error.
func (idx *Index) cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		idx.logger.Warn("Vector dimensions don't match",
			zap.Int("query_dimension", len(a)),
			zap.Int("reference_dimension", len(b)))
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

// loadReferenceSet reads a reference file and zips its parallel arrays into
// examples. A missing id or text at an index is substituted with a generated
// placeholder rather than failing the whole load.
func (idx *Index) loadReferenceSet(path string, label core.Label) []core.ReferenceExample {
	data, err := os.ReadFile(path)
	if err != nil {
		idx.logger.Error("Failed to read reference set, using empty set",
			zap.String("path", path),
			zap.String("label", string(label)),
			zap.Error(err))
		return nil
	}

	var file referenceFile
	if err := json.Unmarshal(data, &file); err != nil {
		idx.logger.Error("Failed to parse reference set, using empty set",
			zap.String("path", path),
			zap.String("label", string(label)),
			zap.Error(err))
		return nil
	}

	if file.EmbeddingDimension != 0 && file.EmbeddingDimension != idx.dimension {
		idx.logger.Warn("Reference set declares a different embedding dimension",
			zap.String("path", path),
			zap.Int("declared", file.EmbeddingDimension),
			zap.Int("configured", idx.dimension))
	}

	examples := make([]core.ReferenceExample, 0, len(file.Embeddings))
	for i, embedding := range file.Embeddings {
		id := fmt.Sprintf("id_%d", i)
		if i < len(file.IDs) && file.IDs[i] != "" {
			id = file.IDs[i]
		}
		text := ""
		if i < len(file.Texts) {
			text = file.Texts[i]
		}
		examples = append(examples, core.ReferenceExample{
			ID:        id,
			Text:      text,
			Label:     label,
			Embedding: embedding,
		})
	}

	idx.logger.Debug("Loaded reference set",
		zap.String("path", path),
		zap.String("label", string(label)),
		zap.String("model_name", file.ModelName),
		zap.Int("examples", len(examples)))

	return examples
}
