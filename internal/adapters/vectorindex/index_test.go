package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeReferenceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadReferenceSet(t *testing.T) {
	dir := t.TempDir()
	benign := writeReferenceFile(t, dir, "benign.json", `{
		"class": "benign",
		"model_name": "all-MiniLM-L6-v2",
		"embedding_dimension": 3,
		"total_embeddings": 2,
		"embeddings": [[1, 0, 0], [0, 1, 0]],
		"texts": ["hello there", "see you at 5"],
		"ids": ["b1", "b2"]
	}`)

	idx := NewIndex(benign, filepath.Join(dir, "does-not-exist.json"), 3, zap.NewNop())

	assert.Len(t, idx.benign, 2)
	assert.Equal(t, "b1", idx.benign[0].ID)
	assert.Equal(t, "hello there", idx.benign[0].Text)
	assert.Equal(t, core.LabelBenign, idx.benign[0].Label)

	// The missing smishing file degrades to an empty set, not a failure
	assert.Empty(t, idx.smishing)
}

func TestLoadReferenceSetFillsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	benign := writeReferenceFile(t, dir, "benign.json", `{
		"class": "benign",
		"embedding_dimension": 2,
		"embeddings": [[1, 0], [0, 1], [1, 1]],
		"texts": ["only the first"],
		"ids": ["b1"]
	}`)

	idx := NewIndex(benign, filepath.Join(dir, "missing.json"), 2, zap.NewNop())

	require.Len(t, idx.benign, 3)
	assert.Equal(t, "b1", idx.benign[0].ID)
	assert.Equal(t, "id_1", idx.benign[1].ID)
	assert.Equal(t, "id_2", idx.benign[2].ID)
	assert.Equal(t, "", idx.benign[2].Text)
}

func TestLoadReferenceSetMalformed(t *testing.T) {
	dir := t.TempDir()
	benign := writeReferenceFile(t, dir, "benign.json", `{not json at all`)

	idx := NewIndex(benign, filepath.Join(dir, "missing.json"), 3, zap.NewNop())

	assert.Empty(t, idx.benign)
	assert.Empty(t, idx.smishing)
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	benign := writeReferenceFile(t, dir, "benign.json", `{
		"class": "benign",
		"embedding_dimension": 3,
		"embeddings": [[1, 0, 0], [0, 1, 0], [0.9, 0.1, 0]],
		"texts": ["exactly east", "exactly north", "mostly east"],
		"ids": ["b1", "b2", "b3"]
	}`)
	smishing := writeReferenceFile(t, dir, "smishing.json", `{
		"class": "smishing",
		"embedding_dimension": 3,
		"embeddings": [[0, 0, 1]],
		"texts": ["click this link now"],
		"ids": ["s1"]
	}`)
	return NewIndex(benign, smishing, 3, zap.NewNop())
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	idx := newTestIndex(t)

	results := idx.Search([]float32{1, 0, 0}, 2, core.LabelBenign)

	require.Len(t, results, 2)
	assert.Equal(t, "b1", results[0].ID)
	assert.Equal(t, "b3", results[1].ID)
}

func TestSearchReturnsAtMostK(t *testing.T) {
	idx := newTestIndex(t)

	assert.Len(t, idx.Search([]float32{1, 0, 0}, 1, core.LabelBenign), 1)
	assert.Len(t, idx.Search([]float32{1, 0, 0}, 10, core.LabelBenign), 3)
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 0, core.LabelBenign))
}

func TestSearchEmptySetNeverFails(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndex(filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"), 3, zap.NewNop())

	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 5, core.LabelBenign))
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 5, core.LabelSmishing))
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	// A query of the wrong dimension scores 0 against everything but still
	// returns results in insertion order instead of failing
	results := idx.Search([]float32{1, 0}, 3, core.LabelBenign)

	require.Len(t, results, 3)
	assert.Equal(t, "b1", results[0].ID)
	assert.Equal(t, "b2", results[1].ID)
	assert.Equal(t, "b3", results[2].ID)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	dir := t.TempDir()
	benign := writeReferenceFile(t, dir, "benign.json", `{
		"class": "benign",
		"embedding_dimension": 2,
		"embeddings": [[1, 0], [1, 0], [1, 0]],
		"texts": ["first", "second", "third"],
		"ids": ["b1", "b2", "b3"]
	}`)
	idx := NewIndex(benign, filepath.Join(dir, "missing.json"), 2, zap.NewNop())

	results := idx.Search([]float32{1, 0}, 3, core.LabelBenign)

	require.Len(t, results, 3)
	assert.Equal(t, "b1", results[0].ID)
	assert.Equal(t, "b2", results[1].ID)
	assert.Equal(t, "b3", results[2].ID)
}

func TestCosineSimilarityProperties(t *testing.T) {
	idx := newTestIndex(t)

	a := []float32{0.3, -0.2, 0.9}
	b := []float32{-0.1, 0.8, 0.4}

	// Self-similarity of a non-zero vector is 1 within tolerance
	assert.InDelta(t, 1.0, idx.cosineSimilarity(a, a), 1e-9)

	// Symmetry
	assert.Equal(t, idx.cosineSimilarity(a, b), idx.cosineSimilarity(b, a))

	// Zero vector never divides by zero
	assert.Equal(t, 0.0, idx.cosineSimilarity([]float32{0, 0, 0}, a))
}
