package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Embedder generates fixed-dimension embeddings through an OpenAI-compatible
// inference gateway (llama.cpp / Ollama style local server).
type Embedder struct {
	baseURL         string
	overrideBaseURL string
	apiKey          string
	model           string
	dimension       int
	logger          *zap.Logger

	mu          sync.Mutex
	client      *openai.Client
	initialized bool
}

// NewEmbedder creates an embedder. Initialize must be called before Embed.
// overrideBaseURL, when set, is probed before baseURL so an externally
// provisioned gateway takes precedence over the bundled default.
func NewEmbedder(baseURL, overrideBaseURL, apiKey, model string, dimension int, logger *zap.Logger) *Embedder {
	return &Embedder{
		baseURL:         baseURL,
		overrideBaseURL: overrideBaseURL,
		apiKey:          apiKey,
		model:           model,
		dimension:       dimension,
		logger:          logger,
	}
}

// Dimension returns the configured output dimension of the embedding model
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Initialize connects to the gateway and asserts the model's output dimension
// with a probe request. The dimension is checked once here, not on every call.
func (e *Embedder) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	if e.overrideBaseURL != "" {
		client := e.newClient(e.overrideBaseURL)
		if err := e.probe(ctx, client); err != nil {
			e.logger.Warn("Override embedding gateway unavailable, falling back",
				zap.String("override_base_url", e.overrideBaseURL),
				zap.Error(err))
		} else {
			e.logger.Info("Using override embedding gateway",
				zap.String("base_url", e.overrideBaseURL))
			e.client = client
			e.initialized = true
			return nil
		}
	}

	client := e.newClient(e.baseURL)
	if err := e.probe(ctx, client); err != nil {
		return fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	e.client = client
	e.initialized = true
	e.logger.Info("Embedding model initialized",
		zap.String("model", e.model),
		zap.Int("dimension", e.dimension))
	return nil
}

func (e *Embedder) newClient(baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(e.apiKey)
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}

func (e *Embedder) probe(ctx context.Context, client *openai.Client) error {
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{"ping"},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("embedding probe returned no output")
	}
	if got := len(resp.Data[0].Embedding); got != e.dimension {
		return fmt.Errorf("embedding dimension mismatch: model produces %d, configured %d", got, e.dimension)
	}
	return nil
}

// Embed returns the embedding for text. A (nil, nil) return means the
// embedder is unavailable; callers proceed without retrieval grounding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	client := e.client
	ready := e.initialized
	e.mu.Unlock()

	if !ready {
		e.logger.Warn("Embedding model not initialized")
		return nil, nil
	}

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.logger.Warn("Embedding model yielded no output",
			zap.Int("text_length", len(text)))
		return nil, nil
	}

	embedding := resp.Data[0].Embedding
	e.logger.Debug("Embedding generated",
		zap.Int("text_length", len(text)),
		zap.Int("dimension", len(embedding)))

	return embedding, nil
}
