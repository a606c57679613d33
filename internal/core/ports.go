package core

import (
	"context"
)

// Classifier defines the interface for AI-based SMS classification
type Classifier interface {
	// ClassifySMS classifies a message body. Every failure mode (model not
	// ready, timeout, exhausted retries, unparseable response) collapses to
	// ClassificationUnclassified so callers only branch on verdicts.
	ClassifySMS(ctx context.Context, text string) Classification

	// GetExplanation explains why a message was classified as smishing.
	// It never fails; on any error a fixed fallback string is returned.
	GetExplanation(ctx context.Context, msg *Message) string

	// Initialize loads the model and its dependencies
	Initialize(ctx context.Context) error

	// IsModelReady reports whether the model is loaded and ready for inference
	IsModelReady() bool
}

// TextGenerator defines the interface for generative model backends
type TextGenerator interface {
	// Generate runs a single prompt through the model and returns its raw text
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder defines the interface for turning text into embedding vectors
type Embedder interface {
	// Initialize loads the embedding model and asserts its output dimension
	Initialize(ctx context.Context) error

	// Embed returns the embedding for the given text. A (nil, nil) return
	// means the embedder is unavailable (not initialized, or the model
	// yielded no output); callers should proceed without retrieval grounding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed output dimension of the loaded model
	Dimension() int
}

// VectorIndex answers top-K similarity queries over the labeled reference sets
type VectorIndex interface {
	// Search returns up to k examples from the label's reference set, ranked
	// by descending cosine similarity. It never fails: an empty set or a
	// dimension mismatch degrades to fewer (or zero) results.
	Search(query []float32, k int, label Label) []ReferenceExample

	// Dimension returns the declared embedding dimension of the loaded sets
	Dimension() int
}

// PromptComposer renders classification and explanation prompts
type PromptComposer interface {
	// Initialize loads the prompt template
	Initialize() error

	// Compose renders the grounded classification prompt
	Compose(text string, benign []ReferenceExample, smishing []ReferenceExample) string

	// FallbackPrompt renders the example-free classification prompt used when
	// no embedding is available
	FallbackPrompt(text string) string

	// ExplanationPrompt renders the prompt asking why a message is smishing
	ExplanationPrompt(sender string, text string) string
}

// MessageStore defines the interface for persisting messages
type MessageStore interface {
	// Add inserts a new message
	Add(ctx context.Context, msg *Message) error

	// Update upserts a message by id
	Update(ctx context.Context, msg *Message) error

	// Get retrieves a message by id
	Get(ctx context.Context, id string) (*Message, error)

	// All returns every stored message, newest first
	All(ctx context.Context) ([]Message, error)
}

// MemoryMonitor samples process memory and sheds pressure on demand
type MemoryMonitor interface {
	// Sample reports current heap usage
	Sample() MemoryStats

	// IsPressured reports whether usage crossed the configured threshold
	IsPressured() bool

	// Relieve requests memory reclamation. Advisory and best-effort; it never
	// blocks correctness, only latency.
	Relieve()
}
