package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikey/llm-smish-guard/internal/utils"
	"go.uber.org/zap"
)

const (
	explanationNotReady = "Unable to generate explanation - model not ready"
	explanationFailed   = "Unable to generate explanation due to an error"
	explanationEmpty    = "Unable to generate explanation"
)

// SmishFilterService classifies SMS messages with a generative model grounded
// by retrieved reference examples. It implements the Classifier interface.
type SmishFilterService struct {
	generator        TextGenerator
	embedder         Embedder
	index            VectorIndex
	composer         PromptComposer
	textProcessor    *utils.TextProcessor
	logger           *zap.Logger
	maxRetries       int
	retryBackoff     time.Duration
	callTimeout      time.Duration
	maxInputLength   int
	maxPromptLength  int
	examplesPerClass int

	mu    sync.Mutex
	ready bool
}

// NewSmishFilterService creates a new smishing filter service
func NewSmishFilterService(
	generator TextGenerator,
	embedder Embedder,
	index VectorIndex,
	composer PromptComposer,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	maxRetries int,
	retryBackoff time.Duration,
	callTimeout time.Duration,
	maxInputLength int,
	maxPromptLength int,
	examplesPerClass int,
) *SmishFilterService {
	return &SmishFilterService{
		generator:        generator,
		embedder:         embedder,
		index:            index,
		composer:         composer,
		textProcessor:    textProcessor,
		logger:           logger,
		maxRetries:       maxRetries,
		retryBackoff:     retryBackoff,
		callTimeout:      callTimeout,
		maxInputLength:   maxInputLength,
		maxPromptLength:  maxPromptLength,
		examplesPerClass: examplesPerClass,
	}
}

// Initialize loads the embedder and prompt template and verifies the
// embedding dimension against the index. Failure of any dependency leaves
// the service not ready; there is no partial-ready state.
func (s *SmishFilterService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	if err := s.embedder.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := s.composer.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize prompt composer: %w", err)
	}
	if got, want := s.embedder.Dimension(), s.index.Dimension(); got != want {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", got, want)
	}

	s.ready = true
	s.logger.Info("Smishing filter service initialized",
		zap.Int("embedding_dimension", s.embedder.Dimension()))
	return nil
}

// IsModelReady reports whether the service is ready for inference
func (s *SmishFilterService) IsModelReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// ClassifySMS classifies a message body. Every failure mode collapses to
// ClassificationUnclassified: a missing model, an embedding timeout,
// exhausted retries and an unparseable response all look identical to
// downstream consumers.
func (s *SmishFilterService) ClassifySMS(ctx context.Context, text string) Classification {
	if !s.IsModelReady() {
		s.logger.Warn("Model not ready, attempting initialization")
		if err := s.Initialize(ctx); err != nil {
			// Precondition failure: no retry at this layer
			s.logger.Error("Failed to initialize model", zap.Error(err))
			return ClassificationUnclassified
		}
	}

	truncated := s.textProcessor.TruncateWithEllipsis(text, s.maxInputLength)

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * s.retryBackoff
			s.logger.Debug("Waiting before retry",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				s.logger.Error("Classification cancelled during backoff", zap.Error(ctx.Err()))
				return ClassificationUnclassified
			}
		}

		classification, err := s.classifyOnce(ctx, truncated)
		if err == nil {
			return classification
		}
		s.logger.Error("Classification attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	s.logger.Error("Max retries reached, returning UNCLASSIFIED",
		zap.Int("max_retries", s.maxRetries))
	return ClassificationUnclassified
}

// classifyOnce runs a single embed → retrieve → compose → infer attempt
func (s *SmishFilterService) classifyOnce(ctx context.Context, text string) (Classification, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	embedding, err := s.embedder.Embed(embedCtx, text)
	cancel()
	if err != nil {
		return ClassificationUnclassified, fmt.Errorf("embedding failed: %w", err)
	}

	var composed string
	if embedding == nil {
		// Proceed without retrieval grounding rather than aborting
		s.logger.Warn("Embedding unavailable, using fallback prompt")
		composed = s.composer.FallbackPrompt(text)
	} else {
		benign := s.index.Search(embedding, s.examplesPerClass, LabelBenign)
		smishing := s.index.Search(embedding, s.examplesPerClass, LabelSmishing)
		s.logger.Debug("Retrieved similar examples",
			zap.Int("benign", len(benign)),
			zap.Int("smishing", len(smishing)))
		composed = s.composer.Compose(text, benign, smishing)
	}

	if len(composed) > s.maxPromptLength {
		s.logger.Warn("Prompt too long, truncating",
			zap.Int("prompt_length", len(composed)),
			zap.Int("max_length", s.maxPromptLength))
		composed = s.textProcessor.TruncateWithEllipsis(composed, s.maxPromptLength)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	response, err := s.generator.Generate(genCtx, composed)
	cancel()
	if err != nil {
		return ClassificationUnclassified, fmt.Errorf("inference failed: %w", err)
	}

	classification := s.parseClassification(response)
	s.logger.Debug("Classification parsed",
		zap.String("classification", string(classification)),
		zap.Int("response_length", len(response)))
	return classification, nil
}

// parseClassification extracts the verdict from the raw model response.
// Absence of a clear signal is a failure, not a guess.
func (s *SmishFilterService) parseClassification(response string) Classification {
	upper := strings.ToUpper(response)
	switch {
	case response == "":
		return ClassificationUnclassified
	case strings.Contains(upper, "SMISHING"):
		return ClassificationSmishing
	case strings.Contains(upper, "BENIGN"):
		return ClassificationBenign
	default:
		return ClassificationUnclassified
	}
}

// GetExplanation explains why a message was classified as smishing. Any
// failure yields a fixed fallback string; errors never reach the caller.
func (s *SmishFilterService) GetExplanation(ctx context.Context, msg *Message) string {
	if !s.IsModelReady() {
		return explanationNotReady
	}

	truncated := s.textProcessor.TruncateWithEllipsis(msg.Body, s.maxInputLength)
	prompt := s.composer.ExplanationPrompt(msg.Sender, truncated)

	genCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	response, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		s.logger.Error("Failed to generate explanation",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return explanationFailed
	}
	if response == "" {
		return explanationEmpty
	}
	return response
}
