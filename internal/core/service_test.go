package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/llm-smish-guard/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	var response string
	if i < len(m.responses) {
		response = m.responses[i]
	}
	return response, err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockEmbedder struct {
	vector    []float32
	embedErr  error
	initErr   error
	dimension int
}

func (m *mockEmbedder) Initialize(_ context.Context) error { return m.initErr }

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vector, m.embedErr
}

func (m *mockEmbedder) Dimension() int { return m.dimension }

type mockIndex struct {
	benign    []ReferenceExample
	smishing  []ReferenceExample
	dimension int
}

func (m *mockIndex) Search(_ []float32, k int, label Label) []ReferenceExample {
	set := m.benign
	if label == LabelSmishing {
		set = m.smishing
	}
	if k > len(set) {
		k = len(set)
	}
	if k <= 0 {
		return nil
	}
	return set[:k]
}

func (m *mockIndex) Dimension() int { return m.dimension }

type mockComposer struct {
	mu            sync.Mutex
	composedTexts []string
	fallbackTexts []string
}

func (m *mockComposer) Initialize() error { return nil }

func (m *mockComposer) Compose(text string, benign, smishing []ReferenceExample) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.composedTexts = append(m.composedTexts, text)
	return "grounded prompt: " + text
}

func (m *mockComposer) FallbackPrompt(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackTexts = append(m.fallbackTexts, text)
	return "fallback prompt: " + text
}

func (m *mockComposer) ExplanationPrompt(sender, text string) string {
	return "explain " + sender + ": " + text
}

func newTestService(generator *mockGenerator, embedder *mockEmbedder, composer *mockComposer) *SmishFilterService {
	return NewSmishFilterService(
		generator,
		embedder,
		&mockIndex{dimension: embedder.dimension},
		composer,
		utils.NewTextProcessor(zap.NewNop()),
		zap.NewNop(),
		2,                   // maxRetries
		10*time.Millisecond, // retryBackoff
		time.Second,         // callTimeout
		400,                 // maxInputLength
		14000,               // maxPromptLength
		2,                   // examplesPerClass
	)
}

func TestClassifySMSVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Classification
	}{
		{"smishing verdict", "## Classification: smishing", ClassificationSmishing},
		{"benign verdict", "The message is BENIGN.", ClassificationBenign},
		{"case insensitive", "sMiShInG", ClassificationSmishing},
		{"no signal is a failure", "I cannot tell what this is", ClassificationUnclassified},
		{"empty response is a failure", "", ClassificationUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &mockGenerator{responses: []string{tt.response}}
			embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
			svc := newTestService(generator, embedder, &mockComposer{})

			got := svc.ClassifySMS(context.Background(), "win a free prize")

			assert.Equal(t, tt.want, got)
			// An unparseable response is a verdict failure, not a transport
			// failure, so it must not trigger a retry
			assert.Equal(t, 1, generator.callCount())
		})
	}
}

func TestClassifySMSRetriesUntilBound(t *testing.T) {
	boom := errors.New("model timed out")
	generator := &mockGenerator{errs: []error{boom, boom, boom, boom}}
	embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
	svc := newTestService(generator, embedder, &mockComposer{})

	start := time.Now()
	got := svc.ClassifySMS(context.Background(), "urgent: verify your account")
	elapsed := time.Since(start)

	assert.Equal(t, ClassificationUnclassified, got)
	// maxRetries=2 means one initial attempt plus two retries
	assert.Equal(t, 3, generator.callCount())
	// Linear backoff: 1*10ms before the first retry, 2*10ms before the second
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestClassifySMSRecoversOnRetry(t *testing.T) {
	generator := &mockGenerator{
		responses: []string{"", "smishing"},
		errs:      []error{errors.New("transient"), nil},
	}
	embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
	svc := newTestService(generator, embedder, &mockComposer{})

	got := svc.ClassifySMS(context.Background(), "click bit.ly/x to claim")

	assert.Equal(t, ClassificationSmishing, got)
	assert.Equal(t, 2, generator.callCount())
}

func TestClassifySMSFallsBackWithoutEmbedding(t *testing.T) {
	generator := &mockGenerator{responses: []string{"benign"}}
	// (nil, nil) means the embedder is unavailable, not that it failed
	embedder := &mockEmbedder{vector: nil, dimension: 2}
	composer := &mockComposer{}
	svc := newTestService(generator, embedder, composer)

	got := svc.ClassifySMS(context.Background(), "see you tonight")

	assert.Equal(t, ClassificationBenign, got)
	assert.Empty(t, composer.composedTexts)
	require.Len(t, composer.fallbackTexts, 1)
	assert.Equal(t, "see you tonight", composer.fallbackTexts[0])
}

func TestClassifySMSEmbeddingErrorRetries(t *testing.T) {
	generator := &mockGenerator{responses: []string{"benign"}}
	embedder := &mockEmbedder{embedErr: errors.New("embedder crashed"), dimension: 2}
	svc := newTestService(generator, embedder, &mockComposer{})

	got := svc.ClassifySMS(context.Background(), "hi")

	// An embedding error is retryable, unlike unavailability, and the
	// generator is never reached when every attempt fails at the embed step
	assert.Equal(t, ClassificationUnclassified, got)
	assert.Equal(t, 0, generator.callCount())
}

func TestClassifySMSTruncatesInput(t *testing.T) {
	generator := &mockGenerator{responses: []string{"benign"}}
	embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
	composer := &mockComposer{}
	svc := newTestService(generator, embedder, composer)

	svc.ClassifySMS(context.Background(), strings.Repeat("a", 1000))

	require.Len(t, composer.composedTexts, 1)
	assert.Len(t, composer.composedTexts[0], 403)
	assert.True(t, strings.HasSuffix(composer.composedTexts[0], "..."))
}

func TestInitializeDimensionMismatch(t *testing.T) {
	generator := &mockGenerator{}
	embedder := &mockEmbedder{dimension: 384}
	svc := NewSmishFilterService(
		generator,
		embedder,
		&mockIndex{dimension: 768},
		&mockComposer{},
		utils.NewTextProcessor(zap.NewNop()),
		zap.NewNop(),
		2, 10*time.Millisecond, time.Second, 400, 14000, 2,
	)

	err := svc.Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
	assert.False(t, svc.IsModelReady())
}

func TestInitializeFailureShortCircuitsClassification(t *testing.T) {
	generator := &mockGenerator{responses: []string{"benign"}}
	embedder := &mockEmbedder{initErr: errors.New("model file missing"), dimension: 2}
	svc := newTestService(generator, embedder, &mockComposer{})

	got := svc.ClassifySMS(context.Background(), "hello")

	// A precondition failure is not retried
	assert.Equal(t, ClassificationUnclassified, got)
	assert.Equal(t, 0, generator.callCount())
}

func TestGetExplanation(t *testing.T) {
	msg := &Message{ID: "m1", Sender: "5551234", Body: "click here to unlock your card"}

	t.Run("returns model text", func(t *testing.T) {
		generator := &mockGenerator{responses: []string{"It impersonates your bank."}}
		embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
		svc := newTestService(generator, embedder, &mockComposer{})
		require.NoError(t, svc.Initialize(context.Background()))

		assert.Equal(t, "It impersonates your bank.", svc.GetExplanation(context.Background(), msg))
	})

	t.Run("model error yields fallback", func(t *testing.T) {
		generator := &mockGenerator{errs: []error{errors.New("timeout")}}
		embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
		svc := newTestService(generator, embedder, &mockComposer{})
		require.NoError(t, svc.Initialize(context.Background()))

		assert.Equal(t, "Unable to generate explanation due to an error", svc.GetExplanation(context.Background(), msg))
	})

	t.Run("empty response yields fallback", func(t *testing.T) {
		generator := &mockGenerator{responses: []string{""}}
		embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
		svc := newTestService(generator, embedder, &mockComposer{})
		require.NoError(t, svc.Initialize(context.Background()))

		assert.Equal(t, "Unable to generate explanation", svc.GetExplanation(context.Background(), msg))
	})

	t.Run("not ready yields fallback without inference", func(t *testing.T) {
		generator := &mockGenerator{}
		embedder := &mockEmbedder{vector: []float32{1, 0}, dimension: 2}
		svc := newTestService(generator, embedder, &mockComposer{})

		assert.Equal(t, "Unable to generate explanation - model not ready", svc.GetExplanation(context.Background(), msg))
		assert.Equal(t, 0, generator.callCount())
	})
}
