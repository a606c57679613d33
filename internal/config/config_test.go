package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultConfig() *Config {
	return NewFromViper(NewEmptyViper())
}

func TestClassifierDefaults(t *testing.T) {
	cfg, err := newDefaultConfig().GetClassifier()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 400, cfg.MaxInputLength)
	assert.Equal(t, 14000, cfg.MaxPromptLength)
	assert.Equal(t, 2, cfg.ExamplesPerClass)
}

func TestQueueDefaults(t *testing.T) {
	cfg, err := newDefaultConfig().GetQueue()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, time.Second, cfg.InterItemDelay)
	assert.Equal(t, 10*time.Second, cfg.MemoryCheckInterval)
}

func TestProviderAndEmbeddingDefaults(t *testing.T) {
	cfg := newDefaultConfig()

	assert.Equal(t, "local", cfg.GetLLM().Provider)

	local := cfg.GetLocal()
	assert.Equal(t, "http://127.0.0.1:11434/v1", local.BaseURL)
	assert.Empty(t, local.OverrideBaseURL)
	assert.Equal(t, "gemma-3n-e2b-it", local.ModelName)

	embedding := cfg.GetEmbedding()
	assert.Equal(t, "all-MiniLM-L6-v2", embedding.ModelName)
	assert.Equal(t, 384, embedding.Dimension)
}

func TestMemoryAndStoreDefaults(t *testing.T) {
	cfg := newDefaultConfig()

	mem := cfg.GetMemory()
	assert.Equal(t, uint64(512*1024*1024), mem.BudgetBytes)
	assert.Equal(t, 80, mem.ThresholdPercent)

	store := cfg.GetStore()
	assert.Equal(t, "memory", store.Type)
}

func TestOverridesTakeEffect(t *testing.T) {
	v := NewEmptyViper()
	v.Set("llm.provider", "bedrock")
	v.Set("classifier.max_retries", 5)
	v.Set("queue.inter_item_delay", "250ms")
	cfg := NewFromViper(v)

	assert.Equal(t, "bedrock", cfg.GetLLM().Provider)

	classifier, err := cfg.GetClassifier()
	require.NoError(t, err)
	assert.Equal(t, 5, classifier.MaxRetries)

	queue, err := cfg.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, queue.InterItemDelay)
}

func TestBadDurationIsAnError(t *testing.T) {
	v := NewEmptyViper()
	v.Set("classifier.retry_backoff", "not-a-duration")
	cfg := NewFromViper(v)

	_, err := cfg.GetClassifier()
	assert.Error(t, err)
}
