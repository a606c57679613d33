package config

import "time"

// LLMConfig represents the configuration for the generative model provider
type LLMConfig struct {
	Provider string
}

// LocalConfig represents the configuration for the local OpenAI-compatible gateway
type LocalConfig struct {
	BaseURL         string
	OverrideBaseURL string
	APIKey          string
	ModelName       string
	MaxTokens       int
	Temperature     float32
	TopP            float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// EmbeddingConfig represents the configuration for the embedding model
type EmbeddingConfig struct {
	ModelName string
	Dimension int
}

// ClassifierConfig represents the classification policy values
type ClassifierConfig struct {
	MaxRetries       int
	RetryBackoff     time.Duration
	CallTimeout      time.Duration
	MaxInputLength   int
	MaxPromptLength  int
	ExamplesPerClass int
}

// PromptConfig represents the prompt composer configuration
type PromptConfig struct {
	TemplatePath        string
	UseFullTemplate     bool
	MaxExamplesPerClass int
}

// IndexConfig represents the reference-set file locations
type IndexConfig struct {
	BenignPath   string
	SmishingPath string
}

// QueueConfig represents the processing queue policy values
type QueueConfig struct {
	ProcessingTimeout   time.Duration
	InterItemDelay      time.Duration
	MemoryCheckInterval time.Duration
}

// MemoryConfig represents the memory monitor configuration
type MemoryConfig struct {
	BudgetBytes      uint64
	ThresholdPercent int
}

// StoreConfig represents the message store configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
}

// ListenerConfig represents the inbound gateway listener configuration
type ListenerConfig struct {
	ListenAddress string
}

// GetLLM returns the generative provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetLocal returns the local gateway configuration
func (c *Config) GetLocal() LocalConfig {
	return LocalConfig{
		BaseURL:         c.GetString("local.base_url"),
		OverrideBaseURL: c.GetString("local.override_base_url"),
		APIKey:          c.GetString("local.api_key"),
		ModelName:       c.GetString("local.model_name"),
		MaxTokens:       c.GetInt("local.max_tokens"),
		Temperature:     float32(c.GetFloat64("local.temperature")),
		TopP:            float32(c.GetFloat64("local.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetEmbedding returns the embedding model configuration
func (c *Config) GetEmbedding() EmbeddingConfig {
	return EmbeddingConfig{
		ModelName: c.GetString("embedding.model_name"),
		Dimension: c.GetInt("embedding.dimension"),
	}
}

// GetClassifier returns the classification policy configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	backoff, err := c.GetDuration("classifier.retry_backoff")
	if err != nil {
		return ClassifierConfig{}, err
	}
	timeout, err := c.GetDuration("classifier.call_timeout")
	if err != nil {
		return ClassifierConfig{}, err
	}
	return ClassifierConfig{
		MaxRetries:       c.GetInt("classifier.max_retries"),
		RetryBackoff:     backoff,
		CallTimeout:      timeout,
		MaxInputLength:   c.GetInt("classifier.max_input_length"),
		MaxPromptLength:  c.GetInt("classifier.max_prompt_length"),
		ExamplesPerClass: c.GetInt("classifier.examples_per_class"),
	}, nil
}

// GetPrompt returns the prompt composer configuration
func (c *Config) GetPrompt() PromptConfig {
	return PromptConfig{
		TemplatePath:        c.GetString("prompt.template_path"),
		UseFullTemplate:     c.GetBool("prompt.use_full_template"),
		MaxExamplesPerClass: c.GetInt("prompt.max_examples_per_class"),
	}
}

// GetIndex returns the reference-set file configuration
func (c *Config) GetIndex() IndexConfig {
	return IndexConfig{
		BenignPath:   c.GetString("index.benign_path"),
		SmishingPath: c.GetString("index.smishing_path"),
	}
}

// GetQueue returns the queue policy configuration
func (c *Config) GetQueue() (QueueConfig, error) {
	timeout, err := c.GetDuration("queue.processing_timeout")
	if err != nil {
		return QueueConfig{}, err
	}
	delay, err := c.GetDuration("queue.inter_item_delay")
	if err != nil {
		return QueueConfig{}, err
	}
	interval, err := c.GetDuration("queue.memory_check_interval")
	if err != nil {
		return QueueConfig{}, err
	}
	return QueueConfig{
		ProcessingTimeout:   timeout,
		InterItemDelay:      delay,
		MemoryCheckInterval: interval,
	}, nil
}

// GetMemory returns the memory monitor configuration
func (c *Config) GetMemory() MemoryConfig {
	return MemoryConfig{
		BudgetBytes:      c.GetUint64("memory.budget_bytes"),
		ThresholdPercent: c.GetInt("memory.threshold_percent"),
	}
}

// GetStore returns the message store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
	}
}

// GetListener returns the gateway listener configuration
func (c *Config) GetListener() ListenerConfig {
	return ListenerConfig{
		ListenAddress: c.GetString("listener.listen_address"),
	}
}
