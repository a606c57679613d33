package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/smish-guard/")
	v.AddConfigPath("$HOME/.smish-guard")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("SMISH_GUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "local")

	// Local OpenAI-compatible gateway defaults (llama.cpp / Ollama style)
	v.SetDefault("local.base_url", "http://127.0.0.1:11434/v1")
	v.SetDefault("local.override_base_url", "")
	v.SetDefault("local.api_key", "unused")
	v.SetDefault("local.model_name", "gemma-3n-e2b-it")
	v.SetDefault("local.max_tokens", 8192)
	v.SetDefault("local.temperature", 0.1)
	v.SetDefault("local.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Embedding defaults
	v.SetDefault("embedding.model_name", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", 384)

	// Classifier defaults
	v.SetDefault("classifier.max_retries", 2)
	v.SetDefault("classifier.retry_backoff", "1s")
	v.SetDefault("classifier.call_timeout", "30s")
	v.SetDefault("classifier.max_input_length", 400)
	v.SetDefault("classifier.max_prompt_length", 14000)
	v.SetDefault("classifier.examples_per_class", 2)

	// Prompt defaults
	v.SetDefault("prompt.template_path", "")
	v.SetDefault("prompt.use_full_template", false)
	v.SetDefault("prompt.max_examples_per_class", 1)

	// Reference index defaults
	v.SetDefault("index.benign_path", "assets/embeddings/benign_embeddings.json")
	v.SetDefault("index.smishing_path", "assets/embeddings/smishing_embeddings.json")

	// Queue defaults
	v.SetDefault("queue.processing_timeout", "45s")
	v.SetDefault("queue.inter_item_delay", "1s")
	v.SetDefault("queue.memory_check_interval", "10s")

	// Memory defaults
	v.SetDefault("memory.budget_bytes", 512*1024*1024)
	v.SetDefault("memory.threshold_percent", 80)

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/smish_guard.db")

	// Listener defaults
	v.SetDefault("listener.listen_address", "0.0.0.0:10025")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetUint64 gets an unsigned integer value from the configuration
func (c *Config) GetUint64(key string) uint64 {
	return c.v.GetUint64(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
