package local

import (
	"github.com/mikey/llm-smish-guard/internal/config"
	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates new local gateway clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for local gateway clients
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new local gateway client. The override base URL, when
// configured, takes precedence over the bundled default.
func (f *Factory) CreateClient() (core.TextGenerator, error) {
	localCfg := f.cfg.GetLocal()

	baseURL := localCfg.BaseURL
	if localCfg.OverrideBaseURL != "" {
		baseURL = localCfg.OverrideBaseURL
		f.logger.Info("Using override inference gateway", zap.String("base_url", baseURL))
	}

	clientCfg := openai.DefaultConfig(localCfg.APIKey)
	clientCfg.BaseURL = baseURL
	client := openai.NewClientWithConfig(clientCfg)

	return NewClient(
		client,
		localCfg.ModelName,
		localCfg.MaxTokens,
		localCfg.Temperature,
		localCfg.TopP,
		f.logger,
	), nil
}
