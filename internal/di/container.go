package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-smish-guard/internal/adapters/embedding"
	"github.com/mikey/llm-smish-guard/internal/adapters/listener"
	"github.com/mikey/llm-smish-guard/internal/adapters/prompt"
	"github.com/mikey/llm-smish-guard/internal/adapters/vectorindex"
	"github.com/mikey/llm-smish-guard/internal/config"
	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/mikey/llm-smish-guard/internal/factory"
	"github.com/mikey/llm-smish-guard/internal/logging"
	"github.com/mikey/llm-smish-guard/internal/memory"
	"github.com/mikey/llm-smish-guard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register generative model client
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return nil, err
	}

	// Register message store
	if err := container.Provide(func(f *factory.StoreFactory) (core.MessageStore, error) {
		return f.CreateMessageStore()
	}); err != nil {
		return nil, err
	}

	// Register embedder
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Embedder {
		localCfg := cfg.GetLocal()
		embeddingCfg := cfg.GetEmbedding()
		return embedding.NewEmbedder(
			localCfg.BaseURL,
			localCfg.OverrideBaseURL,
			localCfg.APIKey,
			embeddingCfg.ModelName,
			embeddingCfg.Dimension,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register vector index
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.VectorIndex {
		indexCfg := cfg.GetIndex()
		embeddingCfg := cfg.GetEmbedding()
		return vectorindex.NewIndex(
			indexCfg.BenignPath,
			indexCfg.SmishingPath,
			embeddingCfg.Dimension,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register prompt composer
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.PromptComposer {
		promptCfg := cfg.GetPrompt()
		return prompt.NewComposer(
			promptCfg.TemplatePath,
			promptCfg.UseFullTemplate,
			promptCfg.MaxExamplesPerClass,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register memory monitor
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.MemoryMonitor {
		memoryCfg := cfg.GetMemory()
		return memory.NewMonitor(memoryCfg.BudgetBytes, memoryCfg.ThresholdPercent, logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier service
	if err := container.Provide(func(
		generator core.TextGenerator,
		embedder core.Embedder,
		index core.VectorIndex,
		composer core.PromptComposer,
		textProcessor *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) (core.Classifier, error) {
		classifierCfg, err := cfg.GetClassifier()
		if err != nil {
			return nil, err
		}
		return core.NewSmishFilterService(
			generator,
			embedder,
			index,
			composer,
			textProcessor,
			logger,
			classifierCfg.MaxRetries,
			classifierCfg.RetryBackoff,
			classifierCfg.CallTimeout,
			classifierCfg.MaxInputLength,
			classifierCfg.MaxPromptLength,
			classifierCfg.ExamplesPerClass,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register processing queue
	if err := container.Provide(func(
		classifier core.Classifier,
		store core.MessageStore,
		monitor core.MemoryMonitor,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.ProcessingQueue, error) {
		queueCfg, err := cfg.GetQueue()
		if err != nil {
			return nil, err
		}
		return core.NewProcessingQueue(
			classifier,
			store,
			monitor,
			logger,
			queueCfg.ProcessingTimeout,
			queueCfg.InterItemDelay,
			queueCfg.MemoryCheckInterval,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register gateway listener
	if err := container.Provide(func(
		queue *core.ProcessingQueue,
		store core.MessageStore,
		textProcessor *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) *listener.SMTPListener {
		listenerCfg := cfg.GetListener()
		return listener.NewSMTPListener(queue, store, textProcessor, logger, listenerCfg.ListenAddress)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
