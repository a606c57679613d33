package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/llm-smish-guard/internal/adapters/embedding"
	"github.com/mikey/llm-smish-guard/internal/adapters/prompt"
	"github.com/mikey/llm-smish-guard/internal/adapters/vectorindex"
	"github.com/mikey/llm-smish-guard/internal/config"
	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/mikey/llm-smish-guard/internal/factory"
	"github.com/mikey/llm-smish-guard/internal/logging"
	"github.com/mikey/llm-smish-guard/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "local", "LLM provider (local, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Local gateway flags
	localBaseURL = flag.String("local-base-url", "http://127.0.0.1:11434/v1", "Base URL of the OpenAI-compatible gateway")
	localModel   = flag.String("local-model", "gemma-3n-e2b-it", "Model name on the local gateway")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Reference data flags
	benignPath   = flag.String("benign-embeddings", "assets/embeddings/benign_embeddings.json", "Benign reference set file")
	smishingPath = flag.String("smishing-embeddings", "assets/embeddings/smishing_embeddings.json", "Smishing reference set file")

	// Input flags
	sender     = flag.String("sender", "Unknown", "Sender address of the message")
	message    = flag.String("message", "", "Message text (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	// Read the message text
	text := *message
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read message from stdin", zap.Error(err))
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		logger.Fatal("No message text provided")
	}

	// Build the pipeline by hand
	textProcessor := utils.NewTextProcessor(logger)

	llmFactory := factory.NewLLMFactory(cfg, logger)
	generator, err := llmFactory.CreateTextGenerator()
	if err != nil {
		logger.Fatal("Failed to create generator client", zap.Error(err))
	}

	localCfg := cfg.GetLocal()
	embeddingCfg := cfg.GetEmbedding()
	embedder := embedding.NewEmbedder(
		localCfg.BaseURL,
		localCfg.OverrideBaseURL,
		localCfg.APIKey,
		embeddingCfg.ModelName,
		embeddingCfg.Dimension,
		logger,
	)

	indexCfg := cfg.GetIndex()
	index := vectorindex.NewIndex(indexCfg.BenignPath, indexCfg.SmishingPath, embeddingCfg.Dimension, logger)

	promptCfg := cfg.GetPrompt()
	composer := prompt.NewComposer(promptCfg.TemplatePath, promptCfg.UseFullTemplate, promptCfg.MaxExamplesPerClass, logger)

	classifierCfg, err := cfg.GetClassifier()
	if err != nil {
		logger.Fatal("Invalid classifier configuration", zap.Error(err))
	}

	service := core.NewSmishFilterService(
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
	)

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", *sender)
	fmt.Printf("Body length: %d bytes\n", len(text))
	if *verbose {
		preview := text
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	// Classify
	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Classifying message...\n")
	startTime := time.Now()

	ctx := context.Background()
	classification := service.ClassifySMS(ctx, text)

	explanation := ""
	if classification == core.ClassificationSmishing {
		msg := &core.Message{
			Sender: *sender,
			Body:   text,
		}
		explanation = service.GetExplanation(ctx, msg)
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Classification: %s\n", classification)
	if explanation != "" {
		fmt.Printf("Explanation: %s\n", explanation)
	}
	fmt.Printf("Processing time: %v\n", duration)

	if closer, ok := generator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close generator client", zap.Error(err))
		}
	}
}

// createConfigFromFlags builds a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	v.Set("local.base_url", *localBaseURL)
	v.Set("local.model_name", *localModel)
	v.Set("local.max_tokens", *maxTokens)
	v.Set("local.temperature", *temperature)
	v.Set("local.top_p", *topP)

	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("gemini.max_tokens", *maxTokens)
	v.Set("gemini.temperature", *temperature)
	v.Set("gemini.top_p", *topP)

	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("bedrock.max_tokens", *maxTokens)
	v.Set("bedrock.temperature", *temperature)
	v.Set("bedrock.top_p", *topP)

	v.Set("index.benign_path", *benignPath)
	v.Set("index.smishing_path", *smishingPath)

	return config.NewFromViper(v)
}
