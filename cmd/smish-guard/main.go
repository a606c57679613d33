package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-smish-guard/internal/adapters/listener"
	"github.com/mikey/llm-smish-guard/internal/core"
	"github.com/mikey/llm-smish-guard/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	gateway *listener.SMTPListener,
	queue *core.ProcessingQueue,
	classifier core.Classifier,
	generator core.TextGenerator,
) error {
	defer logger.Sync()

	// Warm the model up front so the first message does not pay for
	// initialization. Failure is not fatal: classification re-attempts
	// initialization and degrades to UNCLASSIFIED verdicts until it succeeds.
	if err := classifier.Initialize(context.Background()); err != nil {
		logger.Warn("Classifier initialization failed at startup", zap.Error(err))
	}

	// Start the periodic memory monitor and the gateway listener
	queue.StartMonitor()
	if err := gateway.Start(); err != nil {
		logger.Fatal("Failed to start gateway listener", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := gateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway listener", zap.Error(err))
	}
	queue.Stop()

	// Close any resources that need closing
	if closer, ok := generator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close generator client", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
