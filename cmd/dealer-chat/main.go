package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/salmadev/dealer-chat/internal/core"
	"github.com/salmadev/dealer-chat/internal/di"
	"github.com/salmadev/dealer-chat/internal/ports"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

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
	frontend ports.ChatFrontend,
	guard *core.AbuseGuard,
	llmClient core.LLMClient,
	store core.LeadStore,
) error {
	defer logger.Sync()

	// Start the frontend
	if err := frontend.Start(); err != nil {
		logger.Fatal("Failed to start frontend", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the frontend
	if err := frontend.Stop(ctx); err != nil {
		logger.Error("Failed to stop frontend", zap.Error(err))
	}

	// Stop the abuse guard sweep
	guard.Stop()

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close lead store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
