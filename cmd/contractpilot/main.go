package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/api"
	"github.com/procurement-tools/contractpilot/internal/backend/ollama"
	"github.com/procurement-tools/contractpilot/internal/config"
	"github.com/procurement-tools/contractpilot/internal/normalizer"
	"github.com/procurement-tools/contractpilot/internal/session"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Normalizer shared by backends and the analytics endpoint
	norm := normalizer.New(
		normalizer.WithRequiredColumns(cfg.Normalizer.RequiredColumns),
		normalizer.WithUploadLimits(cfg.MaxUploadBytes(), cfg.Upload.AllowedExtensions),
	)

	// Register one Ollama backend per configured model
	manager := agent.NewManager(logger)
	client := ollama.NewClient(cfg.Ollama.BaseURL, time.Duration(cfg.Ollama.TimeoutSeconds)*time.Second)
	for _, model := range cfg.Ollama.Models {
		manager.Register(ollama.New(model, client, norm, logger))
	}

	// Select the default model up front; failure is non-fatal, the user can
	// select later once the service is up.
	if cfg.Ollama.DefaultModel != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := manager.SelectModel(ctx, cfg.Ollama.DefaultModel); err != nil {
			logger.Warn("default model not selected at startup",
				zap.String("model", cfg.Ollama.DefaultModel),
				zap.Error(err),
			)
		}
		cancel()
	}

	store := session.NewStore(manager, logger,
		session.WithSuggestionMaxLength(cfg.Chat.SuggestionMaxLength),
	)

	// Setup router
	router := api.SetupRouter(manager, store, norm, logger, api.RouterConfig{
		AllowOrigins:         []string{"*"},
		SuggestionMaxLength:  cfg.Chat.SuggestionMaxLength,
		SuggestionDebounceMS: cfg.Chat.SuggestionDebounceMS,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // model calls are slow
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting ContractPilot server",
			zap.String("address", cfg.Address()),
			zap.String("ollama", cfg.Ollama.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
