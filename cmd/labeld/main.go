package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmfarley/labeld/internal/config"
	"github.com/dmfarley/labeld/internal/embed"
	"github.com/dmfarley/labeld/internal/engine"
	"github.com/dmfarley/labeld/internal/server"
	"github.com/dmfarley/labeld/internal/storage"
	"github.com/dmfarley/labeld/internal/storage/postgres"
	"github.com/dmfarley/labeld/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, env vars apply either way)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	embedder, err := embed.NewProvider(embed.Config{
		Provider:     cfg.Embedding.Provider,
		OllamaURL:    cfg.Embedding.OllamaURL,
		OllamaModel:  cfg.Embedding.OllamaModel,
		OpenAIAPIKey: cfg.Embedding.OpenAIAPIKey,
		OpenAIModel:  cfg.Embedding.OpenAIModel,
		Timeout:      time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}

	eng := engine.New(store, embedder, engine.Config{
		SimilarityThreshold: cfg.Classifier.SimilarityThreshold,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _, err := server.Start(ctx, cfg, eng, embedder)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("labeld running at http://%s (provider: %s, threshold: %.2f)",
		addr, embedder.GetModel(), cfg.Classifier.SimilarityThreshold)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore builds the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresDSN, cfg.Storage.EmbeddingDim)
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.New(cfg.Storage.DataPath + "/labeld.db")
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}
