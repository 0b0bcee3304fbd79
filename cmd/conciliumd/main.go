// Command conciliumd runs the council deliberation service: an HTTP API
// over a fixed roster of LLM personas with peer review, synthesis, and
// an embedded retrieval engine for document grounding.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/concilium-ai/concilium/internal/cache"
	"github.com/concilium-ai/concilium/internal/config"
	"github.com/concilium-ai/concilium/internal/council"
	"github.com/concilium-ai/concilium/internal/deliberation"
	"github.com/concilium-ai/concilium/internal/llm"
	"github.com/concilium-ai/concilium/internal/retrieval"
	"github.com/concilium-ai/concilium/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := llm.NewClient(llm.ClientConfig{
		BaseURL:          cfg.Provider.BaseURL,
		APIKey:           cfg.Provider.APIKey,
		EmbeddingModel:   cfg.Provider.EmbeddingModel,
		Timeout:          cfg.Provider.Timeout,
		EmbeddingTimeout: cfg.Provider.EmbeddingTimeout,
	}, logger)

	embedder := newEmbedder(client, cfg.Cache, logger)

	store, err := newStore(ctx, cfg.Retrieval, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open vector store")
	}
	defer func() { _ = store.Close() }()

	chunker := retrieval.NewChunker(cfg.Retrieval.ChunkStrategy,
		cfg.Retrieval.ChunkWindow, cfg.Retrieval.ChunkOverlap, cfg.Retrieval.ChunkMaxSize)
	engine := retrieval.NewEngine(store, embedder, chunker, retrieval.EngineConfig{
		TopK:       cfg.Retrieval.TopK,
		EmbedDelay: cfg.Retrieval.EmbedDelay,
	}, logger)

	registry, err := newRegistry(cfg.Council)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build council roster")
	}

	orchestrator, err := deliberation.New(registry, client, deliberation.Config{
		ReviewConcurrency: int64(cfg.Council.ReviewConcurrency),
		MaxTokens:         cfg.Council.MaxTokens,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build orchestrator")
	}

	srv := server.New(orchestrator, engine, cfg.Retrieval.TopK, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    httpServer.Addr,
			"members": len(registry.Members()),
			"backend": cfg.Retrieval.Backend,
		}).Info("Concilium listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Graceful shutdown incomplete")
	}
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newEmbedder(client *llm.Client, cfg config.CacheConfig, logger *logrus.Logger) llm.Embedder {
	switch cfg.Backend {
	case "none":
		return client
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return cache.NewCachingEmbedder(client, cache.NewRedisCache(rdb, cfg.TTL, logger))
	default:
		return cache.NewCachingEmbedder(client, cache.NewMemoryCache(cfg.MaxEntries))
	}
}

func newStore(ctx context.Context, cfg config.RetrievalConfig, logger *logrus.Logger) (retrieval.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return retrieval.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return retrieval.NewPostgresStore(ctx, cfg.PostgresDSN, logger)
	default:
		return retrieval.NewMemoryStore(), nil
	}
}

func newRegistry(cfg config.CouncilConfig) (*council.Registry, error) {
	if cfg.RosterPath != "" {
		members, err := council.LoadRoster(cfg.RosterPath)
		if err != nil {
			return nil, err
		}
		return council.NewRegistry(members)
	}
	return council.NewRegistry(council.DefaultRoster(cfg.DefaultModel))
}
