package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/board"
	"github.com/campusbrain/campusbrain/internal/chat"
	"github.com/campusbrain/campusbrain/internal/config"
	"github.com/campusbrain/campusbrain/internal/db"
	dbRedis "github.com/campusbrain/campusbrain/internal/db/redis"
	"github.com/campusbrain/campusbrain/internal/embedding"
	logpkg "github.com/campusbrain/campusbrain/internal/logger"
	"github.com/campusbrain/campusbrain/internal/metrics"
	"github.com/campusbrain/campusbrain/internal/rag"
	"github.com/campusbrain/campusbrain/internal/retrieval"
	"github.com/campusbrain/campusbrain/internal/search"
	"github.com/campusbrain/campusbrain/internal/store"
	"github.com/campusbrain/campusbrain/internal/transport/httpapi"
	"github.com/campusbrain/campusbrain/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting campusbrain API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver. Valkey speaks the same
	// protocol, so both drivers share the rueidis client.
	var database db.Store
	switch cfg.Database.Driver {
	case "redis", "valkey":
		database, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer database.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := database.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Upstream clients are built once per process and injected everywhere.
	embedder := embedding.NewClient(&embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		BatchSize: cfg.Embedding.BatchSize,
		Pause:     time.Duration(cfg.Embedding.PauseMs) * time.Millisecond,
		Provider:  cfg.Embedding.Provider,
		Logger:    logger,
	})
	completer := chat.NewClient(&chat.Config{
		APIKey:   cfg.Chat.APIKey,
		BaseURL:  cfg.Chat.BaseURL,
		Model:    cfg.Chat.Model,
		Provider: cfg.Chat.Provider,
		Logger:   logger,
	})
	logger.Info("Upstream clients created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("chat_model", cfg.Chat.Model),
		zap.String("router_model", cfg.Chat.RouterModel),
	)

	chunks := store.New(database, store.Config{
		IndexName:       cfg.Index.Name,
		KeyPrefix:       cfg.Storage.KeyPrefix,
		Dim:             cfg.Embedding.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})

	assembleCfg := retrieval.Config{
		ScoreGate:    cfg.Retrieval.ScoreGate,
		MaxPerSource: cfg.Retrieval.MaxPerSource,
		MaxSources:   cfg.Retrieval.MaxSources,
		Budget:       cfg.Retrieval.Budget,
		SnippetLimit: cfg.Retrieval.SnippetLimit,
	}

	indexer := rag.NewIndexer(embedder, chunks, logger)
	answerer := rag.NewAnswerer(embedder, chunks, completer, assembleCfg, logger)

	boardClient := board.NewClient(board.Config{
		BaseURL:  cfg.Board.BaseURL,
		APIToken: cfg.Board.APIToken,
		Cache:    stringKV{database},
		CacheTTL: time.Duration(cfg.Board.CacheTTLSec) * time.Second,
		Logger:   logger,
	})
	router := search.NewRouter(completer, cfg.Chat.RouterModel, logger)
	builder := search.NewBuilder(boardClient, router, logger)
	searchSvc := search.NewService(boardClient, builder, logger)

	server := httpapi.NewServer(indexer, answerer, searchSvc, database, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// stringKV adapts the byte-valued KV store to the string-valued cache the
// board client expects.
type stringKV struct {
	kv db.KVStore
}

func (s stringKV) Get(ctx context.Context, key string) (string, error) {
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s stringKV) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.kv.SetWithTTL(ctx, key, []byte(value), ttl)
}
