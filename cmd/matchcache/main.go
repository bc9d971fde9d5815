package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/cache"
	"github.com/valstats/matchcache/internal/config"
	"github.com/valstats/matchcache/internal/handlers"
	"github.com/valstats/matchcache/internal/henrik"
	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/store"
	"github.com/valstats/matchcache/internal/worker"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("matchcache stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores := store.NewManager(store.ManagerConfig{Root: cfg.DataDir, Logger: logger})
	defer func() {
		if err := stores.Close(); err != nil {
			sugar.Errorw("Failed to close stores", "error", err)
		}
	}()

	client := henrik.NewClient(henrik.Config{
		BaseURL:    cfg.APIBaseURL,
		UserAgent:  cfg.UserAgent,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Logger:     logger,
	})

	var ranks logic.RankCache
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Warnw("Redis unavailable, rank cache disabled", "error", err)
		} else {
			defer rdb.Close()
			ranks = cache.NewRankCache(cache.NewRedisKV(rdb), cfg.RankCacheTTL, logger)
			sugar.Infow("Rank cache enabled", "ttl", cfg.RankCacheTTL)
		}
	}

	pipeline := logic.NewPipeline(logic.PipelineConfig{
		Stores:          logic.ManagerOpener(stores),
		Pruner:          stores,
		Remote:          logic.HenrikSessions(client),
		Ranks:           ranks,
		RateLimitPause:  cfg.RateLimitPause,
		RankConcurrency: int64(cfg.RankConcurrency),
		Logger:          logger,
	})

	hcfg := handlers.Config{
		Matches:     pipeline,
		DefaultAuth: cfg.APIToken,
		Logger:      logger,
	}
	if cfg.BackfillEnabled {
		pool := worker.NewPool(worker.PoolConfig{
			WorkerCount: cfg.WorkerCount,
			QueueSize:   cfg.QueueSize,
			JobTimeout:  cfg.JobTimeout,
			Fetcher:     pipeline,
			Logger:      logger,
		})
		pool.Start(ctx)
		defer pool.Stop()
		hcfg.Pool = pool
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handlers.NewRouter(handlers.New(hcfg), cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server listening", "addr", server.Addr, "dataDir", stores.Root(), "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP server shutdown failed", "error", err)
	}
	sugar.Info("Shutdown complete")
	return nil
}
