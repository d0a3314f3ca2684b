package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tycoon/internal/api"
	"tycoon/internal/auth"
	"tycoon/internal/bank"
	"tycoon/internal/cache"
	"tycoon/internal/config"
	"tycoon/internal/db"
	"tycoon/internal/metrics"
	"tycoon/internal/rng"
)

// tokenCacheTTL is short enough that a revoked Supabase session stops
// working within a minute.
const tokenCacheTTL = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	store, err := cache.Open(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("cache connect failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	src := rng.NewEntropy()
	if cfg.RandomSeed != 0 {
		src = rng.New(cfg.RandomSeed)
	}
	m := metrics.Default()

	authClient := auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, auth.WithTokenCache(store, tokenCacheTTL))
	bankSvc := bank.NewService(pool, logger, bank.Options{
		Source:  src,
		Economy: cfg.Economy,
		Metrics: m,
	})

	server := api.New(cfg, logger, api.Deps{
		Auth:    authClient,
		Bank:    bankSvc,
		Cache:   store,
		Metrics: m,
		Source:  src,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("tycoon api listening", "addr", cfg.Addr, "redis", cfg.RedisURL != "")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
