// ABOUTME: Entry point for the FitCheck relay service
// ABOUTME: Wires config, cache, storage, handlers and middleware, then serves until signalled

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

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/handlers"
	"github.com/fitcheck/fitcheck/backend/logger"
	"github.com/fitcheck/fitcheck/backend/middleware"
	"github.com/fitcheck/fitcheck/backend/storage"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting FitCheck relay")
	if cfg.BackendConfigured() {
		slog.Info("Backend configured", "url", cfg.BackendURL, "via_jumpbox", cfg.BackendAllProxy != "")
	} else {
		slog.Warn("BACKEND_URL not set, relay routes will answer 500")
	}
	if !cfg.TryOnConfigured() {
		slog.Info("Virtual try-on not configured")
	}

	// Initialize cache: Redis when configured, in-memory otherwise
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	var (
		store       cache.Store
		redisClient *cache.RedisStore
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedis(ctx, cfg.RedisURL, cacheTTL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		store = redisClient
		slog.Info("Redis cache initialized", "ttl", cacheTTL)
	} else {
		mem := cache.New(cacheTTL)
		defer mem.Close()
		store = mem
		slog.Info("In-memory cache initialized", "ttl", cacheTTL)
	}

	// Initialize handlers
	h := handlers.NewHandler(cfg, store)

	if cfg.StorageConfigured() {
		objects, err := storage.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			slog.Error("Failed to create object store", "error", err)
			os.Exit(1)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			slog.Warn("Object storage unavailable, photo uploads will fail", "error", err)
		}
		h.SetObjectStore(objects)
		slog.Info("Object storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	}

	limiters := newLimiters(cfg, redisClient)

	mux := handlers.NewServeMux(h, cfg.CORSAllowedOrigins, limiters)

	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// newLimiters builds one limiter per rate limit tier. Counters live in Redis
// when it is configured so every replica shares them.
func newLimiters(cfg *config.Config, redisStore *cache.RedisStore) map[string]middleware.Limiter {
	if !cfg.RateLimitEnabled {
		slog.Info("Rate limiting disabled")
		return nil
	}

	tiers := map[string]int{
		handlers.LimitAuth:    cfg.RateLimitAuth,
		handlers.LimitWrite:   cfg.RateLimitWrite,
		handlers.LimitDefault: cfg.RateLimitDefault,
	}

	limiters := make(map[string]middleware.Limiter, len(tiers))
	for name, perMinute := range tiers {
		if redisStore != nil {
			limiters[name] = middleware.NewRedisLimiter(redisStore.Client(), name, perMinute, time.Minute)
		} else {
			limiters[name] = middleware.NewRateLimiter(perMinute, time.Minute)
		}
	}
	slog.Info("Rate limiting enabled",
		"auth", cfg.RateLimitAuth,
		"write", cfg.RateLimitWrite,
		"default", cfg.RateLimitDefault,
		"shared", redisStore != nil)
	return limiters
}
