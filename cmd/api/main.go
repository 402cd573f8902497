package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/adrotate/internal/api/handler"
	"github.com/hszk-dev/adrotate/internal/api/middleware"
	"github.com/hszk-dev/adrotate/internal/config"
	"github.com/hszk-dev/adrotate/internal/infrastructure/cache"
	"github.com/hszk-dev/adrotate/internal/infrastructure/metadata"
	"github.com/hszk-dev/adrotate/internal/infrastructure/storage"
	"github.com/hszk-dev/adrotate/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))
	slog.SetDefault(logger)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to bulk store: %w", err)
	}
	logger.Info("connected to bulk store",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("bucket", cfg.Storage.Bucket),
	)

	rotationSvc := usecase.NewRotationService(
		cache.NewRedisRotationCache(redisClient),
		store,
		usecase.RotationServiceConfig{
			PageSize:     cfg.Rotation.PageSize,
			CacheTTL:     cfg.Rotation.CacheTTL,
			CacheTimeout: cfg.Rotation.CacheTimeout,
			StoreTimeout: cfg.Rotation.StoreTimeout,
			WrapPolicy:   usecase.WrapPolicy(cfg.Rotation.WrapPolicy),
		},
	)
	zones := metadata.NewZoneResolver(metadata.Config{
		StaticZone:  cfg.Metadata.AvailabilityZone,
		MetadataURI: cfg.Metadata.URI,
		Timeout:     cfg.Metadata.Timeout,
	})
	adHandler := handler.NewAdHandler(usecase.NewAdService(rotationSvc, zones))

	r := setupRouter(logger, adHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, ads *handler.AdHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ad_request", ads.Request)

	return r
}
