package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hszk-dev/adrotate/internal/config"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
	"github.com/hszk-dev/adrotate/internal/infrastructure/queue"
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
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to bulk store: %w", err)
	}
	logger.Info("connected to bulk store", slog.String("driver", cfg.Storage.Driver))

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	loader := usecase.NewCampaignLoader(store, queueClient, usecase.CampaignLoaderConfig{
		Concurrency: cfg.Loader.Concurrency,
		MaxRetries:  cfg.Worker.MaxRetries,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Tracks in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming campaign tasks")
		err := queueClient.ConsumeCampaignTasks(ctx, func(task repository.CampaignTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("campaign_id", task.Campaign.ID),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := loader.ProcessTask(ctx, task); err != nil {
				logger.Error("task processing failed",
					slog.String("campaign_id", task.Campaign.ID),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("campaign_id", task.Campaign.ID),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming new messages
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
