package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hszk-dev/adrotate/internal/config"
	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
	"github.com/hszk-dev/adrotate/internal/infrastructure/campaignfile"
	"github.com/hszk-dev/adrotate/internal/infrastructure/postgres"
	"github.com/hszk-dev/adrotate/internal/infrastructure/queue"
	"github.com/hszk-dev/adrotate/internal/infrastructure/storage"
	"github.com/hszk-dev/adrotate/internal/usecase"
)

type options struct {
	source   string
	file     string
	publish  bool
	generate int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var opts options
	flag.StringVar(&opts.source, "source", cfg.Loader.Source, "campaign source: file or postgres")
	flag.StringVar(&opts.file, "file", cfg.Loader.File, "campaign file for -source=file and -generate")
	flag.BoolVar(&opts.publish, "publish", false, "enqueue campaigns for the worker instead of uploading inline")
	flag.IntVar(&opts.generate, "generate", 0, "write N random campaigns to the source and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var campaigns repository.CampaignRepository
	switch opts.source {
	case config.LoaderSourceFile:
		campaigns = campaignfile.NewRepository(opts.file)
	case config.LoaderSourcePostgres:
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		logger.Info("connected to PostgreSQL")

		repo := postgres.NewCampaignRepository(pgClient.Pool())
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		campaigns = repo
	default:
		return fmt.Errorf("unknown source %q", opts.source)
	}

	if opts.generate > 0 {
		seed := uint64(time.Now().UnixNano())
		generated := campaignfile.Generate(rand.New(rand.NewPCG(seed, seed>>1)), opts.generate)
		if err := campaigns.Save(ctx, generated); err != nil {
			return fmt.Errorf("failed to save generated campaigns: %w", err)
		}
		logger.Info("generated campaigns",
			slog.String("source", opts.source),
			slog.Int("count", len(generated)),
		)
		return nil
	}

	list, err := campaigns.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read campaigns: %w", err)
	}
	logger.Info("read campaigns",
		slog.String("source", opts.source),
		slog.Int("count", len(list)),
	)

	if opts.publish {
		return publish(ctx, cfg, list)
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to bulk store: %w", err)
	}

	loader := usecase.NewCampaignLoader(store, nil, usecase.CampaignLoaderConfig{
		Concurrency: cfg.Loader.Concurrency,
	})
	if _, err := loader.LoadAll(ctx, list); err != nil {
		return fmt.Errorf("bulk load failed: %w", err)
	}
	return nil
}

func publish(ctx context.Context, cfg *config.Config, list []model.Campaign) error {
	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()

	// Uploads happen in the worker; the loader only needs the queue.
	loader := usecase.NewCampaignLoader(nil, queueClient, usecase.DefaultCampaignLoaderConfig())
	n, err := loader.PublishAll(ctx, list)
	if err != nil {
		return fmt.Errorf("published %d of %d campaigns: %w", n, len(list), err)
	}

	slog.Info("published campaign tasks", slog.Int("count", n))
	return nil
}
