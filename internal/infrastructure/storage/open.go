package storage

import (
	"context"
	"fmt"

	"github.com/hszk-dev/adrotate/internal/config"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
)

// Open connects to the bulk store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (repository.AdStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMinIO:
		return NewClient(ctx, ClientConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	case config.StorageDriverS3:
		return NewS3Client(ctx, S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
