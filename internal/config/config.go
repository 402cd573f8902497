package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage driver names.
const (
	StorageDriverMinIO = "minio"
	StorageDriverS3    = "s3"
)

// Loader sources.
const (
	LoaderSourceFile     = "file"
	LoaderSourcePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Rotation RotationConfig
	Metadata MetadataConfig
	Loader   LoaderConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// SlogLevel parses LogLevel, falling back to info.
func (c ServerConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"minio"`
	Bucket string `envconfig:"STORAGE_BUCKET" default:"game-ads"`

	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	S3Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT" default:""`
	S3UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`
	S3AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" default:""`
	S3SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" default:""`
}

type RotationConfig struct {
	PageSize     int           `envconfig:"ROTATION_PAGE_SIZE" default:"3"`
	CacheTTL     time.Duration `envconfig:"ROTATION_CACHE_TTL" default:"0s"`
	CacheTimeout time.Duration `envconfig:"ROTATION_CACHE_TIMEOUT" default:"500ms"`
	StoreTimeout time.Duration `envconfig:"ROTATION_STORE_TIMEOUT" default:"2s"`
	WrapPolicy   string        `envconfig:"ROTATION_WRAP_POLICY" default:"first"`
}

type MetadataConfig struct {
	URI              string        `envconfig:"ECS_CONTAINER_METADATA_URI_V4" default:""`
	AvailabilityZone string        `envconfig:"AVAILABILITY_ZONE" default:""`
	Timeout          time.Duration `envconfig:"METADATA_TIMEOUT" default:"2s"`
}

type LoaderConfig struct {
	Source      string `envconfig:"LOADER_SOURCE" default:"file"`
	File        string `envconfig:"LOADER_FILE" default:"ads.json"`
	Concurrency int    `envconfig:"LOADER_CONCURRENCY" default:"8"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"adrotate"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"adrotate"`
	DBName   string `envconfig:"POSTGRES_DB" default:"adrotate"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"adrotate"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"adrotate"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case StorageDriverMinIO, StorageDriverS3:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", c.Storage.Driver, StorageDriverMinIO, StorageDriverS3)
	}

	if c.Rotation.PageSize <= 0 {
		return fmt.Errorf("invalid ROTATION_PAGE_SIZE %d: must be positive", c.Rotation.PageSize)
	}

	c.Rotation.WrapPolicy = strings.ToLower(c.Rotation.WrapPolicy)
	switch c.Rotation.WrapPolicy {
	case "first", "random":
	default:
		return fmt.Errorf("invalid ROTATION_WRAP_POLICY %q: want first or random", c.Rotation.WrapPolicy)
	}

	c.Loader.Source = strings.ToLower(c.Loader.Source)
	switch c.Loader.Source {
	case LoaderSourceFile, LoaderSourcePostgres:
	default:
		return fmt.Errorf("invalid LOADER_SOURCE %q: want %s or %s", c.Loader.Source, LoaderSourceFile, LoaderSourcePostgres)
	}

	return nil
}
