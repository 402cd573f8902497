package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hszk-dev/adrotate/internal/domain/repository"
	"github.com/hszk-dev/adrotate/internal/infrastructure/metrics"
)

// s3API defines the subset of the S3 API used by S3Client.
// *s3.Client satisfies this interface.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds configuration for the AWS S3 client.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // Optional: S3-compatible endpoint override
	UsePathStyle    bool
	AccessKeyID     string // Optional: falls back to the default credential chain
	SecretAccessKey string
}

// S3Client implements repository.AdStore on AWS S3, passing ListObjectsV2
// continuation tokens through unchanged.
type S3Client struct {
	client s3API
	bucket string
}

// Compile-time verification that S3Client implements repository.AdStore.
var _ repository.AdStore = (*S3Client)(nil)

// NewS3Client creates an S3 client from the default AWS configuration chain.
// It verifies the bucket is reachable during initialization.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3ClientWithAPI(ctx, client, cfg.Bucket)
}

// newS3ClientWithAPI creates an S3Client with a given s3API implementation.
// This is used for dependency injection in tests.
func newS3ClientWithAPI(ctx context.Context, client s3API, bucket string) (*S3Client, error) {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
		}
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	return &S3Client{
		client: client,
		bucket: bucket,
	}, nil
}

// ListKeys lists one page of keys under prefix.
func (c *S3Client) ListKeys(ctx context.Context, prefix string, maxKeys int, continuationToken string) (page *repository.KeyPage, err error) {
	defer func() { metrics.ObserveStore(metrics.DriverS3, metrics.StoreOpList, err) }()

	if maxKeys <= 0 {
		return nil, fmt.Errorf("max keys must be positive, got %d", maxKeys)
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	out, err := c.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	page = &repository.KeyPage{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	page.ContinuationToken = aws.ToString(out.NextContinuationToken)
	return page, nil
}

// Get retrieves the object stored at key.
func (c *S3Client) Get(ctx context.Context, key string) (body []byte, err error) {
	defer func() { metrics.ObserveStore(metrics.DriverS3, metrics.StoreOpGet, err) }()

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", repository.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	body, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return body, nil
}

// Put stores body at key.
func (c *S3Client) Put(ctx context.Context, key string, body []byte, contentType string) (err error) {
	defer func() { metrics.ObserveStore(metrics.DriverS3, metrics.StoreOpPut, err) }()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Ping verifies the bucket is still reachable.
func (c *S3Client) Ping(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("failed to ping s3: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *S3Client) Bucket() string {
	return c.bucket
}
