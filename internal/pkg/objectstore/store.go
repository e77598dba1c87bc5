// Package objectstore keeps asset photos and rendered documents in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
)

// ErrDisabled is returned by the disabled store.
var ErrDisabled = errors.New("object storage is disabled")

// Store is the object storage used by photos and documents.
type Store interface {
	Enabled() bool
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store implements Store on aws-sdk-go-v2.
type S3Store struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New returns an S3Store for cfg, or a disabled store when cfg is nil or
// not enabled.
func New(cfg *Config) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		return Disabled{}, nil
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services (MinIO, B2) need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	log.Infof("[ObjectStore] Using bucket %s", cfg.BucketName)
	return &S3Store{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.BucketName,
	}, nil
}

func (s *S3Store) Enabled() bool { return true }

// Verify checks that the bucket is reachable.
func (s *S3Store) Verify(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"upload-source": "assettracer",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debugf("[ObjectStore] Uploaded s3://%s/%s (%d bytes)", s.bucket, key, len(data))
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	log.Debugf("[ObjectStore] Deleted s3://%s/%s", s.bucket, key)
	return nil
}

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("object not found")

// Disabled is the Store used when S3 is not configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }
func (Disabled) Put(context.Context, string, []byte, string) error {
	return ErrDisabled
}
func (Disabled) Get(context.Context, string) ([]byte, error) { return nil, ErrDisabled }
func (Disabled) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrDisabled
}
func (Disabled) Delete(context.Context, string) error { return ErrDisabled }

var defaultStore Store = Disabled{}

// SetDefault installs the process-wide store.
func SetDefault(s Store) {
	if s == nil {
		s = Disabled{}
	}
	defaultStore = s
}

// Default returns the process-wide store.
func Default() Store {
	return defaultStore
}
