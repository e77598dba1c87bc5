package objectstore

import (
	"errors"
	"fmt"
	"path"

	"github.com/assettracer/assettracer/internal/pkg/env"
)

// Config holds S3 object storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnvBool("S3_ENABLED", false),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 is enabled")
		}
	}

	return config, nil
}

// PhotoKey is the object key of an asset photo or its thumbnail.
func PhotoKey(orgID, assetID uint, name string) string {
	return fmt.Sprintf("orgs/%d/assets/%d/%s", orgID, assetID, path.Base(name))
}

// DocumentKey is the object key of a rendered document.
func DocumentKey(orgID uint, kind, filename string) string {
	return fmt.Sprintf("orgs/%d/documents/%s/%s", orgID, kind, path.Base(filename))
}
