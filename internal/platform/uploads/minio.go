package uploads

import (
	"context"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/jnd-review/internal/config"
)

// objectStater is the part of *minio.Client used here.
type objectStater interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Minio checks artifacts stored as objects in a bucket.
type Minio struct {
	client objectStater
	bucket string
	prefix string
}

// NewMinio connects to the configured endpoint and verifies that the bucket exists.
func NewMinio(ctx context.Context, cfg config.MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("MinIO bucket '%s' does not exist", cfg.Bucket)
	}

	return newMinio(client, cfg.Bucket, cfg.Prefix), nil
}

func newMinio(client objectStater, bucket, prefix string) *Minio {
	return &Minio{client: client, bucket: bucket, prefix: prefix}
}

// Exists implements Checker.
func (m *Minio) Exists(ctx context.Context, filename string) (bool, error) {
	if filename == "" {
		return false, nil
	}

	_, err := m.client.StatObject(ctx, m.bucket, m.prefix+filename, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket") {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %q: %w", filename, err)
}
