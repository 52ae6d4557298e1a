// Package publish uploads rendered reports to S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/config"
	"cleanarch/internal/logging"
	"cleanarch/internal/report"
)

// Backend is the object storage the publisher writes to.
type Backend interface {
	EnsureBucket(ctx context.Context, bucket, region string) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Publisher uploads reports under a key prefix of one bucket.
type Publisher struct {
	backend Backend
	bucket  string
	prefix  string
}

// New connects to the endpoint of cfg and makes sure the bucket exists.
func New(ctx context.Context, cfg config.PublishConfig) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return NewWithBackend(ctx, &minioBackend{client: client}, cfg.Bucket, cfg.Region, cfg.Prefix)
}

// NewWithBackend builds a publisher over an existing backend.
func NewWithBackend(ctx context.Context, backend Backend, bucket, region, prefix string) (*Publisher, error) {
	if err := backend.EnsureBucket(ctx, bucket, region); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", bucket, err)
	}
	return &Publisher{backend: backend, bucket: bucket, prefix: prefix}, nil
}

// ObjectKey returns the key a report is stored under.
func ObjectKey(prefix, runID string, format report.Format) string {
	return path.Join(prefix, runID+"."+format.Ext())
}

// Publish renders rep in format and uploads it. It returns the object key.
func (p *Publisher) Publish(ctx context.Context, rep *cleanarch.Report, format report.Format) (string, error) {
	var buf bytes.Buffer
	if err := report.Render(&buf, rep, report.Options{Format: format}); err != nil {
		return "", err
	}
	key := ObjectKey(p.prefix, rep.RunID, format)
	if err := p.backend.Put(ctx, p.bucket, key, buf.Bytes(), format.ContentType()); err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	logging.Report("published run %s to %s/%s (%d bytes)", rep.RunID, p.bucket, key, buf.Len())
	return key, nil
}

type minioBackend struct {
	client *minio.Client
}

func (m *minioBackend) EnsureBucket(ctx context.Context, bucket, region string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (m *minioBackend) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
