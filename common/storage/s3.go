package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/alibi/locker/common/config"
	"github.com/alibi/locker/common/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store stores evidence content in an S3-compatible bucket (MinIO, R2, AWS)
// under keys of the form "evidence/{ownerId}/{contentHash}_{filename}".
type S3Store struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
	log           *logger.Logger
}

// NewS3Store creates the client and ensures the bucket exists. Bucket
// creation failure at startup is fatal for this backend.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.S3Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.S3Bucket, err)
		}
		log.Info("created bucket", "bucket", cfg.S3Bucket)
	}

	log.Info("s3 store ready", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)

	return &S3Store{
		client:        client,
		bucket:        cfg.S3Bucket,
		presignExpiry: cfg.S3PresignExpiry,
		log:           log,
	}, nil
}

// Put uploads content and returns the object key. Embedding the content
// hash in the key makes objects self-describing when inspecting the
// bucket; the system performs no deduplication on it.
func (s *S3Store) Put(ctx context.Context, req PutRequest) (string, error) {
	if req.OwnerID == "" {
		return "", fmt.Errorf("owner id is required")
	}

	key := fmt.Sprintf("evidence/%s/%s_%s", req.OwnerID, req.ContentHash, sanitizeFilename(req.Filename))

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(req.Content), int64(len(req.Content)),
		minio.PutObjectOptions{ContentType: req.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return key, nil
}

// Get downloads the full object content by key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	return content, nil
}

// Delete removes the object. Removing a missing key succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// Locate returns a short-lived presigned GET URL for the object.
func (s *S3Store) Locate(ctx context.Context, key string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return url.String(), nil
}

// sanitizeFilename strips path separators so the original filename cannot
// alter the key structure.
func sanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == ".." || name == "" {
		return "file"
	}
	return name
}
