package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/metrics"
)

var _ Storage = (*MinIOStorage)(nil)

type MinIOStorage struct {
	client *minio.Client
	bucket string
	config *Config
}

func NewMinIOStorage(cfg *Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	log := logger.FromContext(ctx)

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		log.Info("creating bucket", "bucket", s.bucket, "region", s.config.Region)
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{
			Region: s.config.Region,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put stores one finished blob. The exists check makes the put
// non-overwriting: a same-key collision fails instead of clobbering.
func (s *MinIOStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, cacheControl string) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		metrics.RecordStorageOperation("put", "error")
		return fmt.Errorf("check %s before put: %w", key, err)
	}
	if exists {
		metrics.RecordStorageOperation("put", "conflict")
		return fmt.Errorf("put %s: %w", key, ErrAlreadyExists)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		metrics.RecordStorageOperation("put", "error")
		log.Error("storage put failed", "key", key, "size", size, "error", err)
		return fmt.Errorf("put %s: %w", key, err)
	}

	metrics.RecordStorageOperation("put", "success")
	log.Debug("storage put completed", "key", key, "size", size, "content_type", contentType, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *MinIOStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		metrics.RecordStorageOperation("get", "error")
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNotFoundError(err) {
			metrics.RecordStorageOperation("get", "not_found")
			return nil, ErrNotFound
		}
		metrics.RecordStorageOperation("get", "error")
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}

	metrics.RecordStorageOperation("get", "success")
	return obj, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		metrics.RecordStorageOperation("delete", "error")
		return fmt.Errorf("delete %s: %w", key, err)
	}
	metrics.RecordStorageOperation("delete", "success")
	return nil
}

func (s *MinIOStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	return true, nil
}

// PublicURL builds the retrievable URL for an object. Signing it for a
// private bucket is the caller's responsibility.
func (s *MinIOStorage) PublicURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + key
	}
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.bucket, key)
}

func (s *MinIOStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, time.Duration(expirySeconds)*time.Second, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url.String(), nil
}

func (s *MinIOStorage) HealthCheck(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey"
}
