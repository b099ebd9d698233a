package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("storage: object not found")
	ErrAlreadyExists = errors.New("storage: object already exists")
	ErrInvalidKey    = errors.New("storage: invalid key")
)

// Storage is the object store the pipeline writes finished blobs to. Put
// must refuse to overwrite an existing object: output keys are immutable
// content, a new upload always gets a new key.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, cacheControl string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
	GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error)
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string

	// PublicBaseURL overrides the endpoint-derived base for public object
	// URLs, e.g. when a CDN fronts the bucket.
	PublicBaseURL string
}
