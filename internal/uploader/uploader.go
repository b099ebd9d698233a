// Package uploader pushes finished blobs to the object store and hands back
// a retrievable URL. It never runs before processing succeeded.
package uploader

import (
	"bytes"
	"context"
	"time"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/storage"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

// Outputs are immutable content once written; a retry always mints a new key
// via a new timestamp, so clients may cache for a long time.
const cacheControl = "public, max-age=604800, immutable"

type Uploader struct {
	store storage.Storage
	now   func() time.Time
}

func New(store storage.Storage) *Uploader {
	return &Uploader{store: store, now: time.Now}
}

// Put stores the processing result under a fresh key and returns the
// object's public URL. Signing for private buckets stays with the caller.
func (u *Uploader) Put(ctx context.Context, result *transcoder.Result, callerID, folder string) (string, error) {
	target := Target{
		Folder:    folder,
		CallerID:  callerID,
		Timestamp: u.now(),
		Format:    result.Format,
	}
	key := target.Key()

	log := logger.FromContext(ctx)
	err := u.store.Put(ctx, key, bytes.NewReader(result.Data), result.ProcessedSize, result.Format.ContentType(), cacheControl)
	if err != nil {
		log.Error("upload failed", "key", key, "error", err)
		return "", &apperror.UploadError{Key: key, Internal: err}
	}

	url := u.store.PublicURL(key)
	log.Info("upload completed", "key", key, "size", result.ProcessedSize, "url", url)
	return url, nil
}
