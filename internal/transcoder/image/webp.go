package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // webp inputs over the size target are re-encoded

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/metrics"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

// minQuality bounds the re-encode loop that chases the target output size.
const minQuality = 30

var _ transcoder.Transcoder = (*WebPTranscoder)(nil)

// WebPTranscoder converts validated images to the canonical WebP output.
// It is stateless; every call is independent.
type WebPTranscoder struct {
	target media.ImageTarget
}

func NewWebPTranscoder(target media.ImageTarget) *WebPTranscoder {
	return &WebPTranscoder{target: target}
}

func (t *WebPTranscoder) Name() string {
	return "image_webp"
}

func (t *WebPTranscoder) Transcode(ctx context.Context, f media.File, report progress.Reporter) (*transcoder.Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	if report == nil {
		report = progress.Discard
	}

	// Animated GIFs keep their original bytes: re-encoding would collapse
	// the animation to a single frame.
	if f.IsAnimated() {
		log.Info("animated gif detected, keeping original", "file", f.Name)
		report.Report(100)
		return transcoder.NewResult(f.Data, f.Size(), transcoder.FormatGIF), nil
	}

	// Inputs that are already WebP and under the output target have nothing
	// to gain from a lossy re-encode.
	if f.ContentType == "image/webp" && f.Size() <= t.target.MaxOutputBytes {
		log.Debug("small webp input, skipping re-encode", "file", f.Name, "size", f.Size())
		report.Report(100)
		return transcoder.NewResult(f.Data, f.Size(), transcoder.FormatWebP), nil
	}

	// AutoOrientation applies the EXIF rotation before the re-encode strips
	// all capture metadata from the output.
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		metrics.RecordTranscode("image", "error", time.Since(start).Seconds())
		return nil, &apperror.ImageProcessingError{Filename: f.Name, Internal: fmt.Errorf("%w: %v", transcoder.ErrCorruptedFile, err)}
	}
	report.Report(10)

	bounds := img.Bounds()
	if bounds.Dx() > t.target.MaxDimension || bounds.Dy() > t.target.MaxDimension {
		img = imaging.Fit(img, t.target.MaxDimension, t.target.MaxDimension, imaging.Lanczos)
	}
	report.Report(40)

	data, quality, err := t.encode(img)
	if err != nil {
		metrics.RecordTranscode("image", "error", time.Since(start).Seconds())
		return nil, &apperror.ImageProcessingError{Filename: f.Name, Internal: err}
	}
	report.Report(90)

	result := transcoder.NewResult(data, f.Size(), transcoder.FormatWebP)
	metrics.RecordTranscode("image", "success", time.Since(start).Seconds())
	metrics.ObserveCompressionRatio("image", result.CompressionRatio)
	log.Info("image transcoded",
		"file", f.Name,
		"original_bytes", result.OriginalSize,
		"processed_bytes", result.ProcessedSize,
		"ratio_pct", result.CompressionRatio,
		"quality", quality,
	)
	report.Report(100)
	return result, nil
}

// encode re-encodes at descending quality until the output fits the target
// size or quality bottoms out. Returns the bytes and the quality used.
func (t *WebPTranscoder) encode(img image.Image) ([]byte, int, error) {
	quality := t.target.Quality
	for {
		var buf bytes.Buffer
		opts := &webp.Options{Quality: float32(quality)}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, quality, fmt.Errorf("%w: %v", transcoder.ErrEncodeFailed, err)
		}
		if int64(buf.Len()) <= t.target.MaxOutputBytes || quality <= minQuality {
			return buf.Bytes(), quality, nil
		}
		quality -= 10
	}
}
