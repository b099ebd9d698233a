package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
)

// Verdict is the outcome of validating one file. Violations follow check
// order (type, size, dimension/duration), so the first entry is always the
// cheapest check that failed.
type Verdict struct {
	Valid      bool
	Violations []string
}

const violationUnreadable = "file is corrupted or unreadable"

// DurationProber reads the duration of a video in seconds. The engine-backed
// implementation lives in the video transcoder package; injecting it here
// keeps the validator free of engine state.
type DurationProber interface {
	Duration(ctx context.Context, f File) (float64, error)
}

type Validator struct {
	constraints Constraints
	video       DurationProber
}

func NewValidator(c Constraints, video DurationProber) *Validator {
	return &Validator{constraints: c, video: video}
}

func (v *Validator) Constraints() Constraints {
	return v.constraints
}

// ValidateImage runs every image check and reports all violations at once.
func (v *Validator) ValidateImage(ctx context.Context, f File) Verdict {
	p := v.constraints.Image
	var violations []string

	if !p.Accepts(f.ContentType) {
		violations = append(violations, fmt.Sprintf("unsupported type: %s", f.ContentType))
	}
	if f.Size() > p.MaxBytes {
		violations = append(violations, fmt.Sprintf("file exceeds maximum size of %dMB", p.MaxBytes/(1024*1024)))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		logger.FromContext(ctx).Debug("image probe failed", "file", f.Name, "error", err)
		violations = append(violations, violationUnreadable)
	} else if cfg.Width > p.MaxDimension || cfg.Height > p.MaxDimension {
		violations = append(violations, fmt.Sprintf("image dimensions must be %dx%dpx or less", p.MaxDimension, p.MaxDimension))
	}

	return Verdict{Valid: len(violations) == 0, Violations: violations}
}

// ValidateVideo runs every video check. Probing the duration needs the
// transcoding engine; a failed engine bootstrap is infrastructure, not a
// property of the file, and is returned as an error instead of a violation.
func (v *Validator) ValidateVideo(ctx context.Context, f File) (Verdict, error) {
	p := v.constraints.Video
	var violations []string

	if !p.Accepts(f.ContentType) {
		violations = append(violations, fmt.Sprintf("unsupported type: %s", f.ContentType))
	}
	if f.Size() > p.MaxBytes {
		violations = append(violations, fmt.Sprintf("file exceeds maximum size of %dMB", p.MaxBytes/(1024*1024)))
	}

	duration, err := v.video.Duration(ctx, f)
	if err != nil {
		var loadErr *apperror.EngineLoadError
		if errors.As(err, &loadErr) {
			return Verdict{}, err
		}
		logger.FromContext(ctx).Debug("video probe failed", "file", f.Name, "error", err)
		violations = append(violations, violationUnreadable)
	} else if duration > p.MaxDurationSeconds {
		violations = append(violations, fmt.Sprintf("video duration must be %d seconds or less", int(p.MaxDurationSeconds)))
	}

	return Verdict{Valid: len(violations) == 0, Violations: violations}, nil
}
