// Package pipeline sequences validation, transcoding and upload for one
// media file, and maps the stages' progress onto a single 0-100 signal.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/metrics"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/tracing"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

// Dispatcher routes a file to its family's validator and transcoder. It is
// the only component that talks to both.
type Dispatcher struct {
	validator *media.Validator
	image     transcoder.Transcoder
	video     transcoder.Transcoder
}

func NewDispatcher(validator *media.Validator, image, video transcoder.Transcoder) *Dispatcher {
	return &Dispatcher{validator: validator, image: image, video: video}
}

// Process validates and transcodes one file. Unsupported families fail
// before any validation runs; invalid files fail before any transcoding.
// Transcoder progress lands in the 0-80 band, leaving 80-100 for upload.
func (d *Dispatcher) Process(ctx context.Context, f media.File, report progress.Reporter) (*transcoder.Result, error) {
	if report == nil {
		report = progress.Discard
	}

	family := media.DetectFamily(f.ContentType)
	if family == media.FamilyUnknown {
		return nil, apperror.ErrUnsupportedFamily
	}

	ctx, span := tracing.StartStage(ctx, "process",
		append(tracing.FileAttributes(f.Name, f.ContentType, f.Size()),
			attribute.String("media.family", string(family)))...)
	defer span.End()

	ctx = logger.WithFile(ctx, f.Name)
	log := logger.FromContext(ctx)
	scoped := progress.Scoped(report, progress.ProcessingBand)

	switch family {
	case media.FamilyImage:
		verdict := d.validator.ValidateImage(ctx, f)
		if !verdict.Valid {
			metrics.RecordValidationFailure("image")
			log.Info("image rejected", "violations", verdict.Violations)
			return nil, &apperror.ValidationError{Violations: verdict.Violations}
		}
		return d.image.Transcode(ctx, f, scoped)

	default:
		verdict, err := d.validator.ValidateVideo(ctx, f)
		if err != nil {
			tracing.RecordError(ctx, err)
			return nil, err
		}
		if !verdict.Valid {
			metrics.RecordValidationFailure("video")
			log.Info("video rejected", "violations", verdict.Violations)
			return nil, &apperror.ValidationError{Violations: verdict.Violations}
		}
		return d.video.Transcode(ctx, f, scoped)
	}
}
