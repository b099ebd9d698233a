package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupportedFamily rejects files whose MIME type is neither image/* nor
// video/*, before any validation or transcoding runs.
var ErrUnsupportedFamily = errors.New("unsupported media family: only images and videos can be uploaded")

// ValidationError carries every violation found, in check order, so the
// caller sees all problems at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

type ImageProcessingError struct {
	Filename string
	Internal error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing failed for %q: %v", e.Filename, e.Internal)
}

func (e *ImageProcessingError) Unwrap() error { return e.Internal }

type VideoProcessingError struct {
	Filename string
	Internal error
}

func (e *VideoProcessingError) Error() string {
	return fmt.Sprintf("video processing failed for %q: %v", e.Filename, e.Internal)
}

func (e *VideoProcessingError) Unwrap() error { return e.Internal }

// EngineLoadError reports a failed transcoding-engine bootstrap. Transient is
// set at the point the underlying I/O call fails, never by inspecting error
// text, so operators can tell connectivity problems from engine faults.
type EngineLoadError struct {
	Transient bool
	Message   string
	Internal  error
}

func (e *EngineLoadError) Error() string {
	if e.Transient {
		return fmt.Sprintf("engine load failed (check your connection): %s", e.Message)
	}
	return fmt.Sprintf("engine load failed: %s", e.Message)
}

func (e *EngineLoadError) Unwrap() error { return e.Internal }

// UploadError surfaces after transcoding already succeeded.
type UploadError struct {
	Key      string
	Internal error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for key %q: %v", e.Key, e.Internal)
}

func (e *UploadError) Unwrap() error { return e.Internal }

// Code returns a stable machine-readable identifier for the error class.
func Code(err error) string {
	var (
		ve *ValidationError
		ie *ImageProcessingError
		xe *VideoProcessingError
		ee *EngineLoadError
		ue *UploadError
	)
	switch {
	case errors.Is(err, ErrUnsupportedFamily):
		return "unsupported_family"
	case errors.As(err, &ve):
		return "validation_failed"
	case errors.As(err, &ie):
		return "image_processing_failed"
	case errors.As(err, &xe):
		return "video_processing_failed"
	case errors.As(err, &ee):
		if ee.Transient {
			return "engine_load_transient"
		}
		return "engine_load_failed"
	case errors.As(err, &ue):
		return "upload_failed"
	default:
		return "internal_error"
	}
}

// StatusCode maps the taxonomy onto HTTP statuses for the API surface.
func StatusCode(err error) int {
	switch Code(err) {
	case "unsupported_family", "validation_failed":
		return http.StatusUnprocessableEntity
	case "engine_load_transient":
		return http.StatusServiceUnavailable
	case "image_processing_failed", "video_processing_failed", "engine_load_failed", "upload_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Violations extracts the violation list when err is a validation failure.
func Violations(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}
