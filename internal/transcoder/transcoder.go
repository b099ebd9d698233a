package transcoder

import (
	"context"
	"errors"

	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/progress"
)

var (
	ErrUnsupportedType = errors.New("transcoder: unsupported file type")
	ErrCorruptedFile   = errors.New("transcoder: file appears corrupted")
	ErrEncodeFailed    = errors.New("transcoder: encoding failed")
)

// Format is the canonical output format tag. Each input family maps to
// exactly one canonical format; gif marks the animated passthrough.
type Format string

const (
	FormatWebP Format = "webp"
	FormatWebM Format = "webm"
	FormatGIF  Format = "gif"
)

func (f Format) Extension() string {
	switch f {
	case FormatWebP:
		return ".webp"
	case FormatWebM:
		return ".webm"
	default:
		return ".gif"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatWebM:
		return "video/webm"
	default:
		return "image/gif"
	}
}

// Result is the storage-ready output of one transcode.
type Result struct {
	Data             []byte
	OriginalSize     int64
	ProcessedSize    int64
	CompressionRatio float64
	Format           Format
}

// NewResult computes the compression ratio as a percentage of the original
// size. The ratio goes negative when transcoding grew the file (tiny,
// already-optimized inputs); that is allowed, not an error.
func NewResult(data []byte, originalSize int64, format Format) *Result {
	processed := int64(len(data))
	var ratio float64
	if originalSize > 0 {
		ratio = float64(originalSize-processed) / float64(originalSize) * 100
	}
	return &Result{
		Data:             data,
		OriginalSize:     originalSize,
		ProcessedSize:    processed,
		CompressionRatio: ratio,
		Format:           format,
	}
}

// Transcoder converts one validated file into its family's canonical format,
// reporting stage-local 0-100 progress along the way.
type Transcoder interface {
	Transcode(ctx context.Context, f media.File, report progress.Reporter) (*Result, error)
	Name() string
}
