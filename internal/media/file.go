package media

import "strings"

// File is one caller-supplied media file. The pipeline never retains a
// reference to it past a single upload call.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Family is the coarse media category derived from the MIME prefix. It
// decides which constraint profile and transcoder apply.
type Family string

const (
	FamilyImage   Family = "image"
	FamilyVideo   Family = "video"
	FamilyUnknown Family = ""
)

func DetectFamily(contentType string) Family {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return FamilyImage
	case strings.HasPrefix(contentType, "video/"):
		return FamilyVideo
	default:
		return FamilyUnknown
	}
}

// IsAnimated reports whether the file is an animated raster format that must
// be preserved unmodified. Re-encoding pipelines collapse GIF animation to a
// single frame, so animation correctness wins over size reduction.
func (f File) IsAnimated() bool {
	return f.ContentType == "image/gif"
}
