package media

// ConstraintProfile is the static acceptance policy for one media family.
// Loaded once at startup, read-only afterwards.
type ConstraintProfile struct {
	AcceptedTypes []string
	MaxBytes      int64

	// MaxDimension applies to images (both width and height).
	MaxDimension int

	// MaxDurationSeconds applies to videos.
	MaxDurationSeconds float64
}

func (p ConstraintProfile) Accepts(contentType string) bool {
	for _, t := range p.AcceptedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// ImageTarget holds the fixed encoding targets for the canonical raster
// output (WebP). Inputs are never upscaled.
type ImageTarget struct {
	Quality        int
	MaxDimension   int
	MaxOutputBytes int64
}

// VideoTarget holds the fixed encoding targets for the canonical video
// output (WebM). AudioBitrate is configured but the output is encoded with
// -an, matching the source system; see DESIGN.md.
type VideoTarget struct {
	Codec        string
	CRF          int
	VideoBitrate string
	MaxHeight    int
	FrameRate    int
	AudioBitrate string
}

// Constraints is the full constraint table: one profile per family plus the
// per-family encoding targets.
type Constraints struct {
	Image       ConstraintProfile
	Video       ConstraintProfile
	ImageTarget ImageTarget
	VideoTarget VideoTarget
}

func DefaultConstraints() Constraints {
	return Constraints{
		Image: ConstraintProfile{
			AcceptedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			MaxBytes:      10 * 1024 * 1024,
			MaxDimension:  4096,
		},
		Video: ConstraintProfile{
			AcceptedTypes:      []string{"video/mp4", "video/webm", "video/quicktime"},
			MaxBytes:           100 * 1024 * 1024,
			MaxDurationSeconds: 180,
		},
		ImageTarget: ImageTarget{
			Quality:        80,
			MaxDimension:   1920,
			MaxOutputBytes: 1 * 1024 * 1024,
		},
		VideoTarget: VideoTarget{
			Codec:        "libvpx",
			CRF:          32,
			VideoBitrate: "1M",
			MaxHeight:    540,
			FrameRate:    30,
			AudioBitrate: "128k",
		},
	}
}
