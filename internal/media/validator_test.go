package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/jwhyun/mediagate/internal/apperror"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(255 * x / width), G: uint8(255 * y / height), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fakeProber struct {
	duration float64
	err      error
}

func (p fakeProber) Duration(ctx context.Context, f File) (float64, error) {
	return p.duration, p.err
}

func testConstraints() Constraints {
	c := DefaultConstraints()
	c.Image.MaxBytes = 64 * 1024
	c.Image.MaxDimension = 256
	c.Video.MaxBytes = 128 * 1024
	c.Video.MaxDurationSeconds = 60
	return c
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name      string
		file      File
		wantValid bool
		wantParts []string
	}{
		{
			name:      "valid png",
			file:      File{Name: "ok.png", ContentType: "image/png", Data: testPNG(t, 100, 100)},
			wantValid: true,
		},
		{
			name:      "unsupported type",
			file:      File{Name: "doc.tiff", ContentType: "image/tiff", Data: testPNG(t, 10, 10)},
			wantParts: []string{"unsupported type: image/tiff"},
		},
		{
			name:      "oversized dimensions",
			file:      File{Name: "big.png", ContentType: "image/png", Data: testPNG(t, 500, 500)},
			wantParts: []string{"dimensions"},
		},
		{
			name:      "corrupted",
			file:      File{Name: "junk.png", ContentType: "image/png", Data: []byte("not an image at all")},
			wantParts: []string{"corrupted or unreadable"},
		},
		{
			name: "all checks reported at once",
			file: File{Name: "bad.tiff", ContentType: "image/tiff", Data: bytes.Repeat([]byte{0xFF}, 70*1024)},
			wantParts: []string{
				"unsupported type: image/tiff",
				"maximum size",
				"corrupted or unreadable",
			},
		},
	}

	v := NewValidator(testConstraints(), fakeProber{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.ValidateImage(context.Background(), tt.file)
			if verdict.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (violations: %v)", verdict.Valid, tt.wantValid, verdict.Violations)
			}
			if len(verdict.Violations) != len(tt.wantParts) {
				t.Fatalf("got %d violations %v, want %d", len(verdict.Violations), verdict.Violations, len(tt.wantParts))
			}
			for i, part := range tt.wantParts {
				if !strings.Contains(verdict.Violations[i], part) {
					t.Errorf("violation %d = %q, want it to contain %q", i, verdict.Violations[i], part)
				}
			}
		})
	}
}

func TestValidateImageIdempotent(t *testing.T) {
	v := NewValidator(testConstraints(), fakeProber{})
	f := File{Name: "bad.tiff", ContentType: "image/tiff", Data: []byte("junk")}

	first := v.ValidateImage(context.Background(), f)
	second := v.ValidateImage(context.Background(), f)

	if len(first.Violations) != len(second.Violations) {
		t.Fatalf("violation count changed between runs: %v vs %v", first.Violations, second.Violations)
	}
	for i := range first.Violations {
		if first.Violations[i] != second.Violations[i] {
			t.Errorf("violation %d changed: %q vs %q", i, first.Violations[i], second.Violations[i])
		}
	}
}

func TestValidateVideo(t *testing.T) {
	tests := []struct {
		name      string
		file      File
		prober    fakeProber
		wantValid bool
		wantParts []string
	}{
		{
			name:      "valid mp4",
			file:      File{Name: "ok.mp4", ContentType: "video/mp4", Data: []byte("fake-video")},
			prober:    fakeProber{duration: 45},
			wantValid: true,
		},
		{
			name:      "unsupported type",
			file:      File{Name: "a.avi", ContentType: "video/x-msvideo", Data: []byte("x")},
			prober:    fakeProber{duration: 10},
			wantParts: []string{"unsupported type: video/x-msvideo"},
		},
		{
			name:      "too long",
			file:      File{Name: "long.mp4", ContentType: "video/mp4", Data: []byte("x")},
			prober:    fakeProber{duration: 200},
			wantParts: []string{"duration must be 60 seconds or less"},
		},
		{
			name:      "unreadable",
			file:      File{Name: "junk.mp4", ContentType: "video/mp4", Data: []byte("x")},
			prober:    fakeProber{err: errors.New("no video stream")},
			wantParts: []string{"corrupted or unreadable"},
		},
		{
			name:      "size and duration together",
			file:      File{Name: "big.mp4", ContentType: "video/mp4", Data: bytes.Repeat([]byte{1}, 200*1024)},
			prober:    fakeProber{duration: 200},
			wantParts: []string{"maximum size", "duration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(testConstraints(), tt.prober)
			verdict, err := v.ValidateVideo(context.Background(), tt.file)
			if err != nil {
				t.Fatalf("ValidateVideo() error = %v", err)
			}
			if verdict.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (violations: %v)", verdict.Valid, tt.wantValid, verdict.Violations)
			}
			if len(verdict.Violations) != len(tt.wantParts) {
				t.Fatalf("got violations %v, want %d entries", verdict.Violations, len(tt.wantParts))
			}
			for i, part := range tt.wantParts {
				if !strings.Contains(verdict.Violations[i], part) {
					t.Errorf("violation %d = %q, want it to contain %q", i, verdict.Violations[i], part)
				}
			}
		})
	}
}

func TestValidateVideoEngineErrorPropagates(t *testing.T) {
	loadErr := &apperror.EngineLoadError{Transient: true, Message: "download failed"}
	v := NewValidator(testConstraints(), fakeProber{err: loadErr})

	_, err := v.ValidateVideo(context.Background(), File{
		Name: "a.mp4", ContentType: "video/mp4", Data: []byte("x"),
	})

	var got *apperror.EngineLoadError
	if !errors.As(err, &got) {
		t.Fatalf("error = %v, want EngineLoadError", err)
	}
	if !got.Transient {
		t.Error("Transient flag lost on the way up")
	}
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		contentType string
		want        Family
	}{
		{"image/png", FamilyImage},
		{"image/webp", FamilyImage},
		{"video/mp4", FamilyVideo},
		{"video/quicktime", FamilyVideo},
		{"application/pdf", FamilyUnknown},
		{"audio/mpeg", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		if got := DetectFamily(tt.contentType); got != tt.want {
			t.Errorf("DetectFamily(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestIsAnimated(t *testing.T) {
	if !(File{ContentType: "image/gif"}).IsAnimated() {
		t.Error("gif should be treated as animated")
	}
	if (File{ContentType: "image/png"}).IsAnimated() {
		t.Error("png should not be treated as animated")
	}
}
