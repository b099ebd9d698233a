package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

// Metadata is what ffprobe reports about a video file.
type Metadata struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	HasAudio   bool
	Container  string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Name     string `json:"format_name"`
	} `json:"format"`
}

// Prober reads intrinsic video properties through the shared engine. It
// implements media.DurationProber, so probing a video may trigger the
// engine's first bootstrap.
type Prober struct {
	loader *Loader
}

func NewProber(loader *Loader) *Prober {
	return &Prober{loader: loader}
}

func (p *Prober) Duration(ctx context.Context, f media.File) (float64, error) {
	meta, err := p.Probe(ctx, f)
	if err != nil {
		return 0, err
	}
	return meta.Duration, nil
}

func (p *Prober) Probe(ctx context.Context, f media.File) (*Metadata, error) {
	eng, err := p.loader.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(eng.WorkDir, "probe-"+uuid.NewString()+fileExt(f.Name))
	if err := os.WriteFile(path, f.Data, 0o600); err != nil {
		return nil, fmt.Errorf("write probe input: %w", err)
	}
	defer func() { _ = os.Remove(path) }()

	return probeFile(ctx, eng, path)
}

func probeFile(ctx context.Context, eng *Engine, path string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	out, err := exec.CommandContext(ctx, eng.FFprobePath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", transcoder.ErrCorruptedFile, err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", transcoder.ErrCorruptedFile, err)
	}

	meta := &Metadata{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			meta.Duration = d
		}
	}
	meta.Container = strings.Split(probe.Format.Name, ",")[0]

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			meta.VideoCodec = stream.CodecName
			meta.Width = stream.Width
			meta.Height = stream.Height
		case "audio":
			meta.AudioCodec = stream.CodecName
			meta.HasAudio = true
		}
	}

	if meta.VideoCodec == "" {
		return nil, fmt.Errorf("%w: no video stream found", transcoder.ErrCorruptedFile)
	}
	return meta, nil
}

func fileExt(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return ".bin"
}
