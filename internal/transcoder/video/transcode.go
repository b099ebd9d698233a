package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/metrics"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

var _ transcoder.Transcoder = (*Transcoder)(nil)

// Transcoder converts validated videos to the canonical WebM output through
// the shared engine. Encode parameters are fixed targets, never negotiated
// per call.
type Transcoder struct {
	loader *Loader
	target media.VideoTarget
}

func NewTranscoder(loader *Loader, target media.VideoTarget) *Transcoder {
	return &Transcoder{loader: loader, target: target}
}

func (t *Transcoder) Name() string {
	return "video_webm"
}

func (t *Transcoder) Transcode(ctx context.Context, f media.File, report progress.Reporter) (*transcoder.Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	if report == nil {
		report = progress.Discard
	}

	eng, err := t.loader.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// Temp names carry a per-call suffix so concurrent encodes sharing the
	// one engine's working namespace cannot collide.
	callID := uuid.NewString()
	inputPath := filepath.Join(eng.WorkDir, "input-"+callID+fileExt(f.Name))
	outputPath := filepath.Join(eng.WorkDir, "output-"+callID+".webm")

	if err := os.WriteFile(inputPath, f.Data, 0o600); err != nil {
		return nil, &apperror.VideoProcessingError{Filename: f.Name, Internal: fmt.Errorf("write encode input: %w", err)}
	}
	// Cleanup must run on every path so the shared namespace never leaks
	// state between calls.
	defer func() {
		_ = os.Remove(inputPath)
		_ = os.Remove(outputPath)
	}()

	meta, err := probeFile(ctx, eng, inputPath)
	if err != nil {
		metrics.RecordTranscode("video", "error", time.Since(start).Seconds())
		return nil, &apperror.VideoProcessingError{Filename: f.Name, Internal: err}
	}

	args := t.buildArgs(meta, inputPath, outputPath)
	log.Debug("encode command", "file", f.Name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, eng.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &apperror.VideoProcessingError{Filename: f.Name, Internal: err}
	}
	if err := cmd.Start(); err != nil {
		metrics.RecordTranscode("video", "error", time.Since(start).Seconds())
		return nil, &apperror.VideoProcessingError{Filename: f.Name, Internal: fmt.Errorf("%w: %v", transcoder.ErrEncodeFailed, err)}
	}

	watchProgress(stdout, meta.Duration, report)

	if err := cmd.Wait(); err != nil {
		metrics.RecordTranscode("video", "error", time.Since(start).Seconds())
		return nil, &apperror.VideoProcessingError{
			Filename: f.Name,
			Internal: fmt.Errorf("%w: ffmpeg: %v: %s", transcoder.ErrEncodeFailed, err, firstLine(stderr.Bytes())),
		}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		metrics.RecordTranscode("video", "error", time.Since(start).Seconds())
		return nil, &apperror.VideoProcessingError{Filename: f.Name, Internal: fmt.Errorf("read encode output: %w", err)}
	}

	result := transcoder.NewResult(data, f.Size(), transcoder.FormatWebM)
	metrics.RecordTranscode("video", "success", time.Since(start).Seconds())
	metrics.ObserveCompressionRatio("video", result.CompressionRatio)
	log.Info("video transcoded",
		"file", f.Name,
		"original_bytes", result.OriginalSize,
		"processed_bytes", result.ProcessedSize,
		"ratio_pct", result.CompressionRatio,
		"duration_s", meta.Duration,
	)
	report.Report(100)
	return result, nil
}

// buildArgs assembles the fixed-target encode command. The source is scaled
// to the max height only when taller; never upscaled. Audio is dropped from
// the output even though a bitrate is configured (see DESIGN.md).
func (t *Transcoder) buildArgs(meta *Metadata, inputPath, outputPath string) []string {
	args := []string{
		"-i", inputPath,
		"-c:v", t.target.Codec,
		"-crf", strconv.Itoa(t.target.CRF),
		"-b:v", t.target.VideoBitrate,
	}

	if meta.Height > t.target.MaxHeight {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", t.target.MaxHeight))
	}

	args = append(args,
		"-r", strconv.Itoa(t.target.FrameRate),
		"-an",
		"-deadline", "realtime",
		"-cpu-used", "2",
		"-auto-alt-ref", "0",
		"-lag-in-frames", "0",
		"-progress", "pipe:1",
		"-nostats",
		"-y", outputPath,
	)
	return args
}

// watchProgress turns the engine's native progress events (out_time_us
// against the probed duration) into throttled 0-100 ticks. It returns when
// the pipe closes, which happens when the encode ends either way.
func watchProgress(pipe io.Reader, durationSeconds float64, report progress.Reporter) {
	throttle := progress.NewThrottler(5)
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		value, ok := strings.CutPrefix(line, "out_time_us=")
		if !ok {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || durationSeconds <= 0 {
			continue
		}
		pct := int(float64(us) / 1e6 / durationSeconds * 100)
		if pct > 99 {
			pct = 99
		}
		if throttle.Allow(pct) {
			report.Report(pct)
		}
	}
}
