package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/metrics"
)

// Engine is the process-wide video transcoding engine: resolved encoder
// binaries plus a working namespace for per-call temp files. It is expensive
// to bootstrap and therefore shared; once Ready it is never torn down before
// process exit.
type Engine struct {
	FFmpegPath  string
	FFprobePath string
	WorkDir     string
}

type Config struct {
	FFmpegPath  string
	FFprobePath string

	// DownloadURL optionally points at a pinned static ffmpeg build to fetch
	// when the binary is not already on PATH.
	DownloadURL string
	CacheDir    string

	WorkDir    string
	HTTPClient *http.Client
}

func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		CacheDir:    filepath.Join(os.TempDir(), "mediagate-engine"),
		WorkDir:     filepath.Join(os.TempDir(), "mediagate-work"),
	}
}

type loadState int

const (
	stateUninitialized loadState = iota
	stateLoading
	stateReady
)

// attempt is one in-flight bootstrap. Waiters block on done and then read
// exactly this attempt's outcome, so a failure is delivered to everyone who
// joined it while later calls start a fresh attempt.
type attempt struct {
	done   chan struct{}
	engine *Engine
	err    error
}

// Loader guards the engine's Uninitialized/Loading/Ready state machine. At
// most one bootstrap runs process-wide at any time; a failed bootstrap
// reverts to Uninitialized so the next call retries from scratch.
type Loader struct {
	cfg       Config
	bootstrap func(ctx context.Context) (*Engine, error)

	mu       sync.Mutex
	state    loadState
	engine   *Engine
	inflight *attempt
}

func NewLoader(cfg Config) *Loader {
	l := &Loader{cfg: fillDefaults(cfg)}
	l.bootstrap = l.defaultBootstrap
	return l
}

// NewLoaderWithBootstrap swaps the bootstrap function; used by tests to
// observe how many load sequences actually execute.
func NewLoaderWithBootstrap(cfg Config, bootstrap func(ctx context.Context) (*Engine, error)) *Loader {
	return &Loader{cfg: fillDefaults(cfg), bootstrap: bootstrap}
}

// fillDefaults backfills unset fields so a zero Config still resolves
// binaries from PATH instead of running LookPath on an empty string.
func fillDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = def.WorkDir
	}
	return cfg
}

// Acquire returns the Ready engine, bootstrapping it on first use. Calls
// arriving during an in-flight bootstrap wait for it to resolve rather than
// starting a second one.
func (l *Loader) Acquire(ctx context.Context) (*Engine, error) {
	for {
		l.mu.Lock()
		switch l.state {
		case stateReady:
			eng := l.engine
			l.mu.Unlock()
			return eng, nil

		case stateLoading:
			at := l.inflight
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-at.done:
			}
			if at.err != nil {
				return nil, at.err
			}
			return at.engine, nil

		default:
			at := &attempt{done: make(chan struct{})}
			l.state = stateLoading
			l.inflight = at
			l.mu.Unlock()

			start := time.Now()
			eng, err := l.bootstrap(ctx)

			l.mu.Lock()
			if err != nil {
				l.state = stateUninitialized
				l.inflight = nil
				at.err = err
				metrics.RecordEngineLoad("failure", time.Since(start).Seconds())
			} else {
				l.state = stateReady
				l.engine = eng
				l.inflight = nil
				at.engine = eng
				metrics.RecordEngineLoad("success", time.Since(start).Seconds())
			}
			l.mu.Unlock()
			close(at.done)

			if err != nil {
				return nil, err
			}
			logger.FromContext(ctx).Info("transcoding engine ready",
				"ffmpeg", eng.FFmpegPath, "duration_ms", time.Since(start).Milliseconds())
			return eng, nil
		}
	}
}

func (l *Loader) defaultBootstrap(ctx context.Context) (*Engine, error) {
	cfg := l.cfg

	ffmpeg, err := exec.LookPath(cfg.FFmpegPath)
	if err != nil && cfg.DownloadURL != "" {
		ffmpeg, err = l.fetchBinary(ctx, cfg.DownloadURL, "ffmpeg")
	}
	if err != nil {
		if loadErr, ok := err.(*apperror.EngineLoadError); ok {
			return nil, loadErr
		}
		return nil, &apperror.EngineLoadError{
			Transient: false,
			Message:   fmt.Sprintf("%s not found in PATH and no download URL configured", cfg.FFmpegPath),
			Internal:  err,
		}
	}

	ffprobe, err := exec.LookPath(cfg.FFprobePath)
	if err != nil {
		// A fetched build ships ffprobe next to ffmpeg.
		candidate := filepath.Join(filepath.Dir(ffmpeg), "ffprobe")
		if _, statErr := os.Stat(candidate); statErr == nil {
			ffprobe = candidate
		} else {
			return nil, &apperror.EngineLoadError{
				Transient: false,
				Message:   fmt.Sprintf("%s not found", cfg.FFprobePath),
				Internal:  err,
			}
		}
	}

	if out, err := exec.CommandContext(ctx, ffmpeg, "-version").CombinedOutput(); err != nil {
		return nil, &apperror.EngineLoadError{
			Transient: false,
			Message:   fmt.Sprintf("encoder verification failed: %s", firstLine(out)),
			Internal:  err,
		}
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, &apperror.EngineLoadError{
			Transient: false,
			Message:   "cannot create engine work dir",
			Internal:  err,
		}
	}

	return &Engine{FFmpegPath: ffmpeg, FFprobePath: ffprobe, WorkDir: cfg.WorkDir}, nil
}

// fetchBinary downloads a pinned encoder build into the cache dir. Network
// failures are classified transient at this call site so the caller can tell
// connectivity problems from engine faults.
func (l *Loader) fetchBinary(ctx context.Context, url, name string) (string, error) {
	dest := filepath.Join(l.cfg.CacheDir, name)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(l.cfg.CacheDir, 0o755); err != nil {
		return "", &apperror.EngineLoadError{Transient: false, Message: "cannot create engine cache dir", Internal: err}
	}

	client := l.cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &apperror.EngineLoadError{Transient: false, Message: "invalid engine download URL", Internal: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &apperror.EngineLoadError{Transient: true, Message: "engine download failed", Internal: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &apperror.EngineLoadError{
			Transient: resp.StatusCode >= 500,
			Message:   fmt.Sprintf("engine download returned %s", resp.Status),
		}
	}

	tmp, err := os.CreateTemp(l.cfg.CacheDir, name+"-*")
	if err != nil {
		return "", &apperror.EngineLoadError{Transient: false, Message: "cannot write engine binary", Internal: err}
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", &apperror.EngineLoadError{Transient: true, Message: "engine download interrupted", Internal: err}
	}
	_ = tmp.Close()

	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		_ = os.Remove(tmp.Name())
		return "", &apperror.EngineLoadError{Transient: false, Message: "cannot mark engine binary executable", Internal: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", &apperror.EngineLoadError{Transient: false, Message: "cannot install engine binary", Internal: err}
	}
	return dest, nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
