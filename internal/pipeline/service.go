package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwhyun/mediagate/internal/cache"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/metrics"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/tracing"
	"github.com/jwhyun/mediagate/internal/uploader"
)

// Options tunes one upload call. Reporter may be a *progress.Stream; the
// caller keeps ownership of the stream's lifecycle.
type Options struct {
	Folder   string
	Reporter progress.Reporter

	// Parallel caps concurrent uploads in UploadAll. Zero means no cap.
	Parallel int
}

// Service is the single public entry point: process a file, then put the
// result. The uploader never runs before processing succeeds.
type Service struct {
	dispatcher *Dispatcher
	uploader   *uploader.Uploader
	results    cache.ResultCache
}

func NewService(dispatcher *Dispatcher, up *uploader.Uploader, results cache.ResultCache) *Service {
	if results == nil {
		results = cache.Noop{}
	}
	return &Service{dispatcher: dispatcher, uploader: up, results: results}
}

// Upload runs the full chain for one file and returns the stored object's
// URL. Progress reaches exactly 100 once, at the very end. A transcoded
// blob survives a failed upload in the result cache, so a retry inside the
// cache TTL skips straight to the upload stage.
func (s *Service) Upload(ctx context.Context, f media.File, callerID string, opts Options) (string, error) {
	report := opts.Reporter
	if report == nil {
		report = progress.Discard
	}
	ctx = logger.WithCallerID(ctx, callerID)
	ctx = logger.WithFile(ctx, f.Name)
	ctx, span := tracing.StartStage(ctx, "upload", tracing.FileAttributes(f.Name, f.ContentType, f.Size())...)
	defer span.End()

	start := time.Now()
	family := string(media.DetectFamily(f.ContentType))

	key := resultCacheKey(f)
	result, cached := s.results.Get(ctx, key)
	if cached {
		logger.FromContext(ctx).Info("reusing cached transcode result")
	} else {
		var err error
		result, err = s.dispatcher.Process(ctx, f, report)
		if err != nil {
			tracing.RecordError(ctx, err)
			metrics.RecordUpload(family, "error", 0, 0)
			return "", err
		}
		s.results.Set(ctx, key, result)
	}

	report.Report(progress.UploadBand.Lo)
	sctx, storeSpan := tracing.StartStage(ctx, "store")
	url, err := s.uploader.Put(sctx, result, callerID, opts.Folder)
	if err != nil {
		tracing.RecordError(sctx, err)
		storeSpan.End()
		metrics.RecordUpload(family, "error", 0, 0)
		return "", err
	}
	storeSpan.End()

	report.Report(100)
	metrics.RecordUpload(family, "success", result.ProcessedSize, time.Since(start).Seconds())
	return url, nil
}

// UploadAll fans Upload out over several files in parallel and folds each
// file's 0-100 into one overall signal, weighting all files equally. It
// fails on the first error; already-finished uploads keep their URLs in the
// returned slice.
func (s *Service) UploadAll(ctx context.Context, files []media.File, callerID string, opts Options) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	agg := newAggregator(opts.Reporter, len(files))
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, f := range files {
		g.Go(func() error {
			url, err := s.Upload(gctx, f, callerID, Options{
				Folder:   opts.Folder,
				Reporter: agg.slot(i),
			})
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return urls, err
	}
	return urls, nil
}

// aggregator maps n per-file progress signals into one overall 0-100.
type aggregator struct {
	mu     sync.Mutex
	report progress.Reporter
	slots  []int
}

func newAggregator(report progress.Reporter, n int) *aggregator {
	if report == nil {
		report = progress.Discard
	}
	return &aggregator{report: report, slots: make([]int, n)}
}

func (a *aggregator) slot(i int) progress.Reporter {
	return progress.Func(func(pct int) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if pct <= a.slots[i] {
			return
		}
		a.slots[i] = pct
		total := 0
		for _, p := range a.slots {
			total += p
		}
		a.report.Report(total / len(a.slots))
	})
}

// resultCacheKey identifies one transcode by its input content; same bytes
// and declared type always produce the same canonical output.
func resultCacheKey(f media.File) string {
	h := sha256.New()
	h.Write(f.Data)
	h.Write([]byte(f.ContentType))
	return "mediagate:result:" + hex.EncodeToString(h.Sum(nil))
}
