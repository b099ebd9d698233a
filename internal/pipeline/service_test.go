package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/storage"
	"github.com/jwhyun/mediagate/internal/transcoder"
	"github.com/jwhyun/mediagate/internal/uploader"
)

type memoryResultCache struct {
	mu      sync.Mutex
	entries map[string]*transcoder.Result
}

func newMemoryResultCache() *memoryResultCache {
	return &memoryResultCache{entries: make(map[string]*transcoder.Result)}
}

func (c *memoryResultCache) Get(ctx context.Context, key string) (*transcoder.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *memoryResultCache) Set(ctx context.Context, key string, result *transcoder.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
}

func newTestService(t *testing.T, store *storage.MemoryStorage) (*Service, *fakeTranscoder) {
	t.Helper()
	d, img, _ := newTestDispatcher(fakeProber{duration: 10})
	return NewService(d, uploader.New(store), newMemoryResultCache()), img
}

func validImage(t *testing.T) media.File {
	t.Helper()
	return media.File{Name: "ok.png", ContentType: "image/png", Data: testPNG(t, 50, 50)}
}

func TestUpload(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newTestService(t, store)

	var ticks []int
	url, err := svc.Upload(context.Background(), validImage(t), "user-1", Options{
		Folder:   "posts",
		Reporter: progress.Func(func(pct int) { ticks = append(ticks, pct) }),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.HasPrefix(url, "https://cdn.test/posts/user-1/") {
		t.Errorf("url = %q, want the stored object's public URL", url)
	}
	if len(store.Keys()) != 1 {
		t.Fatalf("stored %d objects, want 1", len(store.Keys()))
	}

	// 80 marks the start of the upload stage; 100 fires exactly once at the
	// very end.
	if len(ticks) == 0 || ticks[len(ticks)-1] != 100 {
		t.Fatalf("ticks = %v, want trailing 100", ticks)
	}
	saw80 := false
	hundreds := 0
	last := -1
	for _, pct := range ticks {
		if pct < last {
			t.Errorf("progress regressed: %v", ticks)
		}
		last = pct
		if pct == 80 {
			saw80 = true
		}
		if pct == 100 {
			hundreds++
		}
	}
	if !saw80 {
		t.Errorf("ticks = %v, want an 80 tick before upload", ticks)
	}
	if hundreds != 1 {
		t.Errorf("got %d terminal ticks, want 1", hundreds)
	}
}

func TestUploadRetrySkipsTranscode(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, img := newTestService(t, store)

	putErr := errors.New("bucket on fire")
	store.PutErr = putErr

	f := validImage(t)
	if _, err := svc.Upload(context.Background(), f, "u1", Options{}); !errors.Is(err, putErr) {
		t.Fatalf("first Upload() error = %v, want the storage error", err)
	}
	if img.calls != 1 {
		t.Fatalf("transcoder ran %d times, want 1", img.calls)
	}

	// Same content retried after storage recovers: the cached result is
	// reused, the transcoder does not run again.
	store.PutErr = nil
	url, err := svc.Upload(context.Background(), f, "u1", Options{})
	if err != nil {
		t.Fatalf("retry Upload() error = %v", err)
	}
	if url == "" {
		t.Error("retry should return the stored URL")
	}
	if img.calls != 1 {
		t.Errorf("transcoder ran %d times across retry, want 1", img.calls)
	}
}

func TestUploadUnsupportedFamilyFailsFast(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, img := newTestService(t, store)

	_, err := svc.Upload(context.Background(), media.File{
		Name:        "song.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte("x"),
	}, "u1", Options{})
	if err == nil {
		t.Fatal("expected error for audio input")
	}
	if img.calls != 0 {
		t.Error("transcoder must not run")
	}
	if len(store.Keys()) != 0 {
		t.Error("nothing may be uploaded")
	}
}

func TestUploadAll(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newTestService(t, store)

	files := []media.File{
		{Name: "a.png", ContentType: "image/png", Data: testPNG(t, 40, 40)},
		{Name: "b.png", ContentType: "image/png", Data: testPNG(t, 60, 60)},
		{Name: "c.png", ContentType: "image/png", Data: testPNG(t, 80, 80)},
	}

	var mu sync.Mutex
	var ticks []int
	urls, err := svc.UploadAll(context.Background(), files, "batch-user", Options{
		Reporter: progress.Func(func(pct int) {
			mu.Lock()
			ticks = append(ticks, pct)
			mu.Unlock()
		}),
		Parallel: 2,
	})
	if err != nil {
		t.Fatalf("UploadAll() error = %v", err)
	}

	if len(urls) != len(files) {
		t.Fatalf("got %d urls, want %d", len(urls), len(files))
	}
	for i, url := range urls {
		if url == "" {
			t.Errorf("url %d is empty", i)
		}
	}
	if len(store.Keys()) != len(files) {
		t.Errorf("stored %d objects, want %d", len(store.Keys()), len(files))
	}

	last := -1
	for _, pct := range ticks {
		if pct < last {
			t.Fatalf("overall progress regressed: %v", ticks)
		}
		last = pct
	}
	if last != 100 {
		t.Errorf("final overall progress = %d, want 100", last)
	}
}

func TestUploadAllEmpty(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newTestService(t, store)

	urls, err := svc.UploadAll(context.Background(), nil, "u1", Options{})
	if err != nil {
		t.Fatalf("UploadAll() error = %v", err)
	}
	if urls != nil {
		t.Errorf("urls = %v, want nil", urls)
	}
}

func TestUploadAllPropagatesFirstError(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newTestService(t, store)

	files := []media.File{
		{Name: "ok.png", ContentType: "image/png", Data: testPNG(t, 40, 40)},
		{Name: "bad.png", ContentType: "image/png", Data: []byte("junk")},
	}

	_, err := svc.UploadAll(context.Background(), files, "u1", Options{})
	if err == nil {
		t.Fatal("expected error from the invalid file")
	}
}

func TestResultCacheKeyDependsOnContent(t *testing.T) {
	a := media.File{ContentType: "image/png", Data: []byte("aaa")}
	b := media.File{ContentType: "image/png", Data: []byte("bbb")}
	c := media.File{ContentType: "image/jpeg", Data: []byte("aaa")}

	if resultCacheKey(a) == resultCacheKey(b) {
		t.Error("different content must produce different keys")
	}
	if resultCacheKey(a) == resultCacheKey(c) {
		t.Error("different declared types must produce different keys")
	}
	if resultCacheKey(a) != resultCacheKey(media.File{ContentType: "image/png", Data: []byte("aaa")}) {
		t.Error("identical inputs must produce the same key")
	}
	if !strings.HasPrefix(resultCacheKey(a), "mediagate:result:") {
		t.Error("cache keys must be namespaced")
	}
}
