package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/jwhyun/mediagate/internal/cache"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/pipeline"
	"github.com/jwhyun/mediagate/internal/storage"
	imgtranscoder "github.com/jwhyun/mediagate/internal/transcoder/image"
	"github.com/jwhyun/mediagate/internal/transcoder/video"
	"github.com/jwhyun/mediagate/internal/uploader"
)

type stubProber struct{ duration float64 }

func (p stubProber) Duration(ctx context.Context, f media.File) (float64, error) {
	return p.duration, nil
}

func newTestMux(t *testing.T, store *storage.MemoryStorage) *http.ServeMux {
	t.Helper()
	constraints := media.DefaultConstraints()
	loader := video.NewLoader(video.DefaultConfig())
	dispatcher := pipeline.NewDispatcher(
		media.NewValidator(constraints, stubProber{duration: 10}),
		imgtranscoder.NewWebPTranscoder(constraints.ImageTarget),
		video.NewTranscoder(loader, constraints.VideoTarget),
	)
	svc := pipeline.NewService(dispatcher, uploader.New(store), cache.Noop{})

	mux := http.NewServeMux()
	NewHandler(&Config{Service: svc, Storage: store}).Register(mux)
	return mux
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 6), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	store := storage.NewMemoryStorage()
	mux := newTestMux(t, store)

	body, contentType := multipartBody(t,
		map[string]string{"folder": "posts"},
		map[string][]byte{"pic.png": testPNG(t)},
		"image/png",
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Caller-ID", "user-9")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.URL, "posts/user-9/") {
		t.Errorf("url = %q, want folder/caller prefix in key", resp.URL)
	}
	if len(store.Keys()) != 1 {
		t.Errorf("stored %d objects, want 1", len(store.Keys()))
	}
}

func TestHandleUploadRequiresCaller(t *testing.T) {
	mux := newTestMux(t, storage.NewMemoryStorage())

	body, contentType := multipartBody(t, nil, map[string][]byte{"pic.png": testPNG(t)}, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUploadUnsupportedFamily(t *testing.T) {
	mux := newTestMux(t, storage.NewMemoryStorage())

	body, contentType := multipartBody(t, nil, map[string][]byte{"notes.txt": []byte("hello")}, "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Caller-ID", "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != "unsupported_family" {
		t.Errorf("error code = %q, want unsupported_family", resp.Error.Code)
	}
}

func TestHandleUploadValidationErrorCarriesViolations(t *testing.T) {
	mux := newTestMux(t, storage.NewMemoryStorage())

	body, contentType := multipartBody(t, nil, map[string][]byte{"junk.png": []byte("not an image")}, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Caller-ID", "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Error struct {
			Code       string   `json:"code"`
			Violations []string `json:"violations"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != "validation_failed" {
		t.Errorf("error code = %q, want validation_failed", resp.Error.Code)
	}
	if len(resp.Error.Violations) == 0 {
		t.Error("response should list the violations")
	}
}

func TestHandleUploadBatch(t *testing.T) {
	store := storage.NewMemoryStorage()
	mux := newTestMux(t, store)

	body, contentType := multipartBody(t, nil, map[string][]byte{
		"a.png": testPNG(t),
		"b.png": testPNG(t),
	}, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Caller-ID", "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		URLs []string `json:"urls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.URLs) != 2 {
		t.Errorf("got %d urls, want 2", len(resp.URLs))
	}
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t, storage.NewMemoryStorage())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
