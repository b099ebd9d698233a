// Package api exposes the upload pipeline over HTTP. Processing happens
// inline with the request; responses carry the stored object's URL.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwhyun/mediagate/internal/apperror"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/pipeline"
	"github.com/jwhyun/mediagate/internal/storage"
)

type Config struct {
	Service       *pipeline.Service
	Storage       storage.Storage
	MaxUploadSize int64
}

type Handler struct {
	service *pipeline.Service
	storage storage.Storage
	maxSize int64
}

func NewHandler(cfg *Config) *Handler {
	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = 100 * 1024 * 1024
	}
	return &Handler{service: cfg.Service, storage: cfg.Storage, maxSize: maxSize}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/upload", h.handleUpload)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

type uploadResponse struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls,omitempty"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, "invalid_request", "malformed multipart body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	callerID := r.Header.Get("X-Caller-ID")
	if callerID == "" {
		writeJSONError(w, "invalid_request", "X-Caller-ID header is required", http.StatusBadRequest)
		return
	}
	folder := r.FormValue("folder")

	parts := r.MultipartForm.File["file"]
	if len(parts) == 0 {
		writeJSONError(w, "invalid_request", "at least one file part is required", http.StatusBadRequest)
		return
	}

	files := make([]media.File, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			writeJSONError(w, "invalid_request", "unreadable file part", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			writeJSONError(w, "invalid_request", "unreadable file part", http.StatusBadRequest)
			return
		}
		files = append(files, media.File{
			Name:        part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	opts := pipeline.Options{Folder: folder}
	log := logger.FromContext(r.Context())

	if len(files) == 1 {
		url, err := h.service.Upload(r.Context(), files[0], callerID, opts)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, uploadResponse{URL: url})
		return
	}

	urls, err := h.service.UploadAll(r.Context(), files, callerID, opts)
	if err != nil {
		log.Warn("batch upload failed", "files", len(files), "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URLs: urls})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "storage": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeAppError(w http.ResponseWriter, err error) {
	body := map[string]any{
		"error": map[string]any{
			"code":    apperror.Code(err),
			"message": err.Error(),
		},
	}
	if violations := apperror.Violations(err); len(violations) > 0 {
		body["error"].(map[string]any)["violations"] = violations
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperror.StatusCode(err))
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// RequestID stamps every request with an id for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// RequestLogger logs one line per request after it finishes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.FromContext(r.Context()).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Recovery turns panics into 500s instead of dropped connections.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error("panic recovered", "panic", fmt.Sprint(rec))
				writeJSONError(w, "internal_error", "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
