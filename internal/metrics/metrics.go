package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_uploads_total",
			Help: "Total number of upload requests by family and outcome",
		},
		[]string{"family", "status"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediagate_upload_bytes",
			Help:    "Size of stored output blobs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediagate_upload_duration_seconds",
			Help:    "End-to-end upload duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	TranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_transcodes_total",
			Help: "Total number of transcodes by family and outcome",
		},
		[]string{"family", "status"},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagate_transcode_duration_seconds",
			Help:    "Transcode duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"family"},
	)

	CompressionRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagate_compression_ratio_percent",
			Help:    "Achieved compression ratio; negative when output grew",
			Buckets: []float64{-100, -50, -10, 0, 10, 25, 50, 75, 90, 99},
		},
		[]string{"family"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_validation_failures_total",
			Help: "Total number of rejected files by family",
		},
		[]string{"family"},
	)

	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_engine_loads_total",
			Help: "Transcoding engine bootstrap attempts by outcome",
		},
		[]string{"status"},
	)

	EngineLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediagate_engine_load_duration_seconds",
			Help:    "Transcoding engine bootstrap duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_storage_operations_total",
			Help: "Total number of object-store operations",
		},
		[]string{"operation", "status"},
	)

	RetryCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagate_retry_cache_total",
			Help: "Transcode-result cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordUpload(family, status string, sizeBytes int64, durationSeconds float64) {
	UploadsTotal.WithLabelValues(family, status).Inc()
	if status == "success" {
		UploadBytes.Observe(float64(sizeBytes))
		UploadDuration.Observe(durationSeconds)
	}
}

func RecordTranscode(family, status string, durationSeconds float64) {
	TranscodesTotal.WithLabelValues(family, status).Inc()
	if status == "success" {
		TranscodeDuration.WithLabelValues(family).Observe(durationSeconds)
	}
}

func ObserveCompressionRatio(family string, ratioPct float64) {
	CompressionRatio.WithLabelValues(family).Observe(ratioPct)
}

func RecordValidationFailure(family string) {
	ValidationFailuresTotal.WithLabelValues(family).Inc()
}

func RecordEngineLoad(status string, durationSeconds float64) {
	EngineLoadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		EngineLoadDuration.Observe(durationSeconds)
	}
}

func RecordStorageOperation(operation, status string) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordRetryCache(outcome string) {
	RetryCacheHitsTotal.WithLabelValues(outcome).Inc()
}
