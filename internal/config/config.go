package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	Environment string
	LogLevel    string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string
	PublicBaseURL  string

	RedisURL string
	RetryTTL time.Duration

	FFmpegPath        string
	FFprobePath       string
	FFmpegDownloadURL string
	EngineCacheDir    string
	EngineWorkDir     string

	MaxImageSize       int64
	MaxVideoSize       int64
	MaxImageDimension  int
	MaxVideoDuration   int
	ImageQuality       int
	ImageMaxDimension  int
	ImageMaxOutputSize int64
	VideoCRF           int
	VideoMaxHeight     int
	VideoFrameRate     int

	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}

	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if cfg.MinIOAccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY is required")
	}

	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if cfg.MinIOSecretKey == "" {
		return nil, fmt.Errorf("MINIO_SECRET_KEY is required")
	}

	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "media")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")
	cfg.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")

	// Redis is optional; without it failed uploads pay the transcode again.
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RetryTTL, err = getEnvDuration("MEDIA_RETRY_TTL", "10m")
	if err != nil {
		return nil, fmt.Errorf("invalid MEDIA_RETRY_TTL: %w", err)
	}

	cfg.FFmpegPath = getEnvString("FFMPEG_PATH", "ffmpeg")
	cfg.FFprobePath = getEnvString("FFPROBE_PATH", "ffprobe")
	cfg.FFmpegDownloadURL = os.Getenv("FFMPEG_DOWNLOAD_URL")
	cfg.EngineCacheDir = getEnvString("ENGINE_CACHE_DIR", filepath.Join(os.TempDir(), "mediagate-engine"))
	cfg.EngineWorkDir = getEnvString("ENGINE_WORK_DIR", filepath.Join(os.TempDir(), "mediagate-work"))

	cfg.MaxImageSize = getEnvInt64("MAX_IMAGE_SIZE", 10*1024*1024)
	cfg.MaxVideoSize = getEnvInt64("MAX_VIDEO_SIZE", 100*1024*1024)
	cfg.MaxImageDimension = getEnvInt("MAX_IMAGE_DIMENSION", 4096)
	cfg.MaxVideoDuration = getEnvInt("MAX_VIDEO_DURATION", 180)
	cfg.ImageQuality = getEnvInt("IMAGE_QUALITY", 80)
	cfg.ImageMaxDimension = getEnvInt("IMAGE_MAX_DIMENSION", 1920)
	cfg.ImageMaxOutputSize = getEnvInt64("IMAGE_MAX_OUTPUT_SIZE", 1024*1024)
	cfg.VideoCRF = getEnvInt("VIDEO_CRF", 32)
	cfg.VideoMaxHeight = getEnvInt("VIDEO_MAX_HEIGHT", 540)
	cfg.VideoFrameRate = getEnvInt("VIDEO_FRAME_RATE", 30)

	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.OTLPEndpoint = getEnvString("OTLP_ENDPOINT", "localhost:4317")
	cfg.TracingSampleRate = getEnvFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MaxImageSize < 1 || c.MaxVideoSize < 1 {
		return fmt.Errorf("upload size limits must be positive")
	}

	if c.VideoCRF < 0 || c.VideoCRF > 63 {
		return fmt.Errorf("invalid video crf: %d", c.VideoCRF)
	}

	return nil
}
