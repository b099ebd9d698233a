package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jwhyun/mediagate/internal/api"
	"github.com/jwhyun/mediagate/internal/cache"
	"github.com/jwhyun/mediagate/internal/config"
	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/pipeline"
	"github.com/jwhyun/mediagate/internal/storage"
	"github.com/jwhyun/mediagate/internal/tracing"
	imgtranscoder "github.com/jwhyun/mediagate/internal/transcoder/image"
	"github.com/jwhyun/mediagate/internal/transcoder/video"
	"github.com/jwhyun/mediagate/internal/uploader"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()

	log.Info("configuration loaded")

	ctx := context.Background()

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
			ServiceName:    "mediagate",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			Enabled:        true,
			SampleRate:     cfg.TracingSampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer func() { _ = shutdownTracing(ctx) }()
		log.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint)
	}

	log.Info("connecting to object storage")
	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		Bucket:        cfg.MinIOBucket,
		UseSSL:        cfg.MinIOUseSSL,
		Region:        cfg.MinIORegion,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}
	log.Info("object storage connected", "bucket", cfg.MinIOBucket)

	var results cache.ResultCache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisOpt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(redisOpt)
		defer func() { _ = redisClient.Close() }()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		results = cache.NewRedisCache(redisClient, cfg.RetryTTL)
		log.Info("retry cache enabled", "ttl", cfg.RetryTTL)
	}

	constraints := constraintsFromConfig(cfg)

	loader := video.NewLoader(video.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		DownloadURL: cfg.FFmpegDownloadURL,
		CacheDir:    cfg.EngineCacheDir,
		WorkDir:     cfg.EngineWorkDir,
	})
	prober := video.NewProber(loader)

	validator := media.NewValidator(constraints, prober)
	dispatcher := pipeline.NewDispatcher(validator,
		imgtranscoder.NewWebPTranscoder(constraints.ImageTarget),
		video.NewTranscoder(loader, constraints.VideoTarget),
	)
	service := pipeline.NewService(dispatcher, uploader.New(store), results)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(&api.Config{
		Service:       service,
		Storage:       store,
		MaxUploadSize: cfg.MaxVideoSize,
	})
	handler.Register(mux)

	var root http.Handler = api.Recovery(api.RequestID(api.RequestLogger(mux)))
	if cfg.TracingEnabled {
		root = otelhttp.NewHandler(root, "mediagate")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      root,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	log.Info("server stopped")
	return nil
}

func constraintsFromConfig(cfg *config.Config) media.Constraints {
	c := media.DefaultConstraints()
	c.Image.MaxBytes = cfg.MaxImageSize
	c.Image.MaxDimension = cfg.MaxImageDimension
	c.Video.MaxBytes = cfg.MaxVideoSize
	c.Video.MaxDurationSeconds = float64(cfg.MaxVideoDuration)
	c.ImageTarget.Quality = cfg.ImageQuality
	c.ImageTarget.MaxDimension = cfg.ImageMaxDimension
	c.ImageTarget.MaxOutputBytes = cfg.ImageMaxOutputSize
	c.VideoTarget.CRF = cfg.VideoCRF
	c.VideoTarget.MaxHeight = cfg.VideoMaxHeight
	c.VideoTarget.FrameRate = cfg.VideoFrameRate
	return c
}
