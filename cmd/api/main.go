package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/snapframe/internal/api"
	"github.com/dunamismax/snapframe/internal/config"
	"github.com/dunamismax/snapframe/internal/logging"
	"github.com/dunamismax/snapframe/internal/queue"
	"github.com/dunamismax/snapframe/internal/ratelimit"
	"github.com/dunamismax/snapframe/internal/storage"
	"github.com/dunamismax/snapframe/internal/store"
	"github.com/dunamismax/snapframe/internal/telemetry"
	"github.com/dunamismax/snapframe/internal/visitor"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[api] load config: %v", err)
	}
	logger, logCloser := logging.New("api", cfg.Logging)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "snapframe-api", cfg.Tracing, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Visitors.Backend == config.VisitorBackendRedis || (cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis) {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	visitorStore, closeVisitorStore := openVisitorStore(ctx, cfg, redisClient, logger)
	defer closeVisitorStore.Close()
	counter := visitor.NewCounter(visitorStore, visitor.Options{
		MarkerTTL:    cfg.Visitors.MarkerTTL,
		StoreTimeout: cfg.Visitors.StoreTimeout,
		Logger:       logger,
	})

	frameStore, closeFrameStore := openFrameStore(ctx, cfg, logger)
	defer closeFrameStore.Close()

	opts := api.Options{
		Logger:      logger,
		Visitors:    counter,
		Frames:      frameStore,
		Tracer:      otel.Tracer("snapframe/api"),
		AllowOrigin: cfg.API.AllowOrigin,
		PresignTTL:  cfg.API.PresignTTL,
	}

	if cfg.Storage.Enabled {
		storageClient, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Storage.Endpoint,
			Access:   cfg.Storage.AccessKey,
			Secret:   cfg.Storage.SecretKey,
			Bucket:   cfg.Storage.Bucket,
			UseSSL:   cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatalf("storage client init failed: %v", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			logger.Fatalf("ensure bucket failed bucket=%s err=%v", cfg.Storage.Bucket, err)
		}
		opts.Storage = storageClient

		queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name, queue.ExportOptions{
			MaxRetry:  cfg.Queue.ExportMaxRetry,
			Timeout:   cfg.Queue.ExportTimeout,
			Retention: cfg.Queue.ExportRetention,
		})
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Printf("queue client close error: %v", err)
			}
		}()
		opts.Exporter = queueClient
	} else {
		logger.Printf("object storage disabled, photo uploads and exports are unavailable")
	}

	if cfg.RateLimit.Enabled {
		limiter, err := newRateLimiter(cfg.RateLimit, redisClient)
		if err != nil {
			logger.Fatalf("rate limiter init failed: %v", err)
		}
		opts.RateLimiter = limiter
	}

	app, err := api.NewServer(opts)
	if err != nil {
		logger.Fatalf("api init failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.API.RequestTimeout,
		WriteTimeout: cfg.API.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s visitor_store=%s", cfg.API.Addr, cfg.Visitors.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownGrace)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown failed: %v", err)
	}
}

// openVisitorStore builds the configured backend. Missing settings leave the
// counter unconfigured so /api/visitors answers with a configuration error
// instead of the process exiting. A store that is configured but not
// reachable yet is still returned; its calls fail as store_unavailable until
// it comes back.
func openVisitorStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, logger *log.Logger) (store.VisitorStore, io.Closer) {
	if err := cfg.VisitorStoreError(); err != nil {
		logger.Printf("visitor counter unconfigured kind=%s err=%v", visitor.KindConfiguration, err)
		return nil, nopCloser{}
	}

	switch cfg.Visitors.Backend {
	case config.VisitorBackendRedis:
		s, err := store.NewRedisVisitorStore(redisClient, cfg.Visitors.KeyPrefix, cfg.Visitors.CounterKey)
		if err != nil {
			logger.Printf("visitor counter unconfigured kind=%s err=%v", visitor.KindConfiguration, err)
			return nil, nopCloser{}
		}
		return s, nopCloser{}
	case config.VisitorBackendPostgres:
		s, err := store.OpenPostgresVisitorStore(cfg.Database.DSN, cfg.Visitors.CounterName)
		if err != nil {
			logger.Printf("visitor counter unconfigured kind=%s err=%v", visitor.KindConfiguration, err)
			return nil, nopCloser{}
		}
		schemaCtx, cancel := context.WithTimeout(ctx, cfg.Visitors.StoreTimeout)
		defer cancel()
		if err := s.EnsureSchema(schemaCtx); err != nil {
			logger.Printf("visitor store not reachable yet kind=%s err=%v", visitor.KindStoreUnavailable, err)
		}
		return s, s
	default:
		return store.NewMemoryVisitorStore(), nopCloser{}
	}
}

func openFrameStore(ctx context.Context, cfg config.Config, logger *log.Logger) (store.FrameStore, io.Closer) {
	if cfg.Database.DSN == "" {
		return store.NewMemoryFrameStore(), nopCloser{}
	}
	s, err := store.NewPostgresFrameStore(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("frame store init failed: %v", err)
	}
	return s, s
}

func newRateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client) (api.RateLimiter, error) {
	if cfg.UseRedis && redisClient != nil {
		return ratelimit.NewRedisTokenBucket(redisClient, cfg.Capacity, cfg.Window, "")
	}
	return ratelimit.NewLocalLimiter(cfg.Capacity, cfg.Window)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
