package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/dunamismax/snapframe/internal/config"
	"github.com/dunamismax/snapframe/internal/logging"
	"github.com/dunamismax/snapframe/internal/render"
	"github.com/dunamismax/snapframe/internal/storage"
	"github.com/dunamismax/snapframe/internal/telemetry"
	"github.com/dunamismax/snapframe/internal/webhook"
	"github.com/dunamismax/snapframe/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[worker] load config: %v", err)
	}
	logger, logCloser := logging.New("worker", cfg.Logging)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "snapframe-worker", cfg.Tracing, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Printf("tracing shutdown failed: %v", err)
		}
	}()

	if !cfg.Storage.Enabled {
		logger.Fatalf("worker requires object storage, set MINIO_ENABLED=true")
	}
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

	var emitter render.Emitter = render.LogEmitter{Logger: logger}
	if cfg.Renderer.URL != "" {
		emitter = render.WebhookEmitter{
			Sender: webhook.NewClient(webhook.Config{
				SigningSecret:  cfg.Renderer.SigningSecret,
				Timeout:        cfg.Renderer.Timeout,
				MaxAttempts:    cfg.Renderer.MaxAttempts,
				InitialBackoff: cfg.Renderer.InitialBackoff,
				MaxBackoff:     cfg.Renderer.MaxBackoff,
			}),
			Endpoint: cfg.Renderer.URL,
		}
	} else {
		logger.Printf("RENDERER_URL not set, render descriptions will be logged")
	}

	processor, err := render.NewProcessor(storageClient, emitter, cfg.Renderer.PhotoURLTTL)
	if err != nil {
		logger.Fatalf("render processor init failed: %v", err)
	}

	logger.Printf(
		"starting worker concurrency=%d max_active_jobs=%d queue=%s redis=%s",
		cfg.Worker.Concurrency,
		cfg.Worker.MaxActiveJobs,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
	)

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, processor)
	if err != nil {
		logger.Fatalf("worker init failed: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("worker failed: %v", err)
	}
}
