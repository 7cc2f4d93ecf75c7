package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dunamismax/snapframe/internal/config"
	"github.com/dunamismax/snapframe/internal/queue"
	"github.com/dunamismax/snapframe/internal/render"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusRejected  = "rejected"
)

type exportProcessor interface {
	Process(ctx context.Context, req render.Request) (render.Description, error)
}

type Server struct {
	logger      *log.Logger
	server      *asynq.Server
	sem         chan struct{}
	processor   exportProcessor
	metrics     *metrics
	metricsAddr string
	tracer      trace.Tracer
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	processor exportProcessor,
) (*Server, error) {
	if processor == nil {
		return nil, errors.New("export processor is required")
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:         make(chan struct{}, max(1, workerCfg.MaxActiveJobs)),
		processor:   processor,
		metrics:     newMetrics(),
		metricsAddr: workerCfg.MetricsAddr,
		tracer:      otel.Tracer("snapframe/worker"),
	}
	return s, nil
}

// Run processes export tasks and serves metrics until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeExportFrame, s.handleExportFrame)
	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.metricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              s.metricsAddr,
			Handler:           s.MetricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			s.logger.Printf("metrics listening on %s", s.metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Println("shutting down task server")
		s.server.Shutdown()
		return nil
	})
	return g.Wait()
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleExportFrame(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := statusFailed

	payload, err := queue.ParseExportFramePayload(task)
	if err != nil {
		s.metrics.exportsTotal.WithLabelValues(statusRejected).Inc()
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.export_frame", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("frame.id", payload.FrameID),
		attribute.String("frame.photo_key", payload.PhotoKey),
	)
	defer span.End()
	defer func() {
		s.metrics.exportDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.exportsTotal.WithLabelValues(outcome).Inc()
	}()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.metrics.activeExports.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeExports.Dec()
	}()

	s.logger.Printf("Working... frame_id=%s photo_key=%s", payload.FrameID, payload.PhotoKey)

	desc, err := s.processor.Process(ctx, render.Request{
		FrameID:     payload.FrameID,
		PhotoKey:    payload.PhotoKey,
		Config:      payload.Config,
		RequestedAt: payload.RequestedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		if errors.Is(err, render.ErrUnsupportedPhoto) {
			outcome = statusRejected
			return fmt.Errorf("export frame %s: %v: %w", payload.FrameID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("export frame %s: %w", payload.FrameID, err)
	}

	s.logger.Printf("Exported frame_id=%s photo=%dx%d format=%s", payload.FrameID, desc.Photo.Width, desc.Photo.Height, desc.Photo.Format)
	s.metrics.photoPixels.Add(float64(desc.Photo.Width) * float64(desc.Photo.Height))
	span.SetAttributes(
		attribute.Int("photo.width", desc.Photo.Width),
		attribute.Int("photo.height", desc.Photo.Height),
	)

	outcome = statusSucceeded
	span.SetStatus(codes.Ok, "handed off")
	return nil
}
