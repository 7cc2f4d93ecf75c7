package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
	"github.com/dunamismax/snapframe/internal/queue"
	"github.com/dunamismax/snapframe/internal/render"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
)

func TestHandleExportFrameHandsOff(t *testing.T) {
	processor := &fakeProcessor{desc: render.Description{Photo: render.Photo{Width: 40, Height: 30, Format: "png"}}}
	s := newTestServer(processor)

	task := exportTask(t, "frame-1")
	if err := s.handleExportFrame(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(processor.got) != 1 {
		t.Fatalf("expected one processed request, got %d", len(processor.got))
	}
	req := processor.got[0]
	if req.FrameID != "frame-1" || req.PhotoKey != "frames/frame-1/photo" || req.Config.Title != "Harbour" {
		t.Fatalf("unexpected request %+v", req)
	}
	if got := metricValue(t, s.metrics.exportsTotal.WithLabelValues(statusSucceeded)); got != 1 {
		t.Fatalf("expected one succeeded export, got %v", got)
	}
	if got := metricValue(t, s.metrics.photoPixels); got != 1200 {
		t.Fatalf("expected 1200 pixels, got %v", got)
	}
	if got := metricValue(t, s.metrics.activeExports); got != 0 {
		t.Fatalf("expected no active exports, got %v", got)
	}
}

func TestHandleExportFrameSkipsRetryForBadInput(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	err := s.handleExportFrame(context.Background(), asynq.NewTask(queue.TypeExportFrame, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}

	s = newTestServer(&fakeProcessor{err: fmt.Errorf("probe stage: %w", render.ErrUnsupportedPhoto)})
	err = s.handleExportFrame(context.Background(), exportTask(t, "frame-2"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for unsupported photo, got %v", err)
	}
	if got := metricValue(t, s.metrics.exportsTotal.WithLabelValues(statusRejected)); got != 1 {
		t.Fatalf("expected rejected export, got %v", got)
	}
}

func TestHandleExportFrameRetriesTransientFailures(t *testing.T) {
	s := newTestServer(&fakeProcessor{err: errors.New("emit stage: renderer returned status=503")})
	err := s.handleExportFrame(context.Background(), exportTask(t, "frame-3"))
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if got := metricValue(t, s.metrics.exportsTotal.WithLabelValues(statusFailed)); got != 1 {
		t.Fatalf("expected failed export, got %v", got)
	}
}

func TestHandleExportFrameWaitsForSlot(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	s.sem <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.handleExportFrame(ctx, exportTask(t, "frame-4"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while all slots are busy, got %v", err)
	}
}

func newTestServer(p exportProcessor) *Server {
	return &Server{
		logger:    log.New(io.Discard, "", 0),
		sem:       make(chan struct{}, 1),
		processor: p,
		metrics:   newMetrics(),
		tracer:    otel.Tracer("test"),
	}
}

func exportTask(t *testing.T, frameID string) *asynq.Task {
	t.Helper()
	cfg := domain.DefaultFrameConfig(time.Now())
	cfg.Title = "Harbour"
	task, err := queue.NewExportFrameTask(queue.ExportFramePayload{
		FrameID:     frameID,
		Config:      cfg,
		PhotoKey:    "frames/" + frameID + "/photo",
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

type fakeProcessor struct {
	desc render.Description
	err  error
	got  []render.Request
}

func (f *fakeProcessor) Process(_ context.Context, req render.Request) (render.Description, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return render.Description{}, f.err
	}
	return f.desc, nil
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	default:
		t.Fatalf("unsupported metric type")
		return 0
	}
}
