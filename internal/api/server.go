package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/snapframe/internal/queue"
	"github.com/dunamismax/snapframe/internal/store"
	"github.com/dunamismax/snapframe/internal/visitor"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
)

type VisitorCounter interface {
	Track(ctx context.Context, identifier string) (visitor.Result, error)
	Count(ctx context.Context) (int64, error)
}

type FrameExporter interface {
	EnqueueFrameExport(ctx context.Context, payload queue.ExportFramePayload) (*asynq.TaskInfo, error)
}

type ObjectStorage interface {
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// Options wires a Server. Visitors and Frames are required; a nil Storage,
// Exporter, RateLimiter or Tracer disables the matching feature.
type Options struct {
	Logger      *log.Logger
	Visitors    VisitorCounter
	Frames      store.FrameStore
	Storage     ObjectStorage
	Exporter    FrameExporter
	RateLimiter RateLimiter
	Tracer      trace.Tracer
	AllowOrigin string
	PresignTTL  time.Duration
}

type Server struct {
	logger      *log.Logger
	visitors    VisitorCounter
	frames      store.FrameStore
	storage     ObjectStorage
	exporter    FrameExporter
	rateLimiter RateLimiter
	tracer      trace.Tracer
	allowOrigin string
	presignTTL  time.Duration
	metrics     *metrics
	mux         *http.ServeMux
	now         func() time.Time
}

func NewServer(opts Options) (*Server, error) {
	if opts.Visitors == nil {
		return nil, errors.New("visitor counter is required")
	}
	if opts.Frames == nil {
		return nil, errors.New("frame store is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	if strings.TrimSpace(opts.AllowOrigin) == "" {
		opts.AllowOrigin = "*"
	}
	if opts.Storage == nil {
		opts.Storage = unavailableObjectStorage{}
	}

	s := &Server{
		logger:      opts.Logger,
		visitors:    opts.Visitors,
		frames:      opts.Frames,
		storage:     opts.Storage,
		exporter:    opts.Exporter,
		rateLimiter: opts.RateLimiter,
		tracer:      opts.Tracer,
		allowOrigin: opts.AllowOrigin,
		presignTTL:  opts.PresignTTL,
		metrics:     newMetrics(),
		mux:         http.NewServeMux(),
		now:         time.Now,
	}
	s.routes()
	return s, nil
}

var errStorageUnavailable = errors.New("object storage is unavailable")

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) PresignedPutURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errStorageUnavailable
}

func (unavailableObjectStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return false, errStorageUnavailable
}

// Handler returns the mux wrapped in recover, metrics, tracing, CORS and
// rate limiting, outermost first.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.withRateLimit(h)
	h = s.withCORS(h)
	h = s.withTracing(h)
	h = s.metrics.withHTTPMetrics(h)
	h = s.withRecover(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("/api/visitors", s.handleVisitors)

	s.mux.HandleFunc("GET /api/colors/contrast", s.handleContrast)
	s.mux.HandleFunc("GET /api/presets", s.handlePresets)

	s.mux.HandleFunc("POST /api/frames", s.handleCreateFrame)
	s.mux.HandleFunc("GET /api/frames/{id}", s.handleGetFrame)
	s.mux.HandleFunc("PATCH /api/frames/{id}", s.handleUpdateFrame)
	s.mux.HandleFunc("POST /api/frames/{id}/export", s.handleExportFrame)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Printf("handler panic method=%s path=%s panic=%v", r.Method, r.URL.Path, rec)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
