package api

import (
	"errors"
	"net/http"

	"github.com/dunamismax/snapframe/internal/visitor"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
	visitorsPath     = "/api/visitors"
)

type visitorResponse struct {
	Count   int64 `json:"count"`
	Success bool  `json:"success"`
}

type visitorErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail,omitempty"`
	Count   int64  `json:"count"`
	Success bool   `json:"success"`
}

// withCORS sets the visitor endpoint's CORS headers on every response,
// including rate limit rejections, and answers preflight requests without
// reaching the counter.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != visitorsPath {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.allowOrigin)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleVisitors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		result, err := s.visitors.Track(r.Context(), visitor.ClientIdentifier(r))
		if err != nil {
			s.writeVisitorError(w, err)
			return
		}
		if result.NewVisitor {
			s.metrics.visitorsCounted.Inc()
		}
		if result.Fallback {
			s.metrics.counterFallbacks.Inc()
		}
		writeJSON(w, http.StatusOK, visitorResponse{Count: result.Count, Success: true})
	case http.MethodGet:
		count, err := s.visitors.Count(r.Context())
		if err != nil {
			s.writeVisitorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, visitorResponse{Count: count, Success: true})
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		w.Header().Set("Allow", corsAllowMethods)
		writeJSON(w, http.StatusMethodNotAllowed, visitorErrorResponse{
			Error: "method not allowed",
			Kind:  "method_not_allowed",
		})
	}
}

func (s *Server) writeVisitorError(w http.ResponseWriter, err error) {
	kind := visitor.Kind(err)
	s.metrics.counterErrors.WithLabelValues(kind).Inc()
	s.logger.Printf("visitor counter failed kind=%s err=%v", kind, err)

	message := "failed to update visitor count"
	if errors.Is(err, visitor.ErrConfiguration) {
		message = "visitor store is not configured"
	}
	writeJSON(w, http.StatusInternalServerError, visitorErrorResponse{
		Error:   message,
		Kind:    kind,
		Detail:  err.Error(),
		Count:   0,
		Success: false,
	})
}
