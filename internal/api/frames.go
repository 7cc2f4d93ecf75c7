package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
	"github.com/dunamismax/snapframe/internal/id"
	"github.com/dunamismax/snapframe/internal/queue"
	"github.com/dunamismax/snapframe/internal/storage"
	"github.com/dunamismax/snapframe/internal/store"
)

type frameUpdatesRequest struct {
	Updates []domain.UpdateSpec `json:"updates"`
}

func (s *Server) handleCreateFrame(w http.ResponseWriter, r *http.Request) {
	var req frameUpdatesRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates, err := domain.DecodeUpdates(req.Updates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now().UTC()
	cfg, err := domain.DefaultFrameConfig(now).Apply(updates...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frameID := id.New()
	frame := domain.Frame{
		ID:        frameID,
		Config:    cfg,
		PhotoKey:  storage.PhotoKey(frameID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	uploadState := "ready"
	presignedPutURL, err := s.storage.PresignedPutURL(r.Context(), frame.PhotoKey, s.presignTTL)
	if errors.Is(err, errStorageUnavailable) {
		uploadState = "unavailable"
	} else if err != nil {
		s.logger.Printf("generate presigned url failed frame_id=%s err=%v", frame.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to generate upload URL")
		return
	}

	if err := s.frames.Create(r.Context(), frame); err != nil {
		s.logger.Printf("create frame failed frame_id=%s err=%v", frame.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create frame")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"frame": frame,
		"upload": map[string]string{
			"object_key":          frame.PhotoKey,
			"presigned_put_url":   presignedPutURL,
			"presigned_url_state": uploadState,
		},
		"export_url": "/api/frames/" + frame.ID + "/export",
	})
}

func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	frameID := strings.TrimSpace(r.PathValue("id"))
	frame, ok, err := s.frames.Get(r.Context(), frameID)
	if err != nil {
		s.logger.Printf("fetch frame failed frame_id=%s err=%v", frameID, err)
		writeError(w, http.StatusInternalServerError, "failed to load frame")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "frame not found")
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleUpdateFrame(w http.ResponseWriter, r *http.Request) {
	frameID := strings.TrimSpace(r.PathValue("id"))

	var req frameUpdatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "updates must contain at least one entry")
		return
	}
	updates, err := domain.DecodeUpdates(req.Updates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := s.frames.Update(r.Context(), frameID, func(f domain.Frame) (domain.Frame, error) {
		cfg, err := f.Config.Apply(updates...)
		if err != nil {
			return domain.Frame{}, err
		}
		f.Config = cfg
		return f, nil
	})
	switch {
	case errors.Is(err, store.ErrFrameNotFound):
		writeError(w, http.StatusNotFound, "frame not found")
		return
	case errors.Is(err, domain.ErrInvalidUpdate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Printf("update frame failed frame_id=%s err=%v", frameID, err)
		writeError(w, http.StatusInternalServerError, "failed to update frame")
		return
	}

	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleExportFrame(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export queue is not configured")
		return
	}

	frameID := strings.TrimSpace(r.PathValue("id"))
	frame, ok, err := s.frames.Get(r.Context(), frameID)
	if err != nil {
		s.logger.Printf("fetch frame failed frame_id=%s err=%v", frameID, err)
		writeError(w, http.StatusInternalServerError, "failed to load frame")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "frame not found")
		return
	}

	exists, err := s.storage.ObjectExists(r.Context(), frame.PhotoKey)
	switch {
	case errors.Is(err, errStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Printf("photo check failed frame_id=%s err=%v", frame.ID, err)
		writeError(w, http.StatusInternalServerError, "photo check failed")
		return
	case !exists:
		writeError(w, http.StatusConflict, "photo has not been uploaded: "+frame.PhotoKey)
		return
	}

	taskInfo, err := s.exporter.EnqueueFrameExport(r.Context(), queue.ExportFramePayload{
		FrameID:     frame.ID,
		Config:      frame.Config,
		PhotoKey:    frame.PhotoKey,
		RequestedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Printf("enqueue failed frame_id=%s err=%v", frame.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue export")
		return
	}
	s.metrics.exportsEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"frame_id":    frame.ID,
		"queue":       taskInfo.Queue,
		"task_id":     taskInfo.ID,
		"state":       taskInfo.State.String(),
		"enqueued_at": enqueuedAt(taskInfo.NextProcessAt, s.now()),
	})
}

func enqueuedAt(next, now time.Time) time.Time {
	if next.IsZero() {
		return now.UTC()
	}
	return next.UTC()
}
