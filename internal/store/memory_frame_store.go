package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
)

type MemoryFrameStore struct {
	mu     sync.RWMutex
	frames map[string]domain.Frame
}

func NewMemoryFrameStore() *MemoryFrameStore {
	return &MemoryFrameStore{
		frames: make(map[string]domain.Frame),
	}
}

func (s *MemoryFrameStore) Create(_ context.Context, frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.frames[frame.ID]; exists {
		return fmt.Errorf("frame %s already exists", frame.ID)
	}
	s.frames[frame.ID] = frame
	return nil
}

func (s *MemoryFrameStore) Get(_ context.Context, id string) (domain.Frame, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frame, ok := s.frames[id]
	return frame, ok, nil
}

func (s *MemoryFrameStore) Update(_ context.Context, id string, mutate FrameMutator) (domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, ok := s.frames[id]
	if !ok {
		return domain.Frame{}, ErrFrameNotFound
	}

	next, err := mutate(frame)
	if err != nil {
		return domain.Frame{}, err
	}
	next.ID = frame.ID
	next.CreatedAt = frame.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.frames[id] = next
	return next, nil
}
