package store

import (
	"context"
	"sync"
	"time"
)

const markerSweepInterval = 10 * time.Minute

// MemoryVisitorStore keeps state for a single process. Expired markers are
// swept on write at most once per markerSweepInterval.
type MemoryVisitorStore struct {
	mu         sync.Mutex
	markers    map[string]time.Time
	count      int64
	hasCounter bool
	now        func() time.Time
	lastSweep  time.Time
}

func NewMemoryVisitorStore() *MemoryVisitorStore {
	return &MemoryVisitorStore{
		markers: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryVisitorStore) MarkVisitor(_ context.Context, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepExpired(now)

	if expiresAt, ok := s.markers[token]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.markers[token] = now.Add(ttl)
	return true, nil
}

func (s *MemoryVisitorStore) sweepExpired(now time.Time) {
	if now.Sub(s.lastSweep) < markerSweepInterval {
		return
	}
	s.lastSweep = now
	for token, expiresAt := range s.markers {
		if !now.Before(expiresAt) {
			delete(s.markers, token)
		}
	}
}

func (s *MemoryVisitorStore) IncrementVisitors(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.hasCounter = true
	return s.count, nil
}

func (s *MemoryVisitorStore) VisitorCount(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

func (s *MemoryVisitorStore) SelectCounter(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCounter {
		return 0, ErrCounterNotFound
	}
	return s.count, nil
}

func (s *MemoryVisitorStore) UpdateCounter(_ context.Context, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCounter {
		return 0, ErrCounterNotFound
	}
	s.count = value
	return s.count, nil
}

func (s *MemoryVisitorStore) UpsertCounter(_ context.Context, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count = value
	s.hasCounter = true
	return s.count, nil
}
