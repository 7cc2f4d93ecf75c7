package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const localIdleTTL = 10 * time.Minute

// LocalLimiter is an in-process token bucket per subject. It is used when
// the API runs without Redis and only limits requests seen by this process.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
	lastScan time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(capacity int, window time.Duration) (*LocalLimiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive")
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		limit:    rate.Limit(float64(capacity) / window.Seconds()),
		burst:    capacity,
		now:      time.Now,
	}, nil
}

func (l *LocalLimiter) Allow(_ context.Context, subject string) (Decision, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	entry, ok := l.limiters[subject]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[subject] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return Decision{
			Allowed:   true,
			Limit:     int64(l.burst),
			Remaining: int64(math.Floor(entry.limiter.TokensAt(now))),
		}, nil
	}

	reservation := entry.limiter.ReserveN(now, 1)
	retryAfter := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return Decision{
		Allowed:    false,
		Limit:      int64(l.burst),
		Remaining:  0,
		RetryAfter: retryAfter,
	}, nil
}

func (l *LocalLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < localIdleTTL {
		return
	}
	l.lastScan = now
	for subject, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= localIdleTTL {
			delete(l.limiters, subject)
		}
	}
}
