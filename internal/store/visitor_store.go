package store

import (
	"context"
	"errors"
	"time"
)

var ErrCounterNotFound = errors.New("counter record not found")

// VisitorStore persists per-visitor markers and the global visitor counter.
type VisitorStore interface {
	// MarkVisitor creates the marker for token unless a live one exists and
	// reports whether it was created.
	MarkVisitor(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// IncrementVisitors atomically adds one to the counter and returns the
	// new value.
	IncrementVisitors(ctx context.Context) (int64, error)
	VisitorCount(ctx context.Context) (int64, error)
}

// CounterRowStore is the non-atomic select/update path used when
// IncrementVisitors fails. It is not safe under concurrent writers.
type CounterRowStore interface {
	SelectCounter(ctx context.Context) (int64, error)
	UpdateCounter(ctx context.Context, value int64) (int64, error)
	UpsertCounter(ctx context.Context, value int64) (int64, error)
}
