package visitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dunamismax/snapframe/internal/store"
)

const (
	DefaultMarkerTTL    = 365 * 24 * time.Hour
	DefaultStoreTimeout = 3 * time.Second
)

type Options struct {
	MarkerTTL    time.Duration
	StoreTimeout time.Duration
	Logger       *log.Logger
}

type Result struct {
	Count      int64
	NewVisitor bool
	// Fallback is set when the atomic increment failed and the
	// select/update path produced the count.
	Fallback bool
}

// Counter counts unique visitors within the marker TTL. A Counter built
// with a nil store answers every call with ErrConfiguration.
type Counter struct {
	store   store.VisitorStore
	ttl     time.Duration
	timeout time.Duration
	logger  *log.Logger
}

func NewCounter(visitorStore store.VisitorStore, opts Options) *Counter {
	if opts.MarkerTTL <= 0 {
		opts.MarkerTTL = DefaultMarkerTTL
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Counter{
		store:   visitorStore,
		ttl:     opts.MarkerTTL,
		timeout: opts.StoreTimeout,
		logger:  opts.Logger,
	}
}

func (c *Counter) Configured() bool {
	return c != nil && c.store != nil
}

// Track counts the visitor behind identifier once per marker TTL and
// returns the current total.
func (c *Counter) Track(ctx context.Context, identifier string) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrConfiguration
	}

	token := HashIdentifier(identifier)
	created, err := c.markVisitor(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("%w: mark visitor: %w", ErrStoreUnavailable, err)
	}

	result := Result{NewVisitor: created}
	if created {
		count, fallback, err := c.increment(ctx)
		if err != nil {
			return Result{NewVisitor: true}, err
		}
		result.Count = count
		result.Fallback = fallback
	}

	count, err := c.read(ctx)
	if err != nil {
		if created {
			c.logger.Printf("visitor count read failed after increment token=%s err=%v", token, err)
			return result, nil
		}
		return Result{}, fmt.Errorf("%w: read count: %w", ErrStoreUnavailable, err)
	}
	result.Count = count
	return result, nil
}

// Count returns the current total without writing.
func (c *Counter) Count(ctx context.Context) (int64, error) {
	if !c.Configured() {
		return 0, ErrConfiguration
	}
	count, err := c.read(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: read count: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (c *Counter) markVisitor(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.store.MarkVisitor(ctx, token, c.ttl)
}

func (c *Counter) read(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.store.VisitorCount(ctx)
}

func (c *Counter) increment(ctx context.Context) (int64, bool, error) {
	atomicCtx, cancel := context.WithTimeout(ctx, c.timeout)
	count, err := c.store.IncrementVisitors(atomicCtx)
	cancel()
	if err == nil {
		return count, false, nil
	}

	rows, ok := c.store.(store.CounterRowStore)
	if !ok {
		return 0, false, fmt.Errorf("%w: atomic increment: %w", ErrStoreUnavailable, err)
	}
	c.logger.Printf("atomic increment failed, falling back to select/update kind=%s err=%v", KindStoreUnavailable, err)

	count, err = c.incrementRow(ctx, rows)
	return count, true, err
}

// incrementRow is the read-modify-write path. Concurrent callers can lose
// updates here; only the atomic path is race free.
func (c *Counter) incrementRow(ctx context.Context, rows store.CounterRowStore) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	current, err := rows.SelectCounter(ctx)
	if errors.Is(err, store.ErrCounterNotFound) {
		c.logger.Printf("visitor counter row missing, creating kind=%s", KindRecordNotFound)
		count, err := rows.UpsertCounter(ctx, 1)
		if err != nil {
			return 0, fmt.Errorf("%w: %w: create counter: %w", ErrUpdateFailed, ErrRecordNotFound, err)
		}
		return count, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: select counter: %w", ErrStoreUnavailable, err)
	}

	count, err := rows.UpdateCounter(ctx, current+1)
	if err != nil {
		return 0, fmt.Errorf("%w: update counter: %w", ErrUpdateFailed, err)
	}
	return count, nil
}
