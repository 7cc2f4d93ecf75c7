package visitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dunamismax/snapframe/internal/store"
)

func TestTrackCountsEachVisitorOnce(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(store.NewMemoryVisitorStore(), Options{})

	first, err := c.Track(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("first track: %v", err)
	}
	if !first.NewVisitor || first.Count != 1 {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := c.Track(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("second track: %v", err)
	}
	if second.NewVisitor || second.Count != first.Count {
		t.Fatalf("repeat visit must not count, got %+v", second)
	}

	count, err := c.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("count: %d %v", count, err)
	}
}

func TestTrackConcurrentDistinctVisitors(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(store.NewMemoryVisitorStore(), Options{})

	var wg sync.WaitGroup
	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			if _, err := c.Track(ctx, ip); err != nil {
				t.Errorf("track %s: %v", ip, err)
			}
		}(ip)
	}
	wg.Wait()

	count, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected exactly two increments, got %d", count)
	}
}

func TestTrackConcurrentSameVisitor(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(store.NewMemoryVisitorStore(), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Track(ctx, "192.0.2.1"); err != nil {
				t.Errorf("track: %v", err)
			}
		}()
	}
	wg.Wait()

	if count, _ := c.Count(ctx); count != 1 {
		t.Fatalf("expected a single count, got %d", count)
	}
}

func TestUnconfiguredCounter(t *testing.T) {
	c := NewCounter(nil, Options{})
	if c.Configured() {
		t.Fatal("expected unconfigured counter")
	}
	if _, err := c.Track(context.Background(), "x"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := c.Count(context.Background()); Kind(err) != KindConfiguration {
		t.Fatalf("expected configuration kind, got %v", err)
	}
}

func TestTrackFallsBackWhenAtomicIncrementFails(t *testing.T) {
	ctx := context.Background()
	fake := &fakeStore{MemoryVisitorStore: store.NewMemoryVisitorStore(), incrErr: errors.New("rpc missing")}
	c := NewCounter(fake, Options{})

	first, err := c.Track(ctx, "a")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !first.Fallback || first.Count != 1 {
		t.Fatalf("expected fallback to create the row with 1, got %+v", first)
	}

	second, err := c.Track(ctx, "b")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !second.Fallback || second.Count != 2 {
		t.Fatalf("expected fallback update to 2, got %+v", second)
	}
}

func TestTrackFallbackUpdateFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryVisitorStore()
	if _, err := mem.UpsertCounter(ctx, 4); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fake := &fakeStore{
		MemoryVisitorStore: mem,
		incrErr:            errors.New("rpc missing"),
		updateErr:          errors.New("permission denied"),
	}
	c := NewCounter(fake, Options{})

	_, err := c.Track(ctx, "a")
	if !errors.Is(err, ErrUpdateFailed) {
		t.Fatalf("expected ErrUpdateFailed, got %v", err)
	}
	if Kind(err) != KindUpdateFailed {
		t.Fatalf("expected update_failed kind, got %s", Kind(err))
	}
	if fake.updateCalls != 1 {
		t.Fatalf("update must not be retried, got %d calls", fake.updateCalls)
	}
}

func TestTrackFallbackCreateFailure(t *testing.T) {
	fake := &fakeStore{
		MemoryVisitorStore: store.NewMemoryVisitorStore(),
		incrErr:            errors.New("rpc missing"),
		upsertErr:          errors.New("read only"),
	}
	c := NewCounter(fake, Options{})

	_, err := c.Track(context.Background(), "a")
	if !errors.Is(err, ErrUpdateFailed) || !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected update failure after missing record, got %v", err)
	}
}

func TestTrackWithoutFallbackSupport(t *testing.T) {
	s := &atomicOnlyStore{inner: store.NewMemoryVisitorStore(), incrErr: errors.New("down")}
	c := NewCounter(s, Options{})

	_, err := c.Track(context.Background(), "a")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStoreFullyUnavailable(t *testing.T) {
	down := errors.New("connection refused")
	fake := &fakeStore{MemoryVisitorStore: store.NewMemoryVisitorStore(), markErr: down, countErr: down}
	c := NewCounter(fake, Options{})

	if _, err := c.Track(context.Background(), "a"); Kind(err) != KindStoreUnavailable {
		t.Fatalf("expected store_unavailable, got %v", err)
	}
	if _, err := c.Count(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestStoreCallsAreBounded(t *testing.T) {
	s := &slowStore{MemoryVisitorStore: store.NewMemoryVisitorStore()}
	c := NewCounter(s, Options{StoreTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.Track(context.Background(), "a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("store timeout was not applied")
	}
}

func TestKindDefaultsToInternal(t *testing.T) {
	if Kind(errors.New("other")) != KindInternal {
		t.Fatal("expected internal kind for unknown errors")
	}
}

type fakeStore struct {
	*store.MemoryVisitorStore
	markErr     error
	incrErr     error
	countErr    error
	updateErr   error
	upsertErr   error
	updateCalls int
}

func (f *fakeStore) MarkVisitor(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.MemoryVisitorStore.MarkVisitor(ctx, token, ttl)
}

func (f *fakeStore) IncrementVisitors(ctx context.Context) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	return f.MemoryVisitorStore.IncrementVisitors(ctx)
}

func (f *fakeStore) VisitorCount(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.MemoryVisitorStore.VisitorCount(ctx)
}

func (f *fakeStore) UpdateCounter(ctx context.Context, value int64) (int64, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	return f.MemoryVisitorStore.UpdateCounter(ctx, value)
}

func (f *fakeStore) UpsertCounter(ctx context.Context, value int64) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	return f.MemoryVisitorStore.UpsertCounter(ctx, value)
}

// atomicOnlyStore hides the CounterRowStore methods of the memory store.
type atomicOnlyStore struct {
	inner   *store.MemoryVisitorStore
	incrErr error
}

func (s *atomicOnlyStore) MarkVisitor(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return s.inner.MarkVisitor(ctx, token, ttl)
}

func (s *atomicOnlyStore) IncrementVisitors(context.Context) (int64, error) {
	return 0, s.incrErr
}

func (s *atomicOnlyStore) VisitorCount(ctx context.Context) (int64, error) {
	return s.inner.VisitorCount(ctx)
}

type slowStore struct {
	*store.MemoryVisitorStore
}

func (s *slowStore) MarkVisitor(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
