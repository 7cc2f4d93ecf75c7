package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryVisitorStoreMarkerExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryVisitorStore()
	s.now = func() time.Time { return now }

	created, err := s.MarkVisitor(ctx, "abc", time.Hour)
	if err != nil || !created {
		t.Fatalf("expected first marker to be created, got %v %v", created, err)
	}

	created, err = s.MarkVisitor(ctx, "abc", time.Hour)
	if err != nil || created {
		t.Fatalf("expected live marker to be kept, got %v %v", created, err)
	}

	now = now.Add(time.Hour)
	created, err = s.MarkVisitor(ctx, "abc", time.Hour)
	if err != nil || !created {
		t.Fatalf("expected expired marker to be recreated, got %v %v", created, err)
	}
}

func TestMemoryVisitorStoreSweepsExpiredMarkers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryVisitorStore()
	s.now = func() time.Time { return now }

	for _, token := range []string{"a", "b", "c"} {
		if _, err := s.MarkVisitor(ctx, token, time.Minute); err != nil {
			t.Fatalf("mark %s: %v", token, err)
		}
	}
	if _, err := s.MarkVisitor(ctx, "long", 24*time.Hour); err != nil {
		t.Fatalf("mark long: %v", err)
	}

	now = now.Add(markerSweepInterval)
	if _, err := s.MarkVisitor(ctx, "d", time.Minute); err != nil {
		t.Fatalf("mark d: %v", err)
	}

	if len(s.markers) != 2 {
		t.Fatalf("expected expired markers to be swept, have %v", s.markers)
	}
	if _, ok := s.markers["long"]; !ok {
		t.Fatal("live marker was swept")
	}
}

func TestMemoryVisitorStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVisitorStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementVisitors(ctx); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := s.VisitorCount(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 50 {
		t.Fatalf("expected 50, got %d", count)
	}
}

func TestMemoryVisitorStoreCounterRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVisitorStore()

	if _, err := s.SelectCounter(ctx); !errors.Is(err, ErrCounterNotFound) {
		t.Fatalf("expected ErrCounterNotFound, got %v", err)
	}
	if _, err := s.UpdateCounter(ctx, 3); !errors.Is(err, ErrCounterNotFound) {
		t.Fatalf("expected ErrCounterNotFound on update, got %v", err)
	}
	if v, err := s.UpsertCounter(ctx, 1); err != nil || v != 1 {
		t.Fatalf("upsert: %d %v", v, err)
	}
	if v, err := s.UpdateCounter(ctx, 2); err != nil || v != 2 {
		t.Fatalf("update: %d %v", v, err)
	}
	if v, err := s.SelectCounter(ctx); err != nil || v != 2 {
		t.Fatalf("select: %d %v", v, err)
	}
}
