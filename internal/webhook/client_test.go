package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendAddsSigningHeaders(t *testing.T) {
	var (
		gotSig      string
		gotTS       string
		gotEvt      string
		gotDelivery string
		verifyErr   error
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		gotEvt = r.Header.Get(HeaderEvent)
		gotDelivery = r.Header.Get(HeaderDelivery)
		body, _ := io.ReadAll(r.Body)
		verifyErr = Verify("test-secret", r.Header, body, time.Minute, time.Now())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{
		SigningSecret:  "test-secret",
		Timeout:        2 * time.Second,
		MaxAttempts:    1,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	err := client.Send(context.Background(), srv.URL, "frame.export", "frame-1", map[string]any{"frame_id": "frame-1"})
	if err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	if gotSig == "" {
		t.Fatal("expected signature header")
	}
	if gotTS == "" {
		t.Fatal("expected timestamp header")
	}
	if gotEvt != "frame.export" {
		t.Fatalf("expected event header frame.export, got %q", gotEvt)
	}
	if gotDelivery != "frame-1" {
		t.Fatalf("expected delivery header frame-1, got %q", gotDelivery)
	}
	if verifyErr != nil {
		t.Fatalf("receiver could not verify signature: %v", verifyErr)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	if err := client.Send(context.Background(), srv.URL, "frame.export", "", map[string]string{}); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(Config{MaxAttempts: 5, InitialBackoff: time.Millisecond})
	if err := client.Send(context.Background(), srv.URL, "frame.export", "", map[string]string{}); err == nil {
		t.Fatal("expected error for 422")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestSendWithoutEndpointIsNoop(t *testing.T) {
	client := NewClient(Config{})
	if err := client.Send(context.Background(), "  ", "frame.export", "", nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestVerifyRejectsTamperingAndStaleTimestamps(t *testing.T) {
	body := []byte(`{"frame_id":"f"}`)
	now := time.Unix(1_700_000_000, 0)
	header := http.Header{}
	header.Set(HeaderTimestamp, "1700000000")
	header.Set(HeaderSignature, Sign("s3cret", "1700000000", body))

	if err := Verify("s3cret", header, body, time.Minute, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := Verify("s3cret", header, []byte(`{"frame_id":"g"}`), time.Minute, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected tampered body to fail, got %v", err)
	}
	if err := Verify("other", header, body, time.Minute, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}
	if err := Verify("s3cret", header, body, time.Minute, now.Add(time.Hour)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected stale timestamp to fail, got %v", err)
	}
}
