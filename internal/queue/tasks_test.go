package queue

import (
	"testing"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
	"github.com/hibiken/asynq"
)

func TestExportFrameTask(t *testing.T) {
	cfg := domain.DefaultFrameConfig(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	cfg.Title = "Porto"
	payload := ExportFramePayload{
		FrameID:     "frame-123",
		Config:      cfg,
		PhotoKey:    "frames/frame-123/photo",
		RequestedAt: time.Now().UTC(),
	}

	task, err := NewExportFrameTask(payload)
	if err != nil {
		t.Fatalf("NewExportFrameTask returned error: %v", err)
	}
	if task.Type() != TypeExportFrame {
		t.Fatalf("expected task type %q, got %q", TypeExportFrame, task.Type())
	}

	parsed, err := ParseExportFramePayload(task)
	if err != nil {
		t.Fatalf("ParseExportFramePayload returned error: %v", err)
	}
	if parsed.FrameID != payload.FrameID || parsed.Config.Title != "Porto" {
		t.Fatalf("unexpected payload %+v", parsed)
	}
	if parsed.Config.Date != "01.06.2024" {
		t.Fatalf("expected frame date to survive the queue, got %q", parsed.Config.Date)
	}
}

func TestParseExportFramePayloadRejectsGarbage(t *testing.T) {
	if _, err := ParseExportFramePayload(asynq.NewTask(TypeExportFrame, []byte("{"))); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := ParseExportFramePayload(asynq.NewTask(TypeExportFrame, []byte(`{"photo_key":"x"}`))); err == nil {
		t.Fatal("expected error for payload without frame id")
	}
}

func TestClientExportOptions(t *testing.T) {
	c := NewClient(asynq.RedisClientOpt{Addr: "localhost:0"}, "", ExportOptions{Timeout: 30 * time.Second})
	defer c.Close()

	got := map[asynq.OptionType]any{}
	for _, opt := range c.exportOptions() {
		got[opt.Type()] = opt.Value()
	}

	if got[asynq.QueueOpt] != "default" {
		t.Fatalf("expected default queue, got %v", got[asynq.QueueOpt])
	}
	if got[asynq.MaxRetryOpt] != defaultExportMaxRetry {
		t.Fatalf("expected default max retry, got %v", got[asynq.MaxRetryOpt])
	}
	if got[asynq.TimeoutOpt] != 30*time.Second {
		t.Fatalf("expected configured timeout, got %v", got[asynq.TimeoutOpt])
	}
	if got[asynq.RetentionOpt] != defaultExportRetention {
		t.Fatalf("expected default retention, got %v", got[asynq.RetentionOpt])
	}
}
