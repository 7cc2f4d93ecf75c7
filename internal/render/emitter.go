package render

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/dunamismax/snapframe/internal/id"
)

const EventFrameExport = "frame.export"

type webhookSender interface {
	Send(ctx context.Context, endpoint, event, deliveryID string, payload any) error
}

// WebhookEmitter delivers descriptions to the renderer as signed webhooks.
// Every delivery carries a fresh delivery id, so re-exporting the same
// frame is never mistaken for a redelivery.
type WebhookEmitter struct {
	Sender   webhookSender
	Endpoint string
}

func (e WebhookEmitter) Emit(ctx context.Context, desc Description) error {
	if e.Sender == nil {
		return errors.New("webhook sender is required")
	}
	if e.Endpoint == "" {
		return errors.New("renderer endpoint is required")
	}
	return e.Sender.Send(ctx, e.Endpoint, EventFrameExport, id.New(), desc)
}

// LogEmitter writes descriptions to a logger. Used when no renderer is
// configured so exports can still be inspected.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Emit(_ context.Context, desc Description) error {
	body, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	if e.Logger != nil {
		e.Logger.Printf("render description frame_id=%s body=%s", desc.FrameID, body)
	}
	return nil
}
