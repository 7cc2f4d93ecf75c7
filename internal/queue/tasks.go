package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/snapframe/internal/domain"
	"github.com/hibiken/asynq"
)

const TypeExportFrame = "frame:export"

// ExportFramePayload is a snapshot of the frame at request time. Later edits
// do not change an export already in the queue.
type ExportFramePayload struct {
	FrameID     string             `json:"frame_id"`
	Config      domain.FrameConfig `json:"config"`
	PhotoKey    string             `json:"photo_key"`
	RequestedAt time.Time          `json:"requested_at"`
}

func NewExportFrameTask(payload ExportFramePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeExportFrame, body), nil
}

func ParseExportFramePayload(task *asynq.Task) (ExportFramePayload, error) {
	var payload ExportFramePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExportFramePayload{}, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if payload.FrameID == "" {
		return ExportFramePayload{}, fmt.Errorf("export payload is missing frame_id")
	}
	return payload, nil
}
