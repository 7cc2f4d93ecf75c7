package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// ExportOptions control how export tasks are scheduled. Zero fields fall
// back to the defaults below.
type ExportOptions struct {
	MaxRetry  int
	Timeout   time.Duration
	Retention time.Duration
}

const (
	defaultExportMaxRetry  = 5
	defaultExportTimeout   = 2 * time.Minute
	defaultExportRetention = 24 * time.Hour
)

func (o ExportOptions) withDefaults() ExportOptions {
	if o.MaxRetry <= 0 {
		o.MaxRetry = defaultExportMaxRetry
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultExportTimeout
	}
	if o.Retention <= 0 {
		o.Retention = defaultExportRetention
	}
	return o
}

// Client enqueues frame exports for the worker.
type Client struct {
	client *asynq.Client
	queue  string
	export ExportOptions
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string, export ExportOptions) *Client {
	if queueName == "" {
		queueName = "default"
	}
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
		export: export.withDefaults(),
	}
}

// EnqueueFrameExport schedules one export. Completed tasks are retained so
// their state can still be inspected after the worker finishes.
func (c *Client) EnqueueFrameExport(ctx context.Context, payload ExportFramePayload) (*asynq.TaskInfo, error) {
	task, err := NewExportFrameTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, c.exportOptions()...)
}

func (c *Client) exportOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.export.MaxRetry),
		asynq.Timeout(c.export.Timeout),
		asynq.Retention(c.export.Retention),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}
