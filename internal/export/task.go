// Package export renders quote documents in the background and delivers them to disk.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-quotes/internal/document"
)

// TypeQuoteExport is the asynq task type of quote exports.
const TypeQuoteExport = "quote:export"

// DefaultQueue is the queue exports are enqueued on and served from.
const DefaultQueue = "exports"

// Payload is the body of a quote export task.
type Payload struct {
	BudgetID    string `json:"budget_id"`
	Format      string `json:"format"`
	RequestedBy string `json:"requested_by"`
}

// NewTask builds a quote export task.
func NewTask(p Payload) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeQuoteExport, raw), nil
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues export tasks. It implements document.Enqueuer.
type Client struct {
	tasks     taskEnqueuer
	queue     string
	maxRetry  int
	timeout   time.Duration
	uniqueFor time.Duration
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Queue     string
	MaxRetry  int
	Timeout   time.Duration
	UniqueFor time.Duration
}

// NewClient wraps an asynq client.
func NewClient(tasks *asynq.Client, cfg ClientConfig) *Client {
	return newClient(tasks, cfg)
}

func newClient(tasks taskEnqueuer, cfg ClientConfig) *Client {
	c := &Client{tasks: tasks, queue: cfg.Queue, maxRetry: cfg.MaxRetry, timeout: cfg.Timeout, uniqueFor: cfg.UniqueFor}
	if c.queue == "" {
		c.queue = DefaultQueue
	}
	if c.maxRetry <= 0 {
		c.maxRetry = 5
	}
	if c.timeout <= 0 {
		c.timeout = 2 * time.Minute
	}
	if c.uniqueFor <= 0 {
		c.uniqueFor = time.Minute
	}
	return c
}

// EnqueueExport implements document.Enqueuer. Identical requests within the uniqueness
// window are rejected with document.ErrExportPending.
func (c *Client) EnqueueExport(ctx context.Context, budgetID uuid.UUID, format document.Format, requestedBy string) (string, error) {
	task, err := NewTask(Payload{BudgetID: budgetID.String(), Format: string(format), RequestedBy: requestedBy})
	if err != nil {
		return "", err
	}
	info, err := c.tasks.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.timeout),
		asynq.Unique(c.uniqueFor),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return "", document.ErrExportPending
		}
		return "", fmt.Errorf("enqueue export: %w", err)
	}
	return info.ID, nil
}
