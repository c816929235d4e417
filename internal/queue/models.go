// Package queue turns check results into work items and defines the work
// queue the notification stage consumes from.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a work item.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// WorkItem is one discrepancy record waiting for notification.
type WorkItem struct {
	ID        uuid.UUID       `json:"id"`
	Partition string          `json:"partition"`
	Reference string          `json:"reference"`
	Data      json.RawMessage `json:"data"`
	CreatedBy string          `json:"created_by"`
	Status    Status          `json:"status"`
	Message   string          `json:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payload decodes Data into a column map.
func (w *WorkItem) Payload() (map[string]any, error) {
	var out map[string]any
	if len(w.Data) == 0 {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal(w.Data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// NewItem is a work item before it is stored.
type NewItem struct {
	Reference string
	Data      json.RawMessage
}

// Queue is the work queue. Partitions are independent FIFO queues. The pair
// (partition, reference) is unique: BulkCreate skips references that already
// exist and reports how many items it actually created.
type Queue interface {
	BulkCreate(ctx context.Context, partition string, items []NewItem, createdBy string) (int, error)
	// Next claims the oldest new item of partition. It returns
	// sentinel.ErrEmpty when the partition has nothing left.
	Next(ctx context.Context, partition string) (*WorkItem, error)
	Complete(ctx context.Context, item *WorkItem) error
	Fail(ctx context.Context, item *WorkItem, reason string) error
}
