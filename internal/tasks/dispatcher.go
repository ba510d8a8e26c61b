package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Dispatcher assigns task handles and puts tasks on the queue.
type Dispatcher struct {
	queue  Queue
	status StatusRecorder
}

func NewDispatcher(q Queue, status StatusRecorder) *Dispatcher {
	return &Dispatcher{queue: q, status: status}
}

// Submit enqueues t and returns its handle. The pending status is recorded
// before the enqueue so a fast worker can never be overwritten by it.
func (d *Dispatcher) Submit(ctx context.Context, t Task) (uuid.UUID, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now().UTC()
	}

	if d.status != nil {
		if err := d.status.Record(ctx, Status{TaskID: t.ID, Kind: t.Kind, State: StatePending, URLID: t.URLID}); err != nil {
			slog.Warn("failed to record task status", "task_id", t.ID, "error", err)
		}
	}

	if err := d.queue.Enqueue(ctx, t); err != nil {
		return uuid.Nil, fmt.Errorf("submit %s task: %w", t.Kind, err)
	}
	return t.ID, nil
}

// Lookup returns the last recorded status of a task.
func (d *Dispatcher) Lookup(ctx context.Context, taskID uuid.UUID) (*Status, bool, error) {
	if d.status == nil {
		return nil, false, nil
	}
	return d.status.Lookup(ctx, taskID)
}
