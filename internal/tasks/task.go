// Package tasks carries pipeline work between the API and the worker pool.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownKind = errors.New("unknown task kind")
var ErrQueueFull = errors.New("task queue is full")

// Kind selects the handler a task is dispatched to.
type Kind string

const (
	KindPipeline    Kind = "pipeline"
	KindIngestBatch Kind = "ingest_batch"
)

func (k Kind) Valid() bool {
	return k == KindPipeline || k == KindIngestBatch
}

// Task is the envelope placed on the queue.
type Task struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	URLID      int64     `json:"url_id,omitempty"`
	BatchSize  int       `json:"batch_size,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is a FIFO of tasks. Dequeue returns (nil, nil) when nothing arrived
// within wait.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	Dequeue(ctx context.Context, wait time.Duration) (*Task, error)
}

func encodeTask(t Task) ([]byte, error) {
	if !t.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
	return json.Marshal(t)
}

func decodeTask(b []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
