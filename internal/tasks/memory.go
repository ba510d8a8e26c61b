package tasks

import (
	"context"
	"time"
)

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	ch chan Task
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan Task, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if !t.Kind.Valid() {
		_, err := encodeTask(t)
		return err
	}
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*Task, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case t := <-q.ch:
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
