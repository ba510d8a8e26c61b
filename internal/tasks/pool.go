package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HandlerFunc processes one task. The returned value, if any, is stored as
// the task's JSON result.
type HandlerFunc func(ctx context.Context, t Task) (any, error)

// Pool runs a fixed number of workers pulling from a Queue.
type Pool struct {
	queue       Queue
	status      StatusRecorder
	workers     int
	dequeueWait time.Duration

	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
}

func NewPool(q Queue, status StatusRecorder, workers int, dequeueWait time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if dequeueWait <= 0 {
		dequeueWait = time.Second
	}
	return &Pool{
		queue:       q,
		status:      status,
		workers:     workers,
		dequeueWait: dequeueWait,
		handlers:    make(map[Kind]HandlerFunc),
	}
}

// Handle registers the handler for a task kind.
func (p *Pool) Handle(kind Kind, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

func (p *Pool) handler(kind Kind) (HandlerFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[kind]
	return h, ok
}

// Run blocks until ctx is cancelled. Tasks already dequeued run to completion.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.loop(ctx, worker)
		}(i)
	}
	slog.Info("worker pool started", "workers", p.workers)
	wg.Wait()
	slog.Info("worker pool stopped")
	return nil
}

func (p *Pool) loop(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}
		t, err := p.queue.Dequeue(ctx, p.dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("dequeue failed", "worker", worker, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.dequeueWait):
			}
			continue
		}
		if t == nil {
			continue
		}
		p.Process(context.WithoutCancel(ctx), *t)
	}
}

// Process runs one task through its handler, recording status transitions.
// Panics are recovered and reported as failures.
func (p *Pool) Process(ctx context.Context, t Task) {
	logger := slog.With("task_id", t.ID, "kind", t.Kind)

	h, ok := p.handler(t.Kind)
	if !ok {
		logger.Error("no handler registered")
		p.record(ctx, t, StateFailed, nil, fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in task handler", "error", r)
			p.record(ctx, t, StateFailed, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	p.record(ctx, t, StateRunning, nil, nil)
	start := time.Now()

	result, err := h(ctx, t)
	if err != nil {
		logger.Warn("task failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		p.record(ctx, t, StateFailed, result, err)
		return
	}

	logger.Info("task succeeded", "duration_ms", time.Since(start).Milliseconds())
	p.record(ctx, t, StateSucceeded, result, nil)
}

func (p *Pool) record(ctx context.Context, t Task, state State, result any, taskErr error) {
	if p.status == nil {
		return
	}
	s := Status{TaskID: t.ID, Kind: t.Kind, State: state, URLID: t.URLID, UpdatedAt: time.Now().UTC()}
	if taskErr != nil {
		s.Error = taskErr.Error()
	}
	if result != nil {
		b, err := json.Marshal(result)
		if err == nil {
			s.Result = b
		} else {
			slog.Warn("failed to encode task result", "task_id", t.ID, "error", err)
		}
	}
	if err := p.status.Record(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to record task status", "task_id", t.ID, "state", state, "error", err)
	}
}
