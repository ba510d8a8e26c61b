// Package scheduler fires the ingest batch once a day.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Trigger enqueues an ingest batch. *pipeline.BatchScheduler implements it.
type Trigger interface {
	Trigger(ctx context.Context, batchSize *int) (uuid.UUID, int, error)
}

// Daily calls Trigger every day at a fixed wall-clock time.
type Daily struct {
	trigger   Trigger
	hour      int
	minute    int
	batchSize int
	logger    *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

type Option func(*Daily)

// WithClock replaces the time source and timer, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(d *Daily) {
		d.now = now
		d.after = after
	}
}

func NewDaily(trigger Trigger, hour, minute, batchSize int, opts ...Option) *Daily {
	d := &Daily{
		trigger:   trigger,
		hour:      hour,
		minute:    minute,
		batchSize: batchSize,
		logger:    slog.With("component", "ingest-scheduler"),
		now:       time.Now,
		after:     time.After,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run blocks until ctx is cancelled. A failed trigger is logged and the next
// day's run is still scheduled.
func (d *Daily) Run(ctx context.Context) error {
	for {
		next := NextRun(d.now(), d.hour, d.minute)
		d.logger.Info("next ingest scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return nil
		case <-d.after(next.Sub(d.now())):
		}

		size := d.batchSize
		id, _, err := d.trigger.Trigger(ctx, &size)
		if err != nil {
			d.logger.Error("scheduled ingest failed", "error", err)
			continue
		}
		d.logger.Info("scheduled ingest enqueued", "task_id", id, "batch_size", size)
	}
}

// NextRun returns the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
