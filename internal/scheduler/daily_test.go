package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrigger struct {
	mu    sync.Mutex
	sizes []int
	err   error
	fired chan struct{}
}

func (f *fakeTrigger) Trigger(_ context.Context, batchSize *int) (uuid.UUID, int, error) {
	f.mu.Lock()
	f.sizes = append(f.sizes, *batchSize)
	f.mu.Unlock()
	f.fired <- struct{}{}
	if f.err != nil {
		return uuid.Nil, 0, f.err
	}
	return uuid.New(), *batchSize, nil
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2025, 11, 13, 1, 30, 0, 0, loc), time.Date(2025, 11, 13, 3, 0, 0, 0, loc)},
		{"already passed", time.Date(2025, 11, 13, 4, 0, 0, 0, loc), time.Date(2025, 11, 14, 3, 0, 0, 0, loc)},
		{"exactly now", time.Date(2025, 11, 13, 3, 0, 0, 0, loc), time.Date(2025, 11, 14, 3, 0, 0, 0, loc)},
		{"month rollover", time.Date(2025, 11, 30, 23, 0, 0, 0, loc), time.Date(2025, 12, 1, 3, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduler.NextRun(tt.now, 3, 0))
		})
	}
}

func TestDaily_FiresWithConfiguredBatch(t *testing.T) {
	now := time.Date(2025, 11, 13, 2, 0, 0, 0, time.UTC)
	waits := make(chan time.Duration, 4)
	ticks := make(chan time.Time)

	trig := &fakeTrigger{fired: make(chan struct{}, 4)}
	d := scheduler.NewDaily(trig, 3, 0, 200, scheduler.WithClock(
		func() time.Time { return now },
		func(d time.Duration) <-chan time.Time { waits <- d; return ticks },
	))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Equal(t, time.Hour, <-waits)
	ticks <- now
	<-trig.fired

	// Waits for the next occurrence after firing.
	<-waits
	cancel()
	require.NoError(t, <-done)

	trig.mu.Lock()
	defer trig.mu.Unlock()
	assert.Equal(t, []int{200}, trig.sizes)
}

func TestDaily_KeepsRunningAfterTriggerError(t *testing.T) {
	now := time.Date(2025, 11, 13, 2, 0, 0, 0, time.UTC)
	waits := make(chan time.Duration, 4)
	ticks := make(chan time.Time)

	trig := &fakeTrigger{err: errors.New("redis down"), fired: make(chan struct{}, 4)}
	d := scheduler.NewDaily(trig, 3, 0, 10, scheduler.WithClock(
		func() time.Time { return now },
		func(d time.Duration) <-chan time.Time { waits <- d; return ticks },
	))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	<-waits
	ticks <- now
	<-trig.fired
	<-waits
	ticks <- now
	<-trig.fired
	<-waits

	cancel()
	require.NoError(t, <-done)
}
