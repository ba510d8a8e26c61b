package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// DefaultBatchSize is used when a batch is requested without a size.
const DefaultBatchSize = 50

// Summary reports one batch scheduling pass. Examined counts the pending rows
// the claim query could see. Rows a concurrent pass holds are skipped by the
// claim lock and never seen, so Examined equals Claimed.
type Summary struct {
	BatchSize int         `json:"batch_size"`
	Examined  int         `json:"examined"`
	Claimed   int         `json:"claimed"`
	Started   int         `json:"started"`
	TaskIDs   []uuid.UUID `json:"task_ids"`
}

// BatchScheduler claims pending URLs and starts a chain for each.
type BatchScheduler struct {
	store            store.Store
	starter          Starter
	submitter        Submitter
	defaultBatchSize int
}

type SchedulerOption func(*BatchScheduler)

func WithDefaultBatchSize(n int) SchedulerOption {
	return func(s *BatchScheduler) {
		if n > 0 {
			s.defaultBatchSize = n
		}
	}
}

func NewBatchScheduler(st store.Store, starter Starter, submitter Submitter, opts ...SchedulerOption) *BatchScheduler {
	s := &BatchScheduler{
		store:            st,
		starter:          starter,
		submitter:        submitter,
		defaultBatchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessPending claims up to batchSize pending URLs, lowest id first, and
// starts a chain for each. The claim commits before any chain starts. A URL
// whose chain cannot be started is released back to pending_ingest.
func (s *BatchScheduler) ProcessPending(ctx context.Context, batchSize int) (*Summary, error) {
	if batchSize <= 0 {
		batchSize = s.defaultBatchSize
	}

	var claimed []*models.URL
	err := s.store.WithinTx(ctx, func(q store.Queries) error {
		var err error
		claimed, err = q.ClaimPendingURLs(ctx, batchSize)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("claiming pending urls: %w", err)
	}

	sum := &Summary{
		BatchSize: batchSize,
		Examined:  len(claimed),
		Claimed:   len(claimed),
		TaskIDs:   []uuid.UUID{},
	}
	for _, u := range claimed {
		id, err := s.starter.Start(ctx, u.ID)
		if err != nil {
			slog.Error("failed to start pipeline, releasing url", "url_id", u.ID, "error", err)
			if rerr := s.store.SetURLStatus(context.WithoutCancel(ctx), u.ID, models.URLStatusPendingIngest,
				store.WithLastError(err.Error())); rerr != nil {
				slog.Error("failed to release url", "url_id", u.ID, "error", rerr)
			}
			continue
		}
		sum.Started++
		sum.TaskIDs = append(sum.TaskIDs, id)
	}

	slog.Info("batch processed",
		"batch_size", sum.BatchSize,
		"claimed", sum.Claimed,
		"started", sum.Started,
	)
	return sum, nil
}

// Trigger validates the requested size and enqueues a batch pass. A nil size
// uses the default.
func (s *BatchScheduler) Trigger(ctx context.Context, batchSize *int) (uuid.UUID, int, error) {
	size := s.defaultBatchSize
	if batchSize != nil {
		if *batchSize <= 0 {
			return uuid.Nil, 0, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, *batchSize)
		}
		size = *batchSize
	}

	id, err := s.submitter.Submit(ctx, tasks.Task{Kind: tasks.KindIngestBatch, BatchSize: size})
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("triggering ingest: %w", err)
	}
	slog.Info("ingest triggered", "task_id", id, "batch_size", size)
	return id, size, nil
}

// HandleTask adapts ProcessPending to the worker pool.
func (s *BatchScheduler) HandleTask(ctx context.Context, t tasks.Task) (any, error) {
	return s.ProcessPending(ctx, t.BatchSize)
}

// Resubmit moves URLs back to pending_ingest so the next batch picks them up.
// With no ids it moves every failed URL and every unfinished URL with a last
// error. Named ids are moved whenever they are unfinished. Stages reuse the
// output an earlier run stored, so only the stage that stopped runs again.
func (s *BatchScheduler) Resubmit(ctx context.Context, ids ...int64) (int64, error) {
	n, err := s.store.ResubmitFailedURLs(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("resubmitting failed urls: %w", err)
	}
	slog.Info("failed urls resubmitted", "count", n)
	return n, nil
}
