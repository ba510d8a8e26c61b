package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// target is what the prepare scope learned about one invocation.
type target struct {
	urlID      int64
	retries    int
	existingID int64
}

// plan describes one stage attempt. T is the result of the external operation.
type plan[T any] struct {
	stage        models.Stage
	resourceType models.ResourceType
	resourceID   int64

	// resolve loads upstream rows and looks for reusable output. It returns
	// errMissingUpstream when the input row is absent.
	resolve func(ctx context.Context, q store.Queries) (target, error)
	// startStatus, when set, is applied when a fresh attempt begins.
	startStatus models.URLStatus
	doneStatus  models.URLStatus
	// failStatus is where a failed attempt leaves the URL. Empty keeps the current status.
	failStatus models.URLStatus

	work     func(ctx context.Context) (T, error)
	complete func(ctx context.Context, q store.Queries, result T) (int64, error)
	// discard releases anything work produced when it cannot be persisted.
	discard func(result T)
}

// attempt drives a plan through its three scopes. The prepare scope records the
// attempt, the external operation runs outside any transaction, and the
// complete scope persists the artifact with the success. A failure anywhere
// after prepare is recorded by a separate scope that commits on its own.
func attempt[T any](ctx context.Context, st store.Store, timeout time.Duration, p plan[T]) (*Output, error) {
	logger := slog.With(
		"stage", p.stage,
		"resource_type", p.resourceType,
		"resource_id", p.resourceID,
	)

	var (
		tgt   target
		jobID int64
	)
	err := st.WithinTx(ctx, func(q store.Queries) error {
		var err error
		tgt, err = p.resolve(ctx, q)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if tgt.existingID != 0 {
			if _, err := q.AdvanceURLStatus(ctx, tgt.urlID, p.doneStatus); err != nil {
				return fmt.Errorf("advancing url status: %w", err)
			}
			return q.CreateJob(ctx, &models.Job{
				JobType:      p.stage,
				ResourceType: p.resourceType,
				ResourceID:   p.resourceID,
				Status:       models.JobStatusSuccess,
				Retries:      tgt.retries,
				StartedAt:    &now,
				FinishedAt:   &now,
			})
		}

		job := &models.Job{
			JobType:      p.stage,
			ResourceType: p.resourceType,
			ResourceID:   p.resourceID,
			Status:       models.JobStatusRunning,
			Retries:      tgt.retries,
			StartedAt:    &now,
		}
		if err := q.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("creating job: %w", err)
		}
		jobID = job.ID

		if p.startStatus != "" && tgt.urlID != 0 {
			if _, err := q.AdvanceURLStatus(ctx, tgt.urlID, p.startStatus); err != nil {
				return fmt.Errorf("advancing url status: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, errMissingUpstream) {
		logger.Warn("input not found, skipping stage")
		return nil, nil
	}
	if err != nil {
		// Nothing from the prepare scope was committed.
		jobID = 0
		if tgt.urlID == 0 {
			return nil, fmt.Errorf("preparing %s: %w", p.stage, err)
		}
		return nil, recordFailure(ctx, st, p, tgt, jobID, err, false, logger)
	}

	if tgt.existingID != 0 {
		logger.Info("reusing existing output", "output_id", tgt.existingID)
		return &Output{ID: tgt.existingID, Reused: true}, nil
	}

	workCtx, cancel := context.WithTimeout(ctx, timeout)
	result, err := p.work(workCtx)
	timedOut := errors.Is(workCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		return nil, recordFailure(ctx, st, p, tgt, jobID, err, timedOut, logger)
	}

	var outputID int64
	err = st.WithinTx(ctx, func(q store.Queries) error {
		id, err := p.complete(ctx, q, result)
		if err != nil {
			return err
		}
		outputID = id
		if _, err := q.AdvanceURLStatus(ctx, tgt.urlID, p.doneStatus); err != nil {
			return fmt.Errorf("advancing url status: %w", err)
		}
		return q.UpdateJobStatus(ctx, jobID, models.JobStatusSuccess)
	})
	if err != nil {
		if p.discard != nil {
			p.discard(result)
		}
		return nil, recordFailure(ctx, st, p, tgt, jobID, err, false, logger)
	}

	logger.Info("stage completed", "output_id", outputID, "url_id", tgt.urlID)
	return &Output{ID: outputID}, nil
}

// recordFailure commits the failed job, one dead letter and the URL failure
// status together, then returns the StageError for the caller.
func recordFailure[T any](ctx context.Context, st store.Store, p plan[T], tgt target, jobID int64, cause error, timedOut bool, logger *slog.Logger) error {
	reason := reasonException(p.stage)
	if timedOut {
		reason = reasonTimeout(p.stage)
	}
	msg := cause.Error()

	stageErr := &StageError{
		Stage:        p.stage,
		ResourceType: p.resourceType,
		ResourceID:   p.resourceID,
		URLID:        tgt.urlID,
		Reason:       reason,
		Err:          cause,
	}

	ctx = context.WithoutCancel(ctx)
	err := st.WithinTx(ctx, func(q store.Queries) error {
		if jobID != 0 {
			if err := q.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(msg)); err != nil {
				return fmt.Errorf("marking job failed: %w", err)
			}
		} else {
			now := time.Now().UTC()
			if err := q.CreateJob(ctx, &models.Job{
				JobType:      p.stage,
				ResourceType: p.resourceType,
				ResourceID:   p.resourceID,
				Status:       models.JobStatusFailed,
				ErrorMessage: &msg,
				Retries:      tgt.retries,
				StartedAt:    &now,
				FinishedAt:   &now,
			}); err != nil {
				return fmt.Errorf("creating failed job: %w", err)
			}
		}

		if err := q.CreateDeadLetter(ctx, &models.DeadLetter{
			Stage:        p.stage,
			ResourceType: p.resourceType,
			ResourceID:   p.resourceID,
			Reason:       &reason,
			ErrorPayload: map[string]any{
				"error":   msg,
				"url_id":  tgt.urlID,
				"timeout": timedOut,
			},
		}); err != nil {
			return fmt.Errorf("creating dead letter: %w", err)
		}

		if tgt.urlID == 0 {
			return nil
		}
		u, err := q.GetURL(ctx, tgt.urlID)
		if err != nil {
			return fmt.Errorf("loading url: %w", err)
		}
		return q.SetURLStatus(ctx, u.ID, failureStatus(u.Status, p.failStatus),
			store.WithLastError(msg),
			store.WithRetryIncrement(p.stage),
		)
	})
	if err != nil {
		logger.Error("failed to record stage failure", "error", err, "cause", msg)
	} else {
		logger.Warn("stage failed", "reason", reason, "url_id", tgt.urlID, "error", msg)
	}
	return stageErr
}

// failureStatus never moves a URL below progress it has already made.
func failureStatus(current, want models.URLStatus) models.URLStatus {
	if want == "" || current.Rank() > want.Rank() {
		return current
	}
	return want
}
