// Package pipeline chains the stage executors and feeds them work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/stage"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// Submitter hands a task to the worker pool. *tasks.Dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, t tasks.Task) (uuid.UUID, error)
}

// Starter begins the chain for one URL and returns the chain handle.
type Starter interface {
	Start(ctx context.Context, urlID int64) (uuid.UUID, error)
}

// Orchestrator runs the registered stages in order for one URL.
type Orchestrator struct {
	submitter Submitter
	stages    []stage.Executor
}

// NewOrchestrator registers stages in the order they run. The output id of
// each stage is the input id of the next.
func NewOrchestrator(submitter Submitter, stages ...stage.Executor) *Orchestrator {
	return &Orchestrator{submitter: submitter, stages: stages}
}

// Stages returns the registered stage names in order.
func (o *Orchestrator) Stages() []models.Stage {
	out := make([]models.Stage, len(o.stages))
	for i, s := range o.stages {
		out[i] = s.Stage()
	}
	return out
}

// Start enqueues the chain for urlID and returns without waiting for it.
func (o *Orchestrator) Start(ctx context.Context, urlID int64) (uuid.UUID, error) {
	id, err := o.submitter.Submit(ctx, tasks.Task{Kind: tasks.KindPipeline, URLID: urlID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("starting pipeline for url %d: %w", urlID, err)
	}
	slog.Info("pipeline started", "url_id", urlID, "task_id", id)
	return id, nil
}

// StageResult is the outcome of one stage inside a run.
type StageResult struct {
	Stage    models.Stage `json:"stage"`
	OutputID int64        `json:"output_id"`
	Reused   bool         `json:"reused"`
}

// RunResult summarizes a chain run. Completed is true when every stage produced output.
type RunResult struct {
	URLID     int64         `json:"url_id"`
	Stages    []StageResult `json:"stages"`
	Completed bool          `json:"completed"`
	StoppedAt models.Stage  `json:"stopped_at,omitempty"`
}

// Run executes every stage for urlID in order. It stops at the first stage
// that fails or finds no input, and never retries.
func (o *Orchestrator) Run(ctx context.Context, urlID int64) (*RunResult, error) {
	res := &RunResult{URLID: urlID, Stages: []StageResult{}}
	logger := slog.With("url_id", urlID)

	input := urlID
	for _, s := range o.stages {
		out, err := s.Run(ctx, input)
		if err != nil {
			res.StoppedAt = s.Stage()
			logger.Warn("pipeline stopped", "stage", s.Stage(), "error", err)
			return res, err
		}
		if out == nil {
			res.StoppedAt = s.Stage()
			logger.Warn("pipeline stopped, stage had no input", "stage", s.Stage(), "input_id", input)
			return res, nil
		}
		res.Stages = append(res.Stages, StageResult{Stage: s.Stage(), OutputID: out.ID, Reused: out.Reused})
		input = out.ID
	}

	res.Completed = true
	logger.Info("pipeline completed", "stages", len(res.Stages))
	return res, nil
}

// HandleTask adapts Run to the worker pool.
func (o *Orchestrator) HandleTask(ctx context.Context, t tasks.Task) (any, error) {
	return o.Run(ctx, t.URLID)
}
