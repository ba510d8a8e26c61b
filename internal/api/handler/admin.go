package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/vslpipeline/internal/api/middleware"
	"github.com/kiranshivaraju/vslpipeline/internal/api/response"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// IngestController starts batch passes and resubmits failed URLs.
type IngestController interface {
	Trigger(ctx context.Context, batchSize *int) (uuid.UUID, int, error)
	Resubmit(ctx context.Context, ids ...int64) (int64, error)
}

// TaskLookup reads the status of a queued task.
type TaskLookup interface {
	Lookup(ctx context.Context, taskID uuid.UUID) (*tasks.Status, bool, error)
}

// DeadLetterLister reads the dead letter queue.
type DeadLetterLister interface {
	ListDeadLetters(ctx context.Context, filter store.DeadLetterFilter) ([]*models.DeadLetter, error)
}

type ingestResponse struct {
	Status    string    `json:"status"`
	BatchSize int       `json:"batch_size"`
	TaskID    uuid.UUID `json:"task_id"`
}

// NewRunIngestHandler returns POST /admin/run_ingest_now. The body is
// optional; a batch_size that is not positive is rejected before anything is
// enqueued.
func NewRunIngestHandler(ctrl IngestController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BatchSize *int `json:"batch_size"`
		}
		if err := decodeBody(w, r, &req, true); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		id, size, err := ctrl.Trigger(r.Context(), req.BatchSize)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidBatchSize) {
				response.Error(w, http.StatusBadRequest, "INVALID_BATCH_SIZE",
					"batch_size must be a positive integer", nil)
				return
			}
			slog.Error("trigger ingest failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE",
				"Could not enqueue the ingest task", nil)
			return
		}

		slog.Info("manual ingest requested", "key", mw.KeyName(r), "task_id", id, "batch_size", size)
		response.Accepted(w, ingestResponse{Status: "started", BatchSize: size, TaskID: id})
	}
}

// NewResubmitHandler returns POST /admin/resubmit. Without url_ids every
// failed URL, and every unfinished URL with a last error, is resubmitted.
// Listed url_ids are resubmitted whenever they are unfinished.
func NewResubmitHandler(ctrl IngestController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URLIDs []int64 `json:"url_ids"`
		}
		if err := decodeBody(w, r, &req, true); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		n, err := ctrl.Resubmit(r.Context(), req.URLIDs...)
		if err != nil {
			slog.Error("resubmit failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		slog.Info("failed urls resubmitted", "key", mw.KeyName(r), "count", n)
		response.JSON(w, map[string]int64{"resubmitted": n})
	}
}

// NewTaskStatusHandler returns GET /admin/tasks/{taskID}.
func NewTaskStatusHandler(lookup TaskLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "taskID must be a UUID", nil)
			return
		}

		status, found, err := lookup.Lookup(r.Context(), taskID)
		if err != nil {
			slog.Error("task lookup failed", "task_id", taskID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if !found {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Task not found or expired", nil)
			return
		}
		response.JSON(w, status)
	}
}

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 500
)

// NewDeadLettersHandler returns GET /admin/dlq?stage=&limit=, newest first.
func NewDeadLettersHandler(lister DeadLetterLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.DeadLetterFilter{Limit: defaultDeadLetterLimit}

		if s := r.URL.Query().Get("stage"); s != "" {
			filter.Stage = models.Stage(s)
			if !filter.Stage.Valid() {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"stage must be one of download, transcription, categorization", nil)
				return
			}
		}
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			filter.Limit = min(n, maxDeadLetterLimit)
		}

		items, err := lister.ListDeadLetters(r.Context(), filter)
		if err != nil {
			slog.Error("list dead letters failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if items == nil {
			items = []*models.DeadLetter{}
		}
		response.List(w, items, response.ListMeta{Count: len(items), Limit: filter.Limit})
	}
}
