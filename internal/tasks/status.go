package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/cache"
)

// State is the lifecycle of a queued task, independent of the Job rows the
// stages write.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is what operators see when polling a task handle.
type Status struct {
	TaskID    uuid.UUID       `json:"task_id"`
	Kind      Kind            `json:"kind"`
	State     State           `json:"state"`
	URLID     int64           `json:"url_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StatusRecorder persists task status for polling.
type StatusRecorder interface {
	Record(ctx context.Context, s Status) error
	Lookup(ctx context.Context, taskID uuid.UUID) (*Status, bool, error)
}

// CacheStatusRecorder keeps task status in the cache with a TTL.
type CacheStatusRecorder struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCacheStatusRecorder(c cache.Cache, ttl time.Duration) *CacheStatusRecorder {
	return &CacheStatusRecorder{cache: c, ttl: ttl}
}

func (r *CacheStatusRecorder) Record(ctx context.Context, s Status) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode task status: %w", err)
	}
	return r.cache.SetTaskStatus(ctx, s.TaskID, b, r.ttl)
}

func (r *CacheStatusRecorder) Lookup(ctx context.Context, taskID uuid.UUID) (*Status, bool, error) {
	b, found, err := r.cache.GetTaskStatus(ctx, taskID)
	if err != nil || !found {
		return nil, found, err
	}
	var s Status
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false, fmt.Errorf("decode task status: %w", err)
	}
	return &s, true, nil
}
