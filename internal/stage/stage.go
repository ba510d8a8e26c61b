// Package stage implements the pipeline stages. Each stage turns one upstream
// resource id into one derived resource id, reusing prior output when it exists.
package stage

import (
	"context"
	"time"

	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// DefaultTimeout bounds the external operation of a stage.
const DefaultTimeout = 30 * time.Minute

// Output is the derived resource a stage produced or reused.
type Output struct {
	ID     int64 `json:"id"`
	Reused bool  `json:"reused"`
}

// Executor runs one stage. A nil Output with a nil error means the input row
// does not exist; nothing is recorded in that case.
type Executor interface {
	Stage() models.Stage
	Run(ctx context.Context, inputID int64) (*Output, error)
}

// FailurePolicy decides where a failed transcription leaves the URL.
type FailurePolicy string

const (
	// PolicyRollback returns the URL to downloaded so the stage can be retried.
	PolicyRollback FailurePolicy = "rollback"
	// PolicyMarkFailed parks the URL in transcription_failed for operator review.
	PolicyMarkFailed FailurePolicy = "mark_failed"
)

func (p FailurePolicy) status() models.URLStatus {
	if p == PolicyMarkFailed {
		return models.URLStatusTranscriptionFailed
	}
	return models.URLStatusDownloaded
}
