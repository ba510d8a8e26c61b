package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Queries is the data access surface. Every read and write goes through here,
// either directly against the pool or inside a WithinTx scope.
type Queries interface {
	GetURL(ctx context.Context, id int64) (*models.URL, error)
	FindURLByRawURL(ctx context.Context, rawURL string) (*models.URL, error)
	CreateURL(ctx context.Context, u *models.URL) error
	ListURLs(ctx context.Context, filter URLFilter) ([]*models.URL, error)
	AdvanceURLStatus(ctx context.Context, id int64, to models.URLStatus) (bool, error)
	SetURLStatus(ctx context.Context, id int64, status models.URLStatus, opts ...URLUpdateOption) error
	ClaimPendingURLs(ctx context.Context, limit int) ([]*models.URL, error)
	ResubmitFailedURLs(ctx context.Context, ids ...int64) (int64, error)

	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	LatestStoredVideo(ctx context.Context, urlID int64) (*models.Video, error)
	CreateVideo(ctx context.Context, v *models.Video) error

	GetTranscript(ctx context.Context, id int64) (*models.Transcript, error)
	LatestReadyTranscript(ctx context.Context, videoID int64) (*models.Transcript, error)
	CreateTranscript(ctx context.Context, t *models.Transcript) error

	GetMetadataByVideo(ctx context.Context, videoID int64) (*models.VideoMetadata, error)
	UpsertMetadata(ctx context.Context, m *models.VideoMetadata) error

	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, id int64, status models.JobStatus, opts ...JobUpdateOption) error
	ListJobsForURL(ctx context.Context, urlID int64) ([]*models.Job, error)

	CreateDeadLetter(ctx context.Context, d *models.DeadLetter) error
	ListDeadLetters(ctx context.Context, filter DeadLetterFilter) ([]*models.DeadLetter, error)

	SearchTranscripts(ctx context.Context, query string, limit int) ([]*models.TranscriptMatch, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
}

// Store is Queries plus connectivity and the scoped unit of work.
type Store interface {
	Queries
	Ping(ctx context.Context) error
	// WithinTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back when fn returns an error or panics.
	WithinTx(ctx context.Context, fn func(q Queries) error) error
}

type URLFilter struct {
	Status models.URLStatus
	Limit  int
}

type DeadLetterFilter struct {
	Stage models.Stage
	Limit int
}

type urlUpdateParams struct {
	LastError      *string
	IncrementRetry models.Stage
}

type URLUpdateOption func(*urlUpdateParams)

func WithLastError(msg string) URLUpdateOption {
	return func(p *urlUpdateParams) {
		p.LastError = &msg
	}
}

// WithRetryIncrement bumps the failed-attempt counter of the given stage.
func WithRetryIncrement(stage models.Stage) URLUpdateOption {
	return func(p *urlUpdateParams) {
		p.IncrementRetry = stage
	}
}

type jobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// ApplyURLOptions resolves options for alternative Store implementations.
func ApplyURLOptions(opts ...URLUpdateOption) (lastError *string, increment models.Stage) {
	p := &urlUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p.LastError, p.IncrementRetry
}

// ApplyJobOptions resolves options for alternative Store implementations.
func ApplyJobOptions(opts ...JobUpdateOption) (errorMessage *string) {
	p := &jobUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	return p.ErrorMessage
}

var validJobTransitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusQueued:  {models.JobStatusRunning},
	models.JobStatusRunning: {models.JobStatusSuccess, models.JobStatusFailed},
}

// ValidJobTransition reports whether a job may move from one status to another.
func ValidJobTransition(from, to models.JobStatus) bool {
	for _, a := range validJobTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func retryColumn(stage models.Stage) string {
	switch stage {
	case models.StageDownload:
		return "retry_count_download"
	case models.StageTranscription:
		return "retry_count_transcription"
	case models.StageCategorization:
		return "retry_count_categorization"
	}
	return ""
}
