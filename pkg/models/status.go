// Package models contains shared data models used across the pipeline codebase.
package models

// URLStatus is the lifecycle state of a work item.
type URLStatus string

const (
	URLStatusPendingIngest       URLStatus = "pending_ingest"
	URLStatusQueued              URLStatus = "queued"
	URLStatusDownloading         URLStatus = "downloading"
	URLStatusDownloaded          URLStatus = "downloaded"
	URLStatusDownloadFailed      URLStatus = "download_failed"
	URLStatusTranscribed         URLStatus = "transcribed"
	URLStatusTranscriptionFailed URLStatus = "transcription_failed"
	URLStatusCategorized         URLStatus = "categorized"
)

// urlStatusRank orders statuses by how far the item has progressed.
// Failure states share the rank of the state they were entered from.
var urlStatusRank = map[URLStatus]int{
	URLStatusPendingIngest:       0,
	URLStatusQueued:              1,
	URLStatusDownloading:         2,
	URLStatusDownloadFailed:      2,
	URLStatusDownloaded:          3,
	URLStatusTranscriptionFailed: 3,
	URLStatusTranscribed:         4,
	URLStatusCategorized:         5,
}

// Valid reports whether s is one of the known statuses.
func (s URLStatus) Valid() bool {
	_, ok := urlStatusRank[s]
	return ok
}

// Rank returns the progress rank of s, or -1 for unknown statuses.
func (s URLStatus) Rank() int {
	r, ok := urlStatusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Failed reports whether s is a failure state awaiting resubmission.
func (s URLStatus) Failed() bool {
	return s == URLStatusDownloadFailed || s == URLStatusTranscriptionFailed
}

// Resubmittable reports whether a URL in status s may go back to
// pending_ingest. Failure states always qualify, and so does any unfinished
// URL carrying a last error, such as a transcription rolled back to
// downloaded. A URL named explicitly qualifies whenever it is unfinished, so
// a chain lost in flight can be restarted.
func (s URLStatus) Resubmittable(hasError, explicit bool) bool {
	if s == URLStatusPendingIngest || s == URLStatusCategorized || !s.Valid() {
		return false
	}
	return s.Failed() || hasError || explicit
}

// Stage names one pipeline phase.
type Stage string

const (
	StageDownload       Stage = "download"
	StageTranscription  Stage = "transcription"
	StageCategorization Stage = "categorization"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageDownload, StageTranscription, StageCategorization:
		return true
	}
	return false
}

// ResourceType names the kind of row a job or dead letter refers to.
type ResourceType string

const (
	ResourceURL        ResourceType = "url"
	ResourceVideo      ResourceType = "video"
	ResourceTranscript ResourceType = "transcript"
)

// JobStatus is the state of a single stage attempt.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// VideoStatus is the storage state of a downloaded artifact.
type VideoStatus string

const (
	VideoStatusStored  VideoStatus = "stored"
	VideoStatusDeleted VideoStatus = "deleted"
)

// ArtifactStatus is shared by transcripts and metadata.
type ArtifactStatus string

const (
	ArtifactStatusPending ArtifactStatus = "pending"
	ArtifactStatusReady   ArtifactStatus = "ready"
	ArtifactStatusFailed  ArtifactStatus = "failed"
)
