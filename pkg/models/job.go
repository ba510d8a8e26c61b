package models

import (
	"time"
)

// Job is the append-only audit row written for every stage attempt. A retry
// creates a new row; a row is never changed after FinishedAt is set.
type Job struct {
	ID           int64        `db:"id"            json:"id"`
	JobType      Stage        `db:"job_type"      json:"job_type"`
	ResourceType ResourceType `db:"resource_type" json:"resource_type"`
	ResourceID   int64        `db:"resource_id"   json:"resource_id"`
	Status       JobStatus    `db:"status"        json:"status"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	Retries      int          `db:"retries"       json:"retries"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	StartedAt    *time.Time   `db:"started_at"    json:"started_at,omitempty"`
	FinishedAt   *time.Time   `db:"finished_at"   json:"finished_at,omitempty"`
}

// DeadLetter records one failed stage attempt for operator diagnosis.
// The pipeline writes these but never reads them.
type DeadLetter struct {
	ID           int64          `db:"id"            json:"id"`
	Stage        Stage          `db:"stage"         json:"stage"`
	ResourceType ResourceType   `db:"resource_type" json:"resource_type"`
	ResourceID   int64          `db:"resource_id"   json:"resource_id"`
	Reason       *string        `db:"reason"        json:"reason,omitempty"`
	ErrorPayload map[string]any `db:"error_payload" json:"error_payload,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
}
