package models

import "time"

// DefaultURLType is the source type assumed when intake does not declare one.
const DefaultURLType = "m3u8"

// URL is one source reference tracked through the pipeline. It is the root of
// the derivation chain URL -> Video -> Transcript -> VideoMetadata.
type URL struct {
	ID                       int64      `db:"id"                         json:"id"`
	RawURL                   string     `db:"raw_url"                    json:"raw_url"`
	Type                     string     `db:"type"                       json:"type"`
	Status                   URLStatus  `db:"status"                     json:"status"`
	RetryCountDownload       int        `db:"retry_count_download"       json:"retry_count_download"`
	RetryCountTranscription  int        `db:"retry_count_transcription"  json:"retry_count_transcription"`
	RetryCountCategorization int        `db:"retry_count_categorization" json:"retry_count_categorization"`
	LastError                *string    `db:"last_error"                 json:"last_error,omitempty"`
	BatchDate                *time.Time `db:"batch_date"                 json:"batch_date,omitempty"`
	CreatedAt                time.Time  `db:"created_at"                 json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"                 json:"updated_at"`
}

// RetryCount returns the failed-attempt counter for the given stage.
func (u *URL) RetryCount(stage Stage) int {
	switch stage {
	case StageDownload:
		return u.RetryCountDownload
	case StageTranscription:
		return u.RetryCountTranscription
	case StageCategorization:
		return u.RetryCountCategorization
	}
	return 0
}
