package models

import "time"

// Video is a downloaded media file owned by exactly one URL.
type Video struct {
	ID              int64       `db:"id"               json:"id"`
	URLID           int64       `db:"url_id"           json:"url_id"`
	StorageKey      string      `db:"storage_key"      json:"storage_key"`
	Format          *string     `db:"format"           json:"format,omitempty"`
	FilesizeBytes   *int64      `db:"filesize_bytes"   json:"filesize_bytes,omitempty"`
	DurationSeconds *int        `db:"duration_seconds" json:"duration_seconds,omitempty"`
	Status          VideoStatus `db:"status"           json:"status"`
	CreatedAt       time.Time   `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"       json:"updated_at"`
}

// Transcript is the speech-to-text output for one Video.
type Transcript struct {
	ID        int64          `db:"id"         json:"id"`
	VideoID   int64          `db:"video_id"   json:"video_id"`
	Engine    string         `db:"engine"     json:"engine"`
	Language  *string        `db:"language"   json:"language,omitempty"`
	FullText  string         `db:"full_text"  json:"full_text"`
	Status    ArtifactStatus `db:"status"     json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// VideoMetadata holds the categorization of a Video. At most one row exists per video.
type VideoMetadata struct {
	ID           int64          `db:"id"            json:"id"`
	VideoID      int64          `db:"video_id"      json:"video_id"`
	MainCategory *string        `db:"main_category" json:"main_category,omitempty"`
	SubCategory  *string        `db:"sub_category"  json:"sub_category,omitempty"`
	Tags         []string       `db:"tags"          json:"tags"`
	ModelName    *string        `db:"model_name"    json:"model_name,omitempty"`
	ModelVersion *string        `db:"model_version" json:"model_version,omitempty"`
	Status       ArtifactStatus `db:"status"        json:"status"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"    json:"updated_at"`
}

// TranscriptMatch is one search hit: a ready transcript joined to its video and URL.
type TranscriptMatch struct {
	Transcript Transcript
	Video      Video
	URL        URL
}
