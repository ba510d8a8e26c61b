package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	*queries
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{queries: &queries{db: pool}, pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithinTx runs fn inside a single transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queries struct {
	db dbtx
}

// --- URLs ---

const urlColumns = `id, raw_url, type, status, retry_count_download, retry_count_transcription,
	retry_count_categorization, last_error, batch_date, created_at, updated_at`

func scanURL(row pgx.Row) (*models.URL, error) {
	var u models.URL
	err := row.Scan(&u.ID, &u.RawURL, &u.Type, &u.Status, &u.RetryCountDownload,
		&u.RetryCountTranscription, &u.RetryCountCategorization, &u.LastError,
		&u.BatchDate, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectURLs(rows pgx.Rows) ([]*models.URL, error) {
	defer rows.Close()
	var urls []*models.URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (q *queries) GetURL(ctx context.Context, id int64) (*models.URL, error) {
	u, err := scanURL(q.db.QueryRow(ctx, `SELECT `+urlColumns+` FROM urls WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get url: %w", err)
	}
	return u, nil
}

func (q *queries) FindURLByRawURL(ctx context.Context, rawURL string) (*models.URL, error) {
	u, err := scanURL(q.db.QueryRow(ctx,
		`SELECT `+urlColumns+` FROM urls WHERE raw_url = $1 ORDER BY id DESC LIMIT 1`, rawURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find url by raw url: %w", err)
	}
	return u, nil
}

func (q *queries) CreateURL(ctx context.Context, u *models.URL) error {
	if u.Type == "" {
		u.Type = models.DefaultURLType
	}
	if u.Status == "" {
		u.Status = models.URLStatusPendingIngest
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO urls (raw_url, type, status, batch_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		u.RawURL, u.Type, u.Status, u.BatchDate,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create url: %w", err)
	}
	return nil
}

func (q *queries) ListURLs(ctx context.Context, filter URLFilter) ([]*models.URL, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + urlColumns + ` FROM urls`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	return collectURLs(rows)
}

func (q *queries) AdvanceURLStatus(ctx context.Context, id int64, to models.URLStatus) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown url status %q", ErrInvalidTransition, to)
	}

	var current models.URLStatus
	err := q.db.QueryRow(ctx, `SELECT status FROM urls WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("get url status: %w", err)
	}

	if to.Rank() <= current.Rank() {
		return false, nil
	}

	_, err = q.db.Exec(ctx,
		`UPDATE urls SET status = $2, updated_at = GREATEST(updated_at, NOW()) WHERE id = $1`, id, to)
	if err != nil {
		return false, fmt.Errorf("advance url status: %w", err)
	}
	return true, nil
}

func (q *queries) SetURLStatus(ctx context.Context, id int64, status models.URLStatus, opts ...URLUpdateOption) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown url status %q", ErrInvalidTransition, status)
	}
	lastError, increment := ApplyURLOptions(opts...)

	query := `UPDATE urls SET status = $2, updated_at = GREATEST(updated_at, NOW())`
	args := []any{id, status}
	argIdx := 3

	if lastError != nil {
		query += fmt.Sprintf(", last_error = $%d", argIdx)
		args = append(args, *lastError)
		argIdx++
	}
	if col := retryColumn(increment); col != "" {
		query += fmt.Sprintf(", %s = %s + 1", col, col)
	}
	query += " WHERE id = $1"

	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set url status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *queries) ClaimPendingURLs(ctx context.Context, limit int) ([]*models.URL, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`UPDATE urls SET status = $1, updated_at = GREATEST(updated_at, NOW())
		 WHERE id IN (
		   SELECT id FROM urls WHERE status = $2
		   ORDER BY id ASC
		   LIMIT $3
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+urlColumns,
		models.URLStatusQueued, models.URLStatusPendingIngest, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending urls: %w", err)
	}
	urls, err := collectURLs(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].ID < urls[j].ID })
	return urls, nil
}

func (q *queries) ResubmitFailedURLs(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE urls SET status = $1, last_error = NULL, updated_at = GREATEST(updated_at, NOW())
		 WHERE status NOT IN ($1, $2)`
	args := []any{models.URLStatusPendingIngest, models.URLStatusCategorized}
	if len(ids) > 0 {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	} else {
		query += ` AND (status IN ($3, $4) OR last_error IS NOT NULL)`
		args = append(args, models.URLStatusDownloadFailed, models.URLStatusTranscriptionFailed)
	}
	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("resubmit failed urls: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Videos ---

const videoColumns = `id, url_id, storage_key, format, filesize_bytes, duration_seconds, status, created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.URLID, &v.StorageKey, &v.Format, &v.FilesizeBytes,
		&v.DurationSeconds, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (q *queries) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	v, err := scanVideo(q.db.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

func (q *queries) LatestStoredVideo(ctx context.Context, urlID int64) (*models.Video, error) {
	v, err := scanVideo(q.db.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE url_id = $1 AND status = $2 ORDER BY id DESC LIMIT 1`,
		urlID, models.VideoStatusStored))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest stored video: %w", err)
	}
	return v, nil
}

func (q *queries) CreateVideo(ctx context.Context, v *models.Video) error {
	if v.Status == "" {
		v.Status = models.VideoStatusStored
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO videos (url_id, storage_key, format, filesize_bytes, duration_seconds, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		v.URLID, v.StorageKey, v.Format, v.FilesizeBytes, v.DurationSeconds, v.Status,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

// --- Transcripts ---

const transcriptColumns = `id, video_id, engine, language, full_text, status, created_at, updated_at`

func scanTranscript(row pgx.Row) (*models.Transcript, error) {
	var t models.Transcript
	err := row.Scan(&t.ID, &t.VideoID, &t.Engine, &t.Language, &t.FullText, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) GetTranscript(ctx context.Context, id int64) (*models.Transcript, error) {
	t, err := scanTranscript(q.db.QueryRow(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return t, nil
}

func (q *queries) LatestReadyTranscript(ctx context.Context, videoID int64) (*models.Transcript, error) {
	t, err := scanTranscript(q.db.QueryRow(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE video_id = $1 AND status = $2 ORDER BY id DESC LIMIT 1`,
		videoID, models.ArtifactStatusReady))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest ready transcript: %w", err)
	}
	return t, nil
}

func (q *queries) CreateTranscript(ctx context.Context, t *models.Transcript) error {
	if t.Status == "" {
		t.Status = models.ArtifactStatusReady
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO transcripts (video_id, engine, language, full_text, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		t.VideoID, t.Engine, t.Language, t.FullText, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	return nil
}

// --- Metadata ---

const metadataColumns = `id, video_id, main_category, sub_category, tags, model_name, model_version, status, created_at, updated_at`

func (q *queries) GetMetadataByVideo(ctx context.Context, videoID int64) (*models.VideoMetadata, error) {
	var m models.VideoMetadata
	err := q.db.QueryRow(ctx, `SELECT `+metadataColumns+` FROM video_metadata WHERE video_id = $1`, videoID).
		Scan(&m.ID, &m.VideoID, &m.MainCategory, &m.SubCategory, &m.Tags, &m.ModelName,
			&m.ModelVersion, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata by video: %w", err)
	}
	return &m, nil
}

func (q *queries) UpsertMetadata(ctx context.Context, m *models.VideoMetadata) error {
	if m.Status == "" {
		m.Status = models.ArtifactStatusPending
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO video_metadata (video_id, main_category, sub_category, tags, model_name, model_version, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (video_id) DO UPDATE SET
		   main_category = EXCLUDED.main_category,
		   sub_category = EXCLUDED.sub_category,
		   tags = EXCLUDED.tags,
		   model_name = EXCLUDED.model_name,
		   model_version = EXCLUDED.model_version,
		   status = EXCLUDED.status,
		   updated_at = GREATEST(video_metadata.updated_at, NOW())
		 RETURNING id, created_at, updated_at`,
		m.VideoID, m.MainCategory, m.SubCategory, m.Tags, m.ModelName, m.ModelVersion, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, job_type, resource_type, resource_id, status, error_message, retries, created_at, started_at, finished_at`

func (q *queries) CreateJob(ctx context.Context, job *models.Job) error {
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	err := q.db.QueryRow(ctx,
		`INSERT INTO jobs (job_type, resource_type, resource_id, status, error_message, retries, created_at, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		job.JobType, job.ResourceType, job.ResourceID, job.Status, job.ErrorMessage, job.Retries,
		job.CreatedAt, job.StartedAt, job.FinishedAt,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (q *queries) UpdateJobStatus(ctx context.Context, id int64, status models.JobStatus, opts ...JobUpdateOption) error {
	errorMessage := ApplyJobOptions(opts...)

	var currentStatus models.JobStatus
	err := q.db.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	if !ValidJobTransition(currentStatus, status) {
		return fmt.Errorf("%w: job %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2`
	args := []any{id, status}
	argIdx := 3

	if status == models.JobStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status.Terminal() {
		query += fmt.Sprintf(", finished_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if errorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *errorMessage)
	}

	query += " WHERE id = $1"

	if _, err := q.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (q *queries) ListJobsForURL(ctx context.Context, urlID int64) ([]*models.Job, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE (resource_type = 'url' AND resource_id = $1)
		    OR (resource_type = 'video' AND resource_id IN (SELECT id FROM videos WHERE url_id = $1))
		    OR (resource_type = 'transcript' AND resource_id IN (
		          SELECT t.id FROM transcripts t JOIN videos v ON v.id = t.video_id WHERE v.url_id = $1))
		 ORDER BY created_at ASC, id ASC`, urlID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for url: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.JobType, &j.ResourceType, &j.ResourceID, &j.Status,
			&j.ErrorMessage, &j.Retries, &j.CreatedAt, &j.StartedAt, &j.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// --- Dead letters ---

func (q *queries) CreateDeadLetter(ctx context.Context, d *models.DeadLetter) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO dlq (stage, resource_type, resource_id, reason, error_payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		d.Stage, d.ResourceType, d.ResourceID, d.Reason, d.ErrorPayload,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create dead letter: %w", err)
	}
	return nil
}

func (q *queries) ListDeadLetters(ctx context.Context, filter DeadLetterFilter) ([]*models.DeadLetter, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT id, stage, resource_type, resource_id, reason, error_payload, created_at FROM dlq`
	args := []any{}
	if filter.Stage != "" {
		query += ` WHERE stage = $1`
		args = append(args, filter.Stage)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var entries []*models.DeadLetter
	for rows.Next() {
		var d models.DeadLetter
		if err := rows.Scan(&d.ID, &d.Stage, &d.ResourceType, &d.ResourceID, &d.Reason,
			&d.ErrorPayload, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		entries = append(entries, &d)
	}
	return entries, rows.Err()
}

// --- Search ---

func (q *queries) SearchTranscripts(ctx context.Context, query string, limit int) ([]*models.TranscriptMatch, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := "%" + escapeLike(query) + "%"

	rows, err := q.db.Query(ctx,
		`SELECT t.id, t.video_id, t.engine, t.language, t.full_text, t.status, t.created_at, t.updated_at,
		        v.id, v.url_id, v.storage_key, v.format, v.filesize_bytes, v.duration_seconds, v.status, v.created_at, v.updated_at,
		        u.id, u.raw_url, u.type, u.status, u.created_at, u.updated_at
		 FROM transcripts t
		 JOIN videos v ON v.id = t.video_id
		 JOIN urls u ON u.id = v.url_id
		 WHERE t.status = $1 AND t.full_text ILIKE $2 ESCAPE '\'
		 ORDER BY t.id ASC
		 LIMIT $3`,
		models.ArtifactStatusReady, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}
	defer rows.Close()

	var matches []*models.TranscriptMatch
	for rows.Next() {
		var m models.TranscriptMatch
		t, v, u := &m.Transcript, &m.Video, &m.URL
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Engine, &t.Language, &t.FullText, &t.Status, &t.CreatedAt, &t.UpdatedAt,
			&v.ID, &v.URLID, &v.StorageKey, &v.Format, &v.FilesizeBytes, &v.DurationSeconds, &v.Status, &v.CreatedAt, &v.UpdatedAt,
			&u.ID, &u.RawURL, &u.Type, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// --- API Keys ---

func (q *queries) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return collectAPIKeys(rows)
}

func (q *queries) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (q *queries) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (q *queries) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return collectAPIKeys(rows)
}

func collectAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
