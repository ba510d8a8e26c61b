// Package testsupport provides in-memory implementations of the store and
// cache for unit tests.
package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// MemStore is an in-memory store.Store. WithinTx works on a snapshot that is
// swapped in on success and discarded on error or panic, and transactions are
// serialized, which matches the row-level exclusivity the pipeline relies on.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *memData

	// FailOn makes the named operation return the error, for fault injection.
	FailOn map[string]error
}

type memData struct {
	nextID      int64
	urls        map[int64]*models.URL
	videos      map[int64]*models.Video
	transcripts map[int64]*models.Transcript
	metadata    map[int64]*models.VideoMetadata
	jobs        map[int64]*models.Job
	deadLetters map[int64]*models.DeadLetter
	apiKeys     map[uuid.UUID]*models.APIKey
}

func NewMemStore() *MemStore {
	return &MemStore{data: newMemData(), FailOn: map[string]error{}}
}

func newMemData() *memData {
	return &memData{
		urls:        map[int64]*models.URL{},
		videos:      map[int64]*models.Video{},
		transcripts: map[int64]*models.Transcript{},
		metadata:    map[int64]*models.VideoMetadata{},
		jobs:        map[int64]*models.Job{},
		deadLetters: map[int64]*models.DeadLetter{},
		apiKeys:     map[uuid.UUID]*models.APIKey{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.nextID = d.nextID
	for k, v := range d.urls {
		cp := *v
		c.urls[k] = &cp
	}
	for k, v := range d.videos {
		cp := *v
		c.videos[k] = &cp
	}
	for k, v := range d.transcripts {
		cp := *v
		c.transcripts[k] = &cp
	}
	for k, v := range d.metadata {
		cp := *v
		cp.Tags = append([]string(nil), v.Tags...)
		c.metadata[k] = &cp
	}
	for k, v := range d.jobs {
		cp := *v
		c.jobs[k] = &cp
	}
	for k, v := range d.deadLetters {
		cp := *v
		c.deadLetters[k] = &cp
	}
	for k, v := range d.apiKeys {
		cp := *v
		c.apiKeys[k] = &cp
	}
	return c
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

func (s *MemStore) Ping(_ context.Context) error { return s.fail("Ping") }

func (s *MemStore) fail(op string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn[op]
}

// WithinTx runs fn against a private copy of the data.
func (s *MemStore) WithinTx(ctx context.Context, fn func(q store.Queries) error) error {
	if err := s.fail("WithinTx"); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	tx := &memQueries{store: s, data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

// direct runs fn against the live data so each call commits immediately.
func (s *MemStore) direct(fn func(q *memQueries) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memQueries{store: s, data: s.data})
}

// Snapshot helpers for assertions.

func (s *MemStore) URLs() []*models.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.URL, 0, len(s.data.urls))
	for _, u := range s.data.urls {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) Jobs() []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Job, 0, len(s.data.jobs))
	for _, j := range s.data.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) DeadLetters() []*models.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DeadLetter, 0, len(s.data.deadLetters))
	for _, d := range s.data.deadLetters {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) Videos() []*models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Video, 0, len(s.data.videos))
	for _, v := range s.data.videos {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) Transcripts() []*models.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Transcript, 0, len(s.data.transcripts))
	for _, t := range s.data.transcripts {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Queries delegated through direct ---

func (s *MemStore) GetURL(ctx context.Context, id int64) (u *models.URL, err error) {
	err = s.direct(func(q *memQueries) error { u, err = q.GetURL(ctx, id); return err })
	return
}

func (s *MemStore) FindURLByRawURL(ctx context.Context, raw string) (u *models.URL, err error) {
	err = s.direct(func(q *memQueries) error { u, err = q.FindURLByRawURL(ctx, raw); return err })
	return
}

func (s *MemStore) CreateURL(ctx context.Context, u *models.URL) error {
	return s.direct(func(q *memQueries) error { return q.CreateURL(ctx, u) })
}

func (s *MemStore) ListURLs(ctx context.Context, f store.URLFilter) (out []*models.URL, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.ListURLs(ctx, f); return err })
	return
}

func (s *MemStore) AdvanceURLStatus(ctx context.Context, id int64, to models.URLStatus) (moved bool, err error) {
	err = s.direct(func(q *memQueries) error { moved, err = q.AdvanceURLStatus(ctx, id, to); return err })
	return
}

func (s *MemStore) SetURLStatus(ctx context.Context, id int64, st models.URLStatus, opts ...store.URLUpdateOption) error {
	return s.direct(func(q *memQueries) error { return q.SetURLStatus(ctx, id, st, opts...) })
}

func (s *MemStore) ClaimPendingURLs(ctx context.Context, limit int) (out []*models.URL, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.ClaimPendingURLs(ctx, limit); return err })
	return
}

func (s *MemStore) ResubmitFailedURLs(ctx context.Context, ids ...int64) (n int64, err error) {
	err = s.direct(func(q *memQueries) error { n, err = q.ResubmitFailedURLs(ctx, ids...); return err })
	return
}

func (s *MemStore) GetVideo(ctx context.Context, id int64) (v *models.Video, err error) {
	err = s.direct(func(q *memQueries) error { v, err = q.GetVideo(ctx, id); return err })
	return
}

func (s *MemStore) LatestStoredVideo(ctx context.Context, urlID int64) (v *models.Video, err error) {
	err = s.direct(func(q *memQueries) error { v, err = q.LatestStoredVideo(ctx, urlID); return err })
	return
}

func (s *MemStore) CreateVideo(ctx context.Context, v *models.Video) error {
	return s.direct(func(q *memQueries) error { return q.CreateVideo(ctx, v) })
}

func (s *MemStore) GetTranscript(ctx context.Context, id int64) (t *models.Transcript, err error) {
	err = s.direct(func(q *memQueries) error { t, err = q.GetTranscript(ctx, id); return err })
	return
}

func (s *MemStore) LatestReadyTranscript(ctx context.Context, videoID int64) (t *models.Transcript, err error) {
	err = s.direct(func(q *memQueries) error { t, err = q.LatestReadyTranscript(ctx, videoID); return err })
	return
}

func (s *MemStore) CreateTranscript(ctx context.Context, t *models.Transcript) error {
	return s.direct(func(q *memQueries) error { return q.CreateTranscript(ctx, t) })
}

func (s *MemStore) GetMetadataByVideo(ctx context.Context, videoID int64) (m *models.VideoMetadata, err error) {
	err = s.direct(func(q *memQueries) error { m, err = q.GetMetadataByVideo(ctx, videoID); return err })
	return
}

func (s *MemStore) UpsertMetadata(ctx context.Context, m *models.VideoMetadata) error {
	return s.direct(func(q *memQueries) error { return q.UpsertMetadata(ctx, m) })
}

func (s *MemStore) CreateJob(ctx context.Context, j *models.Job) error {
	return s.direct(func(q *memQueries) error { return q.CreateJob(ctx, j) })
}

func (s *MemStore) UpdateJobStatus(ctx context.Context, id int64, st models.JobStatus, opts ...store.JobUpdateOption) error {
	return s.direct(func(q *memQueries) error { return q.UpdateJobStatus(ctx, id, st, opts...) })
}

func (s *MemStore) ListJobsForURL(ctx context.Context, urlID int64) (out []*models.Job, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.ListJobsForURL(ctx, urlID); return err })
	return
}

func (s *MemStore) CreateDeadLetter(ctx context.Context, d *models.DeadLetter) error {
	return s.direct(func(q *memQueries) error { return q.CreateDeadLetter(ctx, d) })
}

func (s *MemStore) ListDeadLetters(ctx context.Context, f store.DeadLetterFilter) (out []*models.DeadLetter, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.ListDeadLetters(ctx, f); return err })
	return
}

func (s *MemStore) SearchTranscripts(ctx context.Context, query string, limit int) (out []*models.TranscriptMatch, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.SearchTranscripts(ctx, query, limit); return err })
	return
}

func (s *MemStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (out []*models.APIKey, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.GetAPIKeyByPrefix(ctx, prefix); return err })
	return
}

func (s *MemStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	return s.direct(func(q *memQueries) error { return q.UpdateAPIKeyLastUsed(ctx, id) })
}

func (s *MemStore) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	return s.direct(func(q *memQueries) error { return q.CreateAPIKey(ctx, k) })
}

func (s *MemStore) ListAPIKeys(ctx context.Context) (out []*models.APIKey, err error) {
	err = s.direct(func(q *memQueries) error { out, err = q.ListAPIKeys(ctx); return err })
	return
}

// memQueries operates on one memData, either the live one or a tx snapshot.
type memQueries struct {
	store *MemStore
	data  *memData
}

func (q *memQueries) fail(op string) error { return q.store.fail(op) }

func (q *memQueries) GetURL(_ context.Context, id int64) (*models.URL, error) {
	if err := q.fail("GetURL"); err != nil {
		return nil, err
	}
	u, ok := q.data.urls[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (q *memQueries) FindURLByRawURL(_ context.Context, raw string) (*models.URL, error) {
	var found *models.URL
	for _, u := range q.data.urls {
		if u.RawURL == raw && (found == nil || u.ID > found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (q *memQueries) CreateURL(_ context.Context, u *models.URL) error {
	if err := q.fail("CreateURL"); err != nil {
		return err
	}
	for _, existing := range q.data.urls {
		if existing.RawURL == u.RawURL {
			return store.ErrDuplicateKey
		}
	}
	if u.Type == "" {
		u.Type = models.DefaultURLType
	}
	if u.Status == "" {
		u.Status = models.URLStatusPendingIngest
	}
	now := time.Now().UTC()
	u.ID = q.data.id()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	q.data.urls[u.ID] = &cp
	return nil
}

func (q *memQueries) ListURLs(_ context.Context, f store.URLFilter) ([]*models.URL, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []*models.URL
	for _, u := range q.data.urls {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func touch(t *time.Time) {
	if now := time.Now().UTC(); now.After(*t) {
		*t = now
	}
}

func (q *memQueries) AdvanceURLStatus(_ context.Context, id int64, to models.URLStatus) (bool, error) {
	if err := q.fail("AdvanceURLStatus"); err != nil {
		return false, err
	}
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown url status %q", store.ErrInvalidTransition, to)
	}
	u, ok := q.data.urls[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if to.Rank() <= u.Status.Rank() {
		return false, nil
	}
	u.Status = to
	touch(&u.UpdatedAt)
	return true, nil
}

func (q *memQueries) SetURLStatus(_ context.Context, id int64, st models.URLStatus, opts ...store.URLUpdateOption) error {
	if err := q.fail("SetURLStatus"); err != nil {
		return err
	}
	if !st.Valid() {
		return fmt.Errorf("%w: unknown url status %q", store.ErrInvalidTransition, st)
	}
	u, ok := q.data.urls[id]
	if !ok {
		return store.ErrNotFound
	}
	lastError, inc := store.ApplyURLOptions(opts...)
	u.Status = st
	if lastError != nil {
		msg := *lastError
		u.LastError = &msg
	}
	switch inc {
	case models.StageDownload:
		u.RetryCountDownload++
	case models.StageTranscription:
		u.RetryCountTranscription++
	case models.StageCategorization:
		u.RetryCountCategorization++
	}
	touch(&u.UpdatedAt)
	return nil
}

func (q *memQueries) ClaimPendingURLs(_ context.Context, limit int) ([]*models.URL, error) {
	if err := q.fail("ClaimPendingURLs"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	var pending []*models.URL
	for _, u := range q.data.urls {
		if u.Status == models.URLStatusPendingIngest {
			pending = append(pending, u)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]*models.URL, 0, len(pending))
	for _, u := range pending {
		u.Status = models.URLStatusQueued
		touch(&u.UpdatedAt)
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (q *memQueries) ResubmitFailedURLs(_ context.Context, ids ...int64) (int64, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, u := range q.data.urls {
		if len(ids) > 0 && !want[u.ID] {
			continue
		}
		if !u.Status.Resubmittable(u.LastError != nil, len(ids) > 0) {
			continue
		}
		u.Status = models.URLStatusPendingIngest
		u.LastError = nil
		touch(&u.UpdatedAt)
		n++
	}
	return n, nil
}

func (q *memQueries) GetVideo(_ context.Context, id int64) (*models.Video, error) {
	v, ok := q.data.videos[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (q *memQueries) LatestStoredVideo(_ context.Context, urlID int64) (*models.Video, error) {
	var found *models.Video
	for _, v := range q.data.videos {
		if v.URLID == urlID && v.Status == models.VideoStatusStored && (found == nil || v.ID > found.ID) {
			found = v
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (q *memQueries) CreateVideo(_ context.Context, v *models.Video) error {
	if err := q.fail("CreateVideo"); err != nil {
		return err
	}
	if _, ok := q.data.urls[v.URLID]; !ok {
		return fmt.Errorf("create video: url %d does not exist", v.URLID)
	}
	if v.Status == "" {
		v.Status = models.VideoStatusStored
	}
	now := time.Now().UTC()
	v.ID = q.data.id()
	v.CreatedAt, v.UpdatedAt = now, now
	cp := *v
	q.data.videos[v.ID] = &cp
	return nil
}

func (q *memQueries) GetTranscript(_ context.Context, id int64) (*models.Transcript, error) {
	t, ok := q.data.transcripts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (q *memQueries) LatestReadyTranscript(_ context.Context, videoID int64) (*models.Transcript, error) {
	var found *models.Transcript
	for _, t := range q.data.transcripts {
		if t.VideoID == videoID && t.Status == models.ArtifactStatusReady && (found == nil || t.ID > found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (q *memQueries) CreateTranscript(_ context.Context, t *models.Transcript) error {
	if err := q.fail("CreateTranscript"); err != nil {
		return err
	}
	if _, ok := q.data.videos[t.VideoID]; !ok {
		return fmt.Errorf("create transcript: video %d does not exist", t.VideoID)
	}
	if t.Status == "" {
		t.Status = models.ArtifactStatusReady
	}
	now := time.Now().UTC()
	t.ID = q.data.id()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	q.data.transcripts[t.ID] = &cp
	return nil
}

func (q *memQueries) GetMetadataByVideo(_ context.Context, videoID int64) (*models.VideoMetadata, error) {
	for _, m := range q.data.metadata {
		if m.VideoID == videoID {
			cp := *m
			cp.Tags = append([]string(nil), m.Tags...)
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (q *memQueries) UpsertMetadata(_ context.Context, m *models.VideoMetadata) error {
	if err := q.fail("UpsertMetadata"); err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = models.ArtifactStatusPending
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	now := time.Now().UTC()
	for _, existing := range q.data.metadata {
		if existing.VideoID == m.VideoID {
			m.ID, m.CreatedAt, m.UpdatedAt = existing.ID, existing.CreatedAt, now
			cp := *m
			cp.Tags = append([]string(nil), m.Tags...)
			q.data.metadata[m.ID] = &cp
			return nil
		}
	}
	m.ID = q.data.id()
	m.CreatedAt, m.UpdatedAt = now, now
	cp := *m
	cp.Tags = append([]string(nil), m.Tags...)
	q.data.metadata[m.ID] = &cp
	return nil
}

func (q *memQueries) CreateJob(_ context.Context, j *models.Job) error {
	if err := q.fail("CreateJob"); err != nil {
		return err
	}
	if j.Status == "" {
		j.Status = models.JobStatusQueued
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	j.ID = q.data.id()
	cp := *j
	q.data.jobs[j.ID] = &cp
	return nil
}

func (q *memQueries) UpdateJobStatus(_ context.Context, id int64, st models.JobStatus, opts ...store.JobUpdateOption) error {
	if err := q.fail("UpdateJobStatus"); err != nil {
		return err
	}
	j, ok := q.data.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !store.ValidJobTransition(j.Status, st) {
		return fmt.Errorf("%w: job %s -> %s", store.ErrInvalidTransition, j.Status, st)
	}
	now := time.Now().UTC()
	j.Status = st
	if st == models.JobStatusRunning {
		j.StartedAt = &now
	}
	if st.Terminal() {
		j.FinishedAt = &now
	}
	if msg := store.ApplyJobOptions(opts...); msg != nil {
		m := *msg
		j.ErrorMessage = &m
	}
	return nil
}

func (q *memQueries) ListJobsForURL(_ context.Context, urlID int64) ([]*models.Job, error) {
	videos := map[int64]bool{}
	for _, v := range q.data.videos {
		if v.URLID == urlID {
			videos[v.ID] = true
		}
	}
	transcripts := map[int64]bool{}
	for _, t := range q.data.transcripts {
		if videos[t.VideoID] {
			transcripts[t.ID] = true
		}
	}
	var out []*models.Job
	for _, j := range q.data.jobs {
		match := (j.ResourceType == models.ResourceURL && j.ResourceID == urlID) ||
			(j.ResourceType == models.ResourceVideo && videos[j.ResourceID]) ||
			(j.ResourceType == models.ResourceTranscript && transcripts[j.ResourceID])
		if match {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) CreateDeadLetter(_ context.Context, d *models.DeadLetter) error {
	if err := q.fail("CreateDeadLetter"); err != nil {
		return err
	}
	d.ID = q.data.id()
	d.CreatedAt = time.Now().UTC()
	cp := *d
	q.data.deadLetters[d.ID] = &cp
	return nil
}

func (q *memQueries) ListDeadLetters(_ context.Context, f store.DeadLetterFilter) ([]*models.DeadLetter, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []*models.DeadLetter
	for _, d := range q.data.deadLetters {
		if f.Stage != "" && d.Stage != f.Stage {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *memQueries) SearchTranscripts(_ context.Context, query string, limit int) ([]*models.TranscriptMatch, error) {
	if err := q.fail("SearchTranscripts"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	needle := strings.ToLower(query)
	var out []*models.TranscriptMatch
	for _, t := range q.data.transcripts {
		if t.Status != models.ArtifactStatusReady || !strings.Contains(strings.ToLower(t.FullText), needle) {
			continue
		}
		v, ok := q.data.videos[t.VideoID]
		if !ok {
			continue
		}
		u, ok := q.data.urls[v.URLID]
		if !ok {
			continue
		}
		out = append(out, &models.TranscriptMatch{Transcript: *t, Video: *v, URL: *u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transcript.ID < out[j].Transcript.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *memQueries) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	if err := q.fail("GetAPIKeyByPrefix"); err != nil {
		return nil, err
	}
	var out []*models.APIKey
	for _, k := range q.data.apiKeys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (q *memQueries) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	k, ok := q.data.apiKeys[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	return nil
}

func (q *memQueries) CreateAPIKey(_ context.Context, k *models.APIKey) error {
	for _, existing := range q.data.apiKeys {
		if existing.KeyHash == k.KeyHash {
			return store.ErrDuplicateKey
		}
	}
	cp := *k
	q.data.apiKeys[k.ID] = &cp
	return nil
}

func (q *memQueries) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range q.data.apiKeys {
		if k.DeletedAt == nil {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ErrInjected is a convenience error for FailOn.
var ErrInjected = errors.New("injected failure")

var _ store.Store = (*MemStore)(nil)
