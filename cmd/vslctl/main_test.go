package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/internal/testsupport"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cliEnv struct {
	store *testsupport.MemStore
	queue *tasks.MemoryQueue
	cc    *commandContext
}

func setupCLITestEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{store: testsupport.NewMemStore(), queue: tasks.NewMemoryQueue(32)}
	disp := tasks.NewDispatcher(env.queue, tasks.NewCacheStatusRecorder(testsupport.NewMemCache(), time.Minute))
	orch := pipeline.NewOrchestrator(disp)
	svc := &services{
		store:     env.store,
		intake:    pipeline.NewIntake(env.store, orch),
		scheduler: pipeline.NewBatchScheduler(env.store, orch, disp),
	}
	env.cc = &commandContext{
		loadConfig: func() (*config.Config, error) { return &config.Config{}, nil },
		open: func(context.Context, *config.Config) (*services, func(), error) {
			return svc, func() {}, nil
		},
	}
	return env
}

func runCLI(t *testing.T, cc *commandContext, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(cc)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestURLsAdd_Bulk(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.cc, "urls", "add", "--source", "swipe",
		"https://a.example.com/1.m3u8", "https://a.example.com/1.m3u8", "https://a.example.com/2.m3u8")
	require.NoError(t, err)

	assert.Contains(t, out, "3 received, 2 inserted, 1 duplicates (source swipe)")
	assert.Contains(t, out, "duplicate")
	urls := env.store.URLs()
	require.Len(t, urls, 2)
	assert.Equal(t, models.URLStatusPendingIngest, urls[0].Status)
	assert.Equal(t, 0, env.queue.Len())
}

func TestURLsAdd_Now(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.cc, "urls", "add", "--now", "https://a.example.com/1.m3u8")
	require.NoError(t, err)
	assert.Contains(t, out, "queued, pipeline task")
	assert.Equal(t, 1, env.queue.Len())

	out, err = runCLI(t, env.cc, "urls", "add", "--now", "https://a.example.com/1.m3u8")
	require.NoError(t, err)
	assert.Contains(t, out, "already registered")
	assert.Equal(t, 1, env.queue.Len())
}

func TestURLsAdd_NowRejectsMany(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env.cc, "urls", "add", "--now", "https://a/1", "https://a/2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one url")
}

func TestURLsShowAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	msg := "ffmpeg exited 1"
	u := &models.URL{RawURL: "https://cdn.example.com/broken.m3u8", Status: models.URLStatusDownloadFailed, LastError: &msg}
	require.NoError(t, env.store.CreateURL(ctx, u))
	now := time.Now().UTC()
	require.NoError(t, env.store.CreateJob(ctx, &models.Job{
		JobType: models.StageDownload, ResourceType: models.ResourceURL, ResourceID: u.ID,
		Status: models.JobStatusFailed, ErrorMessage: &msg, StartedAt: &now, FinishedAt: &now,
	}))

	out, err := runCLI(t, env.cc, "urls", "show", itoa(u.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "download_failed")
	assert.Contains(t, out, "Last error: ffmpeg exited 1")
	assert.Contains(t, out, "download")

	out, err = runCLI(t, env.cc, "urls", "list", "--status", "download_failed")
	require.NoError(t, err)
	assert.Contains(t, out, "broken.m3u8")

	_, err = runCLI(t, env.cc, "urls", "list", "--status", "exploded")
	assert.Error(t, err)
	_, err = runCLI(t, env.cc, "urls", "show", "abc")
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.cc, "ingest", "--batch-size", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingest batch of 7 enqueued")
	assert.Equal(t, 1, env.queue.Len())

	out, err = runCLI(t, env.cc, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingest batch of 50 enqueued")

	_, err = runCLI(t, env.cc, "ingest", "--batch-size", "0")
	require.ErrorIs(t, err, pipeline.ErrInvalidBatchSize)
	assert.Equal(t, 2, env.queue.Len())
}

func TestResubmit(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	a := &models.URL{RawURL: "https://a/1", Status: models.URLStatusDownloadFailed}
	b := &models.URL{RawURL: "https://a/2", Status: models.URLStatusTranscriptionFailed}
	require.NoError(t, env.store.CreateURL(ctx, a))
	require.NoError(t, env.store.CreateURL(ctx, b))

	out, err := runCLI(t, env.cc, "resubmit", itoa(a.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "1 URL(s) resubmitted")

	out, err = runCLI(t, env.cc, "resubmit")
	require.NoError(t, err)
	assert.Contains(t, out, "1 URL(s) resubmitted")

	for _, u := range env.store.URLs() {
		assert.Equal(t, models.URLStatusPendingIngest, u.Status)
	}

	_, err = runCLI(t, env.cc, "resubmit", "-3")
	assert.Error(t, err)
}

func TestResubmit_RolledBackURL(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	lastErr := "extracting audio: exit status 1"
	u := &models.URL{RawURL: "https://a/rb", Status: models.URLStatusDownloaded, LastError: &lastErr}
	require.NoError(t, env.store.CreateURL(ctx, u))

	out, err := runCLI(t, env.cc, "resubmit")
	require.NoError(t, err)
	assert.Contains(t, out, "1 URL(s) resubmitted")

	got, err := env.store.GetURL(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.URLStatusPendingIngest, got.Status)
	assert.Nil(t, got.LastError)
}

func TestDLQList(t *testing.T) {
	env := setupCLITestEnv(t)
	reason := "transcription_timeout"
	require.NoError(t, env.store.CreateDeadLetter(context.Background(), &models.DeadLetter{
		Stage: models.StageTranscription, ResourceType: models.ResourceVideo, ResourceID: 9,
		Reason: &reason, ErrorPayload: map[string]any{"timeout": true},
	}))

	out, err := runCLI(t, env.cc, "dlq", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "transcription_timeout")
	assert.Contains(t, out, "video 9")

	out, err = runCLI(t, env.cc, "dlq", "list", "--stage", "download")
	require.NoError(t, err)
	assert.NotContains(t, out, "transcription_timeout")

	_, err = runCLI(t, env.cc, "dlq", "list", "--stage", "upload")
	assert.Error(t, err)
}

func TestKeysCreate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.cc, "keys", "create", "--name", "ops")
	require.NoError(t, err)

	var raw string
	for _, line := range strings.Split(out, "\n") {
		if k, ok := strings.CutPrefix(line, "Key: "); ok {
			raw = k
		}
	}
	require.True(t, strings.HasPrefix(raw, keyPrefix), "raw key printed: %s", out)
	assert.Len(t, raw, len(keyPrefix)+48)

	keys, err := env.store.ListAPIKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, raw[:8], keys[0].KeyPrefix)
	assert.Equal(t, []string{models.ScopeAdmin}, keys[0].Scopes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(keys[0].KeyHash), []byte(raw)))

	out, err = runCLI(t, env.cc, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ops")
}

func TestKeysCreate_RequiresName(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env.cc, "keys", "create")
	require.Error(t, err)
	keys, err := env.store.ListAPIKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfigErrorSurfaces(t *testing.T) {
	cc := &commandContext{
		loadConfig: func() (*config.Config, error) { return nil, errors.New("DATABASE_URL is required") },
		open:       openServices,
	}

	_, err := runCLI(t, cc, "dlq", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"1", "alpha"}, {"22"}}, 0)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "22")
	assert.Empty(t, renderTable(nil, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
