package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/app"
	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/internal/testsupport"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Worker: config.WorkerConfig{StageTimeout: time.Minute},
		Media: config.MediaConfig{
			VideoStoragePath: dir + "/videos",
			AudioTempPath:    dir + "/audio",
		},
		Transcription: config.TranscriptionConfig{
			Engine:        "mock",
			FailurePolicy: config.PolicyRollback,
		},
	}
}

func TestNewEngine_Mock(t *testing.T) {
	e, err := app.NewEngine(config.TranscriptionConfig{Engine: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", e.Name())

	text, err := e.Transcribe(context.Background(), "a.mp3", "")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestNewEngine_DelegatesToFactory(t *testing.T) {
	e, err := app.NewEngine(config.TranscriptionConfig{
		Engine: "openai",
		OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "whisper-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "whisper-1", e.Name())

	_, err = app.NewEngine(config.TranscriptionConfig{Engine: "deepgram"})
	assert.Error(t, err)
}

func TestStages_RunOrder(t *testing.T) {
	cfg := testConfig(t)
	engine, err := app.NewEngine(cfg.Transcription)
	require.NoError(t, err)

	stages := app.Stages(cfg, testsupport.NewMemStore(), engine)

	require.Len(t, stages, 3)
	assert.Equal(t, models.StageDownload, stages[0].Stage())
	assert.Equal(t, models.StageTranscription, stages[1].Stage())
	assert.Equal(t, models.StageCategorization, stages[2].Stage())
}

func TestRegisterHandlers_BothKindsDispatch(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewMemStore()
	status := tasks.NewCacheStatusRecorder(testsupport.NewMemCache(), time.Minute)
	q := tasks.NewMemoryQueue(8)
	disp := tasks.NewDispatcher(q, status)
	orch := pipeline.NewOrchestrator(disp)
	sched := pipeline.NewBatchScheduler(st, orch, disp)

	pool := tasks.NewPool(q, status, 1, time.Millisecond)
	app.RegisterHandlers(pool, orch, sched)

	batch := tasks.Task{ID: uuid.New(), Kind: tasks.KindIngestBatch, BatchSize: 5}
	pool.Process(ctx, batch)
	s, found, err := status.Lookup(ctx, batch.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tasks.StateSucceeded, s.State)

	chain := tasks.Task{ID: uuid.New(), Kind: tasks.KindPipeline, URLID: 42}
	pool.Process(ctx, chain)
	s, found, err = status.Lookup(ctx, chain.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tasks.StateSucceeded, s.State)
	assert.Empty(t, s.Error)
}
