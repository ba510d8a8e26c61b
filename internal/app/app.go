// Package app wires configuration into the running services shared by the
// API server, the worker and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/vslpipeline/internal/api"
	"github.com/kiranshivaraju/vslpipeline/internal/api/handler"
	mw "github.com/kiranshivaraju/vslpipeline/internal/api/middleware"
	"github.com/kiranshivaraju/vslpipeline/internal/cache"
	"github.com/kiranshivaraju/vslpipeline/internal/categorize"
	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/media"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/scheduler"
	"github.com/kiranshivaraju/vslpipeline/internal/search"
	"github.com/kiranshivaraju/vslpipeline/internal/stage"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/internal/tasks"
	"github.com/kiranshivaraju/vslpipeline/internal/transcribe"
	"github.com/kiranshivaraju/vslpipeline/internal/transcribe/mock"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// mockTranscript is what the mock engine answers for every file.
const mockTranscript = "[mock transcript] audio processed locally without a speech engine"

// App holds the long-lived dependencies built from Config.
type App struct {
	Config *config.Config

	DB    *pgxpool.Pool
	Store *store.PostgresStore
	Cache *cache.RedisCache
	Queue *tasks.RedisQueue

	Status       *tasks.CacheStatusRecorder
	Dispatcher   *tasks.Dispatcher
	Orchestrator *pipeline.Orchestrator
	Scheduler    *pipeline.BatchScheduler
	Intake       *pipeline.Intake
	Search       *search.Service
}

// Build connects to Postgres and Redis and assembles the pipeline. The caller
// must Close the returned App.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		pool.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	engine, err := NewEngine(cfg.Transcription)
	if err != nil {
		pool.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("create transcription engine: %w", err)
	}
	slog.Info("transcription engine initialized", "engine", engine.Name())

	a := &App{
		Config: cfg,
		DB:     pool,
		Store:  store.NewPostgresStore(pool),
		Cache:  redisCache,
		Queue:  tasks.NewRedisQueue(redisCache.Client(), cfg.Worker.QueueName),
	}
	a.Status = tasks.NewCacheStatusRecorder(a.Cache, cfg.Worker.TaskStatusTTL)
	a.Dispatcher = tasks.NewDispatcher(a.Queue, a.Status)
	a.Orchestrator = pipeline.NewOrchestrator(a.Dispatcher, Stages(cfg, a.Store, engine)...)
	a.Scheduler = pipeline.NewBatchScheduler(a.Store, a.Orchestrator, a.Dispatcher,
		pipeline.WithDefaultBatchSize(cfg.Ingest.DefaultBatchSize))
	a.Intake = pipeline.NewIntake(a.Store, a.Orchestrator)
	a.Search = search.NewService(a.Store, cfg.Server.PublicBaseURL,
		search.WithCache(a.Cache, cfg.Server.SearchTTL),
		search.WithLimit(cfg.Server.SearchLimit))
	return a, nil
}

// Close releases the database pool and the Redis client.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		slog.Warn("closing redis", "error", err)
	}
	a.DB.Close()
}

// NewEngine resolves the configured speech-to-text engine, including the mock
// engine used for local runs.
func NewEngine(cfg config.TranscriptionConfig) (models.TranscriptionEngine, error) {
	if cfg.Engine == "mock" {
		return mock.NewMockEngine(mockTranscript), nil
	}
	return transcribe.NewEngine(cfg)
}

// Stages builds download, transcription and categorization in run order.
func Stages(cfg *config.Config, st store.Store, engine models.TranscriptionEngine) []stage.Executor {
	prober := media.NewProber(cfg.Media.FFprobeBin, nil)
	ff := media.NewFFmpeg(media.FFmpegConfig{
		Binary:   cfg.Media.FFmpegBin,
		VideoDir: cfg.Media.VideoStoragePath,
		AudioDir: cfg.Media.AudioTempPath,
	}, prober, nil)
	timeout := cfg.Worker.StageTimeout

	return []stage.Executor{
		stage.NewDownload(st, ff, timeout),
		stage.NewTranscribe(st, ff, engine, timeout,
			stage.WithLanguage(cfg.Transcription.Language),
			stage.WithFailurePolicy(stage.FailurePolicy(cfg.Transcription.FailurePolicy))),
		stage.NewCategorize(st, categorize.NewRuleBased(), timeout),
	}
}

// Router builds the HTTP API on top of the assembled services.
func (a *App) Router() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:        mw.NewAuth(a.Store),
		RateLimit:   mw.NewRateLimit(a.Cache, a.Config.Server.RateLimit),
		CORSOrigins: a.Config.Server.CORSOrigins,
		StorageDir:  a.Config.Server.StorageDir,

		HealthHandler:     handler.NewHealthHandler(a.Store, a.Cache),
		CreateURLHandler:  handler.NewCreateURLHandler(a.Intake),
		BulkURLHandler:    handler.NewBulkURLHandler(a.Intake),
		GetURLHandler:     handler.NewGetURLHandler(a.Store),
		SearchHandler:     handler.NewSearchHandler(a.Search),
		RunIngestHandler:  handler.NewRunIngestHandler(a.Scheduler),
		ResubmitHandler:   handler.NewResubmitHandler(a.Scheduler),
		TaskStatusHandler: handler.NewTaskStatusHandler(a.Dispatcher),
		DeadLetterHandler: handler.NewDeadLettersHandler(a.Store),
	})
}

// WorkerPool returns a pool with both task kinds registered.
func (a *App) WorkerPool() *tasks.Pool {
	p := tasks.NewPool(a.Queue, a.Status, a.Config.Worker.Concurrency, a.Config.Worker.DequeueTimeout)
	RegisterHandlers(p, a.Orchestrator, a.Scheduler)
	return p
}

// RegisterHandlers binds pipeline chains and batch passes to the pool.
func RegisterHandlers(p *tasks.Pool, orch *pipeline.Orchestrator, sched *pipeline.BatchScheduler) {
	p.Handle(tasks.KindPipeline, orch.HandleTask)
	p.Handle(tasks.KindIngestBatch, sched.HandleTask)
}

// DailyIngest returns the once-a-day trigger, or nil when it is disabled.
func (a *App) DailyIngest() *scheduler.Daily {
	ic := a.Config.Ingest
	if !ic.SchedulerEnabled {
		return nil
	}
	return scheduler.NewDaily(a.Scheduler, ic.ScheduleHour, ic.ScheduleMinute, ic.ScheduledBatchSize)
}
