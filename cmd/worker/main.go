// Package main is the entrypoint for the VSL pipeline worker. It drains the
// task queue and, when enabled, fires the daily ingest batch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kiranshivaraju/vslpipeline/internal/app"
	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

// runner is anything that blocks until its context is cancelled.
type runner interface {
	Run(ctx context.Context) error
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"engine", cfg.Transcription.Engine,
		"concurrency", cfg.Worker.Concurrency,
		"queue", cfg.Worker.QueueName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	loops := map[string]runner{"pool": a.WorkerPool()}
	if daily := a.DailyIngest(); daily != nil {
		loops["ingest-scheduler"] = daily
		slog.Info("daily ingest enabled",
			"hour", cfg.Ingest.ScheduleHour,
			"minute", cfg.Ingest.ScheduleMinute,
			"batch_size", cfg.Ingest.ScheduledBatchSize,
		)
	}

	return runAll(ctx, stop, loops)
}

// runAll starts every loop and waits for all of them. The first loop to fail
// cancels the others.
func runAll(ctx context.Context, cancel context.CancelFunc, loops map[string]runner) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for name, l := range loops {
		name, l := name, l
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				slog.Error("loop exited", "loop", name, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", name, err)
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()

	if firstErr == nil {
		slog.Info("worker stopped gracefully")
	}
	return firstErr
}
