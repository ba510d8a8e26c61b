package main

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/vslpipeline/internal/app"
	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/internal/pipeline"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
)

// services is what the commands operate on.
type services struct {
	store     store.Store
	intake    *pipeline.Intake
	scheduler *pipeline.BatchScheduler
}

// commandContext loads config once and opens services on demand, so commands
// that only need config (migrate) never dial Redis.
type commandContext struct {
	loadConfig func() (*config.Config, error)
	open       func(ctx context.Context, cfg *config.Config) (*services, func(), error)

	cfg *config.Config
}

func newCommandContext() *commandContext {
	return &commandContext{loadConfig: config.Load, open: openServices}
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// withServices opens the services, runs fn and closes them.
func (c *commandContext) withServices(ctx context.Context, fn func(*services) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	svc, closeFn, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func openServices(ctx context.Context, cfg *config.Config) (*services, func(), error) {
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return &services{store: a.Store, intake: a.Intake, scheduler: a.Scheduler}, a.Close, nil
}
