package cmd

import (
	"context"
	"fmt"

	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/config"
	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/polling"
	"github.com/sw33tLie/taxscope/pkg/scheduler"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	"github.com/sw33tLie/taxscope/pkg/storage"
	"github.com/sw33tLie/taxscope/pkg/whttp"
)

// pipeline wires fetcher, builder, store and optional history from a Config.
type pipeline struct {
	cycle polling.CycleConfig
	store *snapshot.Store
	db    *storage.DB
}

func newPipeline(cfg config.Config) (*pipeline, error) {
	client, err := whttp.NewClient(whttp.ClientOptions{
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
		Proxy:   cfg.Proxy,
	})
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}

	p := &pipeline{store: store}
	if cfg.DBPath != "" {
		p.db, err = storage.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history db: %w", err)
		}
	}

	p.cycle = polling.CycleConfig{
		Sources: cfg.Sources,
		Fetcher: fetcher.New(fetcher.Config{
			Client:      client,
			Concurrency: cfg.Concurrency,
			Log:         utils.Log,
		}),
		Builder: snapshot.Builder{Interval: cfg.RefreshInterval},
		Store:   store,
		DB:      p.db,
		Log:     utils.Log,
	}
	return p, nil
}

func (p *pipeline) run(ctx context.Context) error {
	_, err := polling.RunCycle(ctx, p.cycle)
	return err
}

func (p *pipeline) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

func newTrigger(cfg config.Config) (scheduler.Trigger, error) {
	if cfg.Schedule != "" {
		return scheduler.NewCronTrigger(cfg.Schedule, utils.Log.WithField("component", "cron"))
	}
	return scheduler.NewIntervalTrigger(cfg.RefreshInterval), nil
}
