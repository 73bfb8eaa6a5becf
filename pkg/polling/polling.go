package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	"github.com/sw33tLie/taxscope/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// CycleConfig holds everything RunCycle needs.
type CycleConfig struct {
	Sources []jurisdictions.Source
	Fetcher *fetcher.Fetcher
	Builder snapshot.Builder
	Store   *snapshot.Store
	DB      *storage.DB // optional; nil = no history
	Log     Logger      // optional; nil = no logging
}

// CycleResult holds the outcome of one fetch, build and persist cycle.
type CycleResult struct {
	ID       string
	Snapshot snapshot.Snapshot
	Outcomes []fetcher.Outcome
	Changes  []snapshot.Change
	Duration time.Duration
}

// RunCycle fetches every source, builds a snapshot and persists it. Fetch
// failures only show up in the snapshot. A persist failure is returned and
// leaves the previous snapshot in place. If ctx ends while fetching, nothing
// is written.
func RunCycle(ctx context.Context, cfg CycleConfig) (*CycleResult, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	start := time.Now()
	result := &CycleResult{ID: uuid.New().String()}
	log.Infof("Starting cycle %s (%d sources)", result.ID, len(cfg.Sources))

	result.Outcomes = cfg.Fetcher.FetchAll(ctx, cfg.Sources)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle %s abandoned: %w", result.ID, err)
	}

	failed := 0
	for _, o := range result.Outcomes {
		if !o.Success {
			failed++
		}
	}
	if failed > 0 {
		log.Warnf("%d/%d sources failed, using fallback data for them", failed, len(cfg.Sources))
	}

	result.Snapshot = cfg.Builder.Build(result.Outcomes)

	var prev *snapshot.Snapshot
	if cfg.DB != nil {
		p, err := cfg.Store.Load()
		switch {
		case err == nil:
			prev = &p
		case errors.Is(err, snapshot.ErrNotFound):
		default:
			log.Warnf("Could not load previous snapshot for diff: %v", err)
		}
	}

	persistErr := cfg.Store.Persist(result.Snapshot)
	result.Duration = time.Since(start)

	if persistErr == nil && prev != nil {
		result.Changes = snapshot.Diff(*prev, result.Snapshot)
		for _, c := range result.Changes {
			log.Infof("Rate %s: %s %s", c.ChangeType, c.Jurisdiction, c.Field)
		}
	}

	if cfg.DB != nil {
		rec := storage.Cycle{
			ID:         result.ID,
			StartedAt:  start,
			FinishedAt: start.Add(result.Duration),
			Status:     storage.StatusOK,
			Sources:    len(cfg.Sources),
			Failed:     failed,
		}
		if persistErr != nil {
			rec.Status = storage.StatusPersistFailed
			rec.Error = persistErr.Error()
		}
		// the snapshot is already on disk, record it even if shutdown began
		if err := cfg.DB.RecordCycle(context.WithoutCancel(ctx), rec, result.Outcomes, result.Changes); err != nil {
			log.Warnf("Could not record cycle %s: %v", result.ID, err)
		}
	}

	if persistErr != nil {
		return result, fmt.Errorf("persist snapshot: %w", persistErr)
	}

	log.Infof("Snapshot written to %s", cfg.Store.Path())
	log.Infof("Last update: %s", result.Snapshot.LastUpdate.Format(time.RFC3339))
	return result, nil
}
