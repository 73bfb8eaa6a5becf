package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS cycles (
  id             TEXT PRIMARY KEY,
  started_at     TEXT NOT NULL,
  finished_at    TEXT NOT NULL,
  status         TEXT NOT NULL CHECK (status IN ('ok','persist_failed')),
  error          TEXT,
  sources        INTEGER NOT NULL,
  failed         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at);
CREATE TABLE IF NOT EXISTS fetch_outcomes (
  id             INTEGER PRIMARY KEY,
  cycle_id       TEXT NOT NULL REFERENCES cycles(id),
  source_id      TEXT NOT NULL,
  success        INTEGER NOT NULL CHECK (success IN (0,1)),
  status_code    INTEGER,
  error          TEXT,
  fetched_at     TEXT NOT NULL,
  UNIQUE(cycle_id, source_id)
);
CREATE TABLE IF NOT EXISTS rate_changes (
  id             INTEGER PRIMARY KEY,
  occurred_at    TEXT NOT NULL,
  cycle_id       TEXT NOT NULL REFERENCES cycles(id),
  jurisdiction   TEXT NOT NULL,
  field          TEXT NOT NULL,
  old_value      REAL,
  new_value      REAL,
  change_type    TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_rate_changes_time ON rate_changes(occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordCycle stores a cycle with its fetch outcomes and rate changes in one transaction.
func (d *DB) RecordCycle(ctx context.Context, c Cycle, outcomes []fetcher.Outcome, changes []snapshot.Change) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO cycles(id, started_at, finished_at, status, error, sources, failed) VALUES(?,?,?,?,?,?,?)`,
		c.ID, formatTime(c.StartedAt), formatTime(c.FinishedAt), c.Status, nullIfEmpty(c.Error), c.Sources, c.Failed)
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		_, err = tx.ExecContext(ctx, `INSERT INTO fetch_outcomes(cycle_id, source_id, success, status_code, error, fetched_at) VALUES(?,?,?,?,?,?)`,
			c.ID, o.SourceID, boolToInt(o.Success), nullIfZero(o.StatusCode), nullIfEmpty(o.Error), formatTime(o.Timestamp))
		if err != nil {
			return err
		}
	}

	for _, ch := range changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO rate_changes(occurred_at, cycle_id, jurisdiction, field, old_value, new_value, change_type) VALUES(?,?,?,?,?,?,?)`,
			formatTime(c.FinishedAt), c.ID, ch.Jurisdiction, ch.Field, nullFloat(ch.Old), nullFloat(ch.New), ch.ChangeType)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ListCycles returns the most recent cycles, newest first.
func (d *DB) ListCycles(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, started_at, finished_at, status, error, sources, failed FROM cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var (
			c                 Cycle
			started, finished string
			errMsg            sql.NullString
		)
		if err := rows.Scan(&c.ID, &started, &finished, &c.Status, &errMsg, &c.Sources, &c.Failed); err != nil {
			return nil, err
		}
		c.StartedAt = parseTime(started)
		c.FinishedAt = parseTime(finished)
		c.Error = errMsg.String
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// ListOutcomes returns the fetch outcomes of one cycle ordered by source id.
func (d *DB) ListOutcomes(ctx context.Context, cycleID string) ([]Outcome, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT cycle_id, source_id, success, status_code, error, fetched_at FROM fetch_outcomes WHERE cycle_id = ? ORDER BY source_id`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o       Outcome
			success int
			status  sql.NullInt64
			errMsg  sql.NullString
			fetched string
		)
		if err := rows.Scan(&o.CycleID, &o.SourceID, &success, &status, &errMsg, &fetched); err != nil {
			return nil, err
		}
		o.Success = success == 1
		o.StatusCode = int(status.Int64)
		o.Error = errMsg.String
		o.FetchedAt = parseTime(fetched)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// ListRateChanges returns the most recent rate changes, newest first.
func (d *DB) ListRateChanges(ctx context.Context, limit int) ([]RateChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT occurred_at, cycle_id, jurisdiction, field, old_value, new_value, change_type FROM rate_changes ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []RateChange
	for rows.Next() {
		var (
			c          RateChange
			occurred   string
			oldV, newV sql.NullFloat64
		)
		if err := rows.Scan(&occurred, &c.CycleID, &c.Jurisdiction, &c.Field, &oldV, &newV, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTime(occurred)
		if oldV.Valid {
			c.OldValue = &oldV.Float64
		}
		if newV.Valid {
			c.NewValue = &newV.Float64
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(i int) interface{} {
	if i == 0 {
		return nil
	}
	return i
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
