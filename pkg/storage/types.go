package storage

import "time"

// Cycle is one recorded refresh cycle.
type Cycle struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // ok | persist_failed
	Error      string
	Sources    int
	Failed     int
}

// Outcome is the stored form of one source fetch.
type Outcome struct {
	CycleID    string
	SourceID   string
	Success    bool
	StatusCode int
	Error      string
	FetchedAt  time.Time
}

// RateChange is one rate that moved between two consecutive snapshots.
type RateChange struct {
	OccurredAt   time.Time
	CycleID      string
	Jurisdiction string
	Field        string
	OldValue     *float64
	NewValue     *float64
	ChangeType   string // added | updated | removed
}

const (
	StatusOK            = "ok"
	StatusPersistFailed = "persist_failed"
)
