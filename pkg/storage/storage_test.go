package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "taxscope.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListCycles(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	outcomes := []fetcher.Outcome{
		{SourceID: "UK", Success: true, StatusCode: 200, Timestamp: start.Add(time.Second)},
		{SourceID: "FRANCE", Success: false, Error: "timeout", Timestamp: start.Add(10 * time.Second)},
	}
	old, updated := 0.25, 0.27
	changes := []snapshot.Change{
		{Jurisdiction: "LONDON", Field: "corporateTax.standard", Old: &old, New: &updated, ChangeType: "updated"},
	}

	require.NoError(t, db.RecordCycle(ctx, Cycle{
		ID: "c1", StartedAt: start, FinishedAt: start.Add(11 * time.Second), Status: StatusOK, Sources: 2, Failed: 1,
	}, outcomes, changes))
	require.NoError(t, db.RecordCycle(ctx, Cycle{
		ID: "c2", StartedAt: start.Add(6 * time.Hour), FinishedAt: start.Add(6 * time.Hour), Status: StatusPersistFailed, Error: "disk full", Sources: 2,
	}, nil, nil))

	cycles, err := db.ListCycles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, "c2", cycles[0].ID)
	assert.Equal(t, "disk full", cycles[0].Error)
	assert.Equal(t, StatusPersistFailed, cycles[0].Status)
	assert.Equal(t, start, cycles[1].StartedAt)
	assert.Equal(t, 1, cycles[1].Failed)

	got, err := db.ListOutcomes(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "FRANCE", got[0].SourceID)
	assert.False(t, got[0].Success)
	assert.Equal(t, "timeout", got[0].Error)
	assert.Equal(t, 200, got[1].StatusCode)

	rc, err := db.ListRateChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rc, 1)
	assert.Equal(t, "LONDON", rc[0].Jurisdiction)
	assert.Equal(t, 0.27, *rc[0].NewValue)
}

func TestRecordCycleRollsBackOnDuplicate(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	c := Cycle{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now(), Status: StatusOK}

	require.NoError(t, db.RecordCycle(ctx, c, nil, nil))
	err := db.RecordCycle(ctx, c, []fetcher.Outcome{{SourceID: "UK", Timestamp: time.Now()}}, nil)
	require.Error(t, err)

	got, err := db.ListOutcomes(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, got)
}
