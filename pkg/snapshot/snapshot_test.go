package snapshot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i%len(ts)]
		i++
		return t
	}
}

func outcomes() []fetcher.Outcome {
	srcs := jurisdictions.DefaultSources()
	return []fetcher.Outcome{
		{SourceID: srcs[0].ID, Success: true, Timestamp: t0, StatusCode: 200, PageTitle: "Impôt sur les sociétés", Source: srcs[0]},
		{SourceID: srcs[1].ID, Success: false, Timestamp: t0, Error: "context deadline exceeded", Source: srcs[1]},
		{SourceID: srcs[2].ID, Success: true, Timestamp: t0, StatusCode: 403, Source: srcs[2]},
		{SourceID: srcs[3].ID, Success: false, Timestamp: t0, Error: "no such host", Source: srcs[3]},
	}
}

func TestBuildIncludesEveryFallbackRecord(t *testing.T) {
	snap := Builder{Interval: 6 * time.Hour, Now: fixedClock(t0)}.Build(outcomes())

	assert.Equal(t, jurisdictions.Fallback(), snap.Jurisdictions)
	assert.Equal(t, t0, snap.LastUpdate)
	assert.Equal(t, "6 hours", snap.UpdateFrequency)
	assert.Equal(t, Note, snap.Note)
	require.Len(t, snap.ScrapeResults, 4)
	for _, o := range outcomes() {
		assert.Equal(t, o, snap.ScrapeResults[o.SourceID])
	}
	assert.ElementsMatch(t, []string{"SPAIN", "SINGAPORE"}, snap.FailedSources())
}

func TestBuildIgnoresExtractedFigures(t *testing.T) {
	rate := 0.99
	outs := outcomes()
	outs[0].Extracted = true
	outs[0].Partial = &jurisdictions.Partial{CorporateStandard: &rate}

	snap := Builder{Now: fixedClock(t0)}.Build(outs)
	assert.Equal(t, 0.25, snap.Jurisdictions["PARIS"].CorporateTax.Standard)
}

func TestConsecutiveBuildsDifferOnlyInLastUpdate(t *testing.T) {
	b := Builder{Interval: 6 * time.Hour, Now: fixedClock(t0, t0.Add(6*time.Hour))}
	first := b.Build(outcomes())
	second := b.Build(outcomes())

	assert.NotEqual(t, first.LastUpdate, second.LastUpdate)
	second.LastUpdate = first.LastUpdate
	assert.Equal(t, first, second)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, "6 hours", FrequencyLabel(6*time.Hour))
	assert.Equal(t, "1 hour", FrequencyLabel(time.Hour))
	assert.Equal(t, "30 minutes", FrequencyLabel(30*time.Minute))
	assert.Equal(t, "1m30s", FrequencyLabel(90*time.Second))
	assert.Equal(t, "", FrequencyLabel(0))
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "tax-data.json"))
	require.NoError(t, err)
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newStore(t)
	snap := Builder{Interval: 6 * time.Hour, Now: fixedClock(t0)}.Build(outcomes())

	require.NoError(t, s.Persist(snap))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestStoreRoundTripKeepsExtractedFigures(t *testing.T) {
	rate, threshold := 0.3, 42000.0
	outs := outcomes()
	outs[0].Extracted = true
	outs[0].Partial = &jurisdictions.Partial{CorporateStandard: &rate, Threshold: &threshold}

	s := newStore(t)
	snap := Builder{Interval: 6 * time.Hour, Now: fixedClock(t0)}.Build(outs)
	require.NoError(t, s.Persist(snap))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	require.NotNil(t, got.ScrapeResults["FRANCE"].Partial)
	assert.Equal(t, 0.3, *got.ScrapeResults["FRANCE"].Partial.CorporateStandard)
	assert.Nil(t, got.ScrapeResults["FRANCE"].Partial.VATStandard)
}

func TestStoreLoadNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadRaw()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadTruncatedIsCorrupt(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Persist(Builder{Now: fixedClock(t0)}.Build(outcomes())))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data[:len(data)/2], 0o644))

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = s.LoadRaw()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStoreLoadRejectsMissingFields(t *testing.T) {
	docs := map[string]string{
		"array":               `[]`,
		"no lastUpdate":       `{"jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09}}}}`,
		"null lastUpdate":     `{"lastUpdate":null,"jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09}}}}`,
		"bad lastUpdate":      `{"lastUpdate":"yesterday","jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09}}}}`,
		"null jurisdictions":  `{"lastUpdate":"2026-03-01T12:00:00Z","jurisdictions":null}`,
		"empty jurisdictions": `{"lastUpdate":"2026-03-01T12:00:00Z","jurisdictions":{}}`,
		"record without rate": `{"lastUpdate":"2026-03-01T12:00:00Z","jurisdictions":{"DUBAI":{"city":"Dubai"}}}`,
		"wrong type":          `{"lastUpdate":"2026-03-01T12:00:00Z","jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09},"city":7}}}`,
		"string rate":         `{"lastUpdate":"2026-03-01T12:00:00Z","jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09},"capitalGainsTax":"25%"}}}`,
		"scrapeResults type":  `{"lastUpdate":"2026-03-01T12:00:00Z","scrapeResults":"oops","jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09}}}}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))
			_, err := s.Load()
			assert.ErrorIs(t, err, ErrCorrupt)
			raw, err := s.LoadRaw()
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Nil(t, raw)
		})
	}
}

func TestStoreLoadRawKeepsPrecisionAndUnknownFields(t *testing.T) {
	doc := `{"lastUpdate":"2026-03-01T12:00:00Z","futureField":{"x":1},` +
		`"jurisdictions":{"DUBAI":{"corporateTax":{"standard":0.09}},"NEW_YORK":{"corporateTax":{"standard":0.2825},"vat":{"standard":0.08875}}}}`
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	raw, err := s.LoadRaw()
	require.NoError(t, err)
	assert.Equal(t, doc, string(raw))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.09, snap.Jurisdictions["DUBAI"].CorporateTax.Standard)
	assert.Equal(t, 0.08875, snap.Jurisdictions["NEW_YORK"].VAT.Standard)
}

func TestStoreFailedPersistKeepsPreviousSnapshot(t *testing.T) {
	s := newStore(t)
	good := Builder{Now: fixedClock(t0)}.Build(outcomes())
	require.NoError(t, s.Persist(good))

	bad := Builder{Now: fixedClock(t0.Add(time.Hour))}.Build(outcomes())
	paris := bad.Jurisdictions["PARIS"]
	paris.DividendTax = math.NaN()
	bad.Jurisdictions["PARIS"] = paris
	require.Error(t, s.Persist(bad))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, good, got)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file left behind")
	}
}

func TestStorePersistOverwrites(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Persist(Builder{Now: fixedClock(t0)}.Build(outcomes())))
	second := Builder{Now: fixedClock(t0.Add(time.Hour))}.Build(nil)
	require.NoError(t, s.Persist(second))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), got.LastUpdate)
	assert.Empty(t, got.ScrapeResults)
}
