package snapshot

import (
	"time"

	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

// Builder merges one cycle's fetch outcomes with the fallback table.
type Builder struct {
	// Fallback returns a fresh copy of the baseline table. Defaults to jurisdictions.Fallback.
	Fallback func() map[string]jurisdictions.Record
	Interval time.Duration
	Now      func() time.Time
}

// Build never fails. Every fallback record is included verbatim: outcomes are
// recorded, but extracted figures are not merged into the records yet.
func (b Builder) Build(outcomes []fetcher.Outcome) Snapshot {
	fallback := b.Fallback
	if fallback == nil {
		fallback = jurisdictions.Fallback
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}

	results := make(map[string]fetcher.Outcome, len(outcomes))
	for _, o := range outcomes {
		results[o.SourceID] = o
	}

	return Snapshot{
		Jurisdictions:   fallback(),
		ScrapeResults:   results,
		UpdateFrequency: FrequencyLabel(b.Interval),
		Note:            Note,
		// UTC strips the monotonic reading so the value survives a JSON round trip
		LastUpdate: now().UTC(),
	}
}
