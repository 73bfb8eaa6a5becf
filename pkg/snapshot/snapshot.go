package snapshot

import (
	"fmt"
	"time"

	"github.com/sw33tLie/taxscope/pkg/fetcher"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

const Note = "Official figures, manually verified. Refreshed automatically from government sources."

// Snapshot is the document handed from the refresh cycle to readers. Once
// built it is never mutated; the next cycle supersedes it.
type Snapshot struct {
	LastUpdate      time.Time                       `json:"lastUpdate"`
	UpdateFrequency string                          `json:"updateFrequency"`
	Note            string                          `json:"note"`
	Jurisdictions   map[string]jurisdictions.Record `json:"jurisdictions"`
	ScrapeResults   map[string]fetcher.Outcome      `json:"scrapeResults"`
}

// FailedSources returns the ids of sources whose fetch failed this cycle.
func (s Snapshot) FailedSources() []string {
	var failed []string
	for id, o := range s.ScrapeResults {
		if !o.Success {
			failed = append(failed, id)
		}
	}
	return failed
}

// FrequencyLabel renders a refresh interval the way the dashboard shows it ("6 hours").
func FrequencyLabel(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
