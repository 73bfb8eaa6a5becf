package snapshot

import (
	"sort"

	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

// Change is one rate that differs between two snapshots.
type Change struct {
	Jurisdiction string
	Field        string
	Old          *float64
	New          *float64
	ChangeType   string // added | updated | removed
}

// Diff lists the rate changes from prev to next, ordered by jurisdiction then field.
func Diff(prev, next Snapshot) []Change {
	var changes []Change

	for _, id := range jurisdictions.IDs(next.Jurisdictions) {
		n := next.Jurisdictions[id]
		p, existed := prev.Jurisdictions[id]
		if !existed {
			changes = append(changes, Change{Jurisdiction: id, Field: "jurisdiction", ChangeType: "added"})
			continue
		}
		changes = append(changes, diffRates(id, rates(p), rates(n))...)
	}
	for _, id := range jurisdictions.IDs(prev.Jurisdictions) {
		if _, ok := next.Jurisdictions[id]; !ok {
			changes = append(changes, Change{Jurisdiction: id, Field: "jurisdiction", ChangeType: "removed"})
		}
	}
	return changes
}

func rates(r jurisdictions.Record) map[string]*float64 {
	v := func(f float64) *float64 { return &f }
	return map[string]*float64{
		"corporateTax.standard":  v(r.CorporateTax.Standard),
		"corporateTax.reduced":   r.CorporateTax.Reduced,
		"corporateTax.threshold": r.CorporateTax.Threshold,
		"vat.standard":           v(r.VAT.Standard),
		"capitalGainsTax":        v(r.CapitalGainsTax),
		"dividendTax":            v(r.DividendTax),
		"startupRate":            v(r.StartupRate),
	}
}

func diffRates(id string, before, after map[string]*float64) []Change {
	fields := make([]string, 0, len(after))
	for f := range after {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var changes []Change
	for _, f := range fields {
		o, n := before[f], after[f]
		switch {
		case o == nil && n == nil:
		case o == nil:
			changes = append(changes, Change{Jurisdiction: id, Field: f, New: n, ChangeType: "added"})
		case n == nil:
			changes = append(changes, Change{Jurisdiction: id, Field: f, Old: o, ChangeType: "removed"})
		case *o != *n:
			changes = append(changes, Change{Jurisdiction: id, Field: f, Old: o, New: n, ChangeType: "updated"})
		}
	}
	return changes
}
