// Package taxcalc estimates what an investor pays in each jurisdiction.
package taxcalc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

var (
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")
	ErrUnknownCategory     = errors.New("unknown micro-entrepreneur category")
)

const (
	// Share of profit assumed to be realised as capital gains.
	capitalGainsShare = 0.2
	// Share of after-tax profit assumed to be distributed as dividends.
	payoutRatio = 0.5
)

// Burden is the estimated yearly tax load on a given profit.
type Burden struct {
	Jurisdiction  string  `json:"jurisdiction"`
	City          string  `json:"city"`
	Profit        float64 `json:"profit"`
	Corporate     float64 `json:"corporate"`
	CapitalGains  float64 `json:"capitalGains"`
	Dividends     float64 `json:"dividends"`
	Total         float64 `json:"total"`
	EffectiveRate float64 `json:"effectiveRate"` // percent of profit
}

// CorporateTax applies the reduced rate up to the threshold and the standard
// rate above it. Records without a bracket pay the standard rate flat.
func CorporateTax(profit float64, r jurisdictions.Record) float64 {
	if profit <= 0 {
		return 0
	}
	ct := r.CorporateTax
	if ct.Reduced == nil || ct.Threshold == nil {
		return profit * ct.Standard
	}
	if profit <= *ct.Threshold {
		return profit * *ct.Reduced
	}
	return *ct.Threshold**ct.Reduced + (profit-*ct.Threshold)*ct.Standard
}

// TotalBurden estimates corporate, capital gains and dividend tax on profit.
func TotalBurden(profit float64, r jurisdictions.Record) Burden {
	b := Burden{Jurisdiction: r.ID, City: r.City, Profit: profit}
	if profit <= 0 {
		return b
	}
	b.Corporate = profit * r.CorporateTax.Standard
	b.CapitalGains = profit * capitalGainsShare * r.CapitalGainsTax
	b.Dividends = (profit - b.Corporate) * payoutRatio * r.DividendTax
	b.Total = b.Corporate + b.CapitalGains + b.Dividends
	b.EffectiveRate = b.Total / profit * 100
	return b
}

// Compare computes the burden in every jurisdiction, lightest first.
func Compare(profit float64, table map[string]jurisdictions.Record) []Burden {
	out := make([]Burden, 0, len(table))
	for _, id := range jurisdictions.IDs(table) {
		out = append(out, TotalBurden(profit, table[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total < out[j].Total })
	return out
}

// For computes the burden in a single jurisdiction of table.
func For(profit float64, id string, table map[string]jurisdictions.Record) (Burden, error) {
	r, ok := table[id]
	if !ok {
		return Burden{}, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, id)
	}
	return TotalBurden(profit, r), nil
}

// Metrics are the per-jurisdiction series the comparison charts plot, in percent.
type Metrics struct {
	Labels       []string  `json:"labels"`
	CorporateTax []float64 `json:"corporateTax"`
	CapitalGains []float64 `json:"capitalGains"`
	DividendTax  []float64 `json:"dividendTax"`
	VAT          []float64 `json:"vat"`
}

func InvestorMetrics(table map[string]jurisdictions.Record) Metrics {
	var m Metrics
	for _, id := range jurisdictions.IDs(table) {
		r := table[id]
		m.Labels = append(m.Labels, r.City)
		m.CorporateTax = append(m.CorporateTax, r.CorporateTax.Standard*100)
		m.CapitalGains = append(m.CapitalGains, r.CapitalGainsTax*100)
		m.DividendTax = append(m.DividendTax, r.DividendTax*100)
		m.VAT = append(m.VAT, r.VAT.Standard*100)
	}
	return m
}
