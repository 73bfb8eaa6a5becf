package jurisdictions

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRate is returned when a rate field falls outside [0, 1].
var ErrInvalidRate = errors.New("rate out of range [0, 1]")

const verified = "2024-02-13"

var (
	france = Source{ID: "FRANCE", SourceRef: SourceRef{
		URL:     "https://www.impots.gouv.fr/professionnel/limpot-sur-les-societes",
		Name:    "Direction Générale des Finances Publiques (DGFIP)",
		Country: "France",
	}}
	spain = Source{ID: "SPAIN", SourceRef: SourceRef{
		URL:     "https://sede.agenciatributaria.gob.es/Sede/impuestos-tasas/impuesto-sociedades.html",
		Name:    "Agencia Tributaria",
		Country: "Spain",
	}}
	uk = Source{ID: "UK", SourceRef: SourceRef{
		URL:     "https://www.gov.uk/topic/business-tax/corporation-tax",
		Name:    "HM Revenue & Customs (HMRC)",
		Country: "United Kingdom",
	}}
	singapore = Source{ID: "SINGAPORE", SourceRef: SourceRef{
		URL:     "https://www.iras.gov.sg/taxes/corporate-income-tax/basics-of-corporate-income-tax/corporate-income-tax-rate-rebates-and-tax-exemption-schemes",
		Name:    "Inland Revenue Authority of Singapore (IRAS)",
		Country: "Singapore",
	}}
)

// DefaultSources returns the live sources fetched every cycle.
func DefaultSources() []Source {
	return []Source{france, spain, uk, singapore}
}

func f(v float64) *float64 { return &v }

var fallback = []Record{
	{
		ID: "PARIS", City: "Paris", Country: "France",
		CorporateTax:    CorporateTax{Standard: 0.25, Reduced: f(0.15), Threshold: f(42500)},
		VAT:             VAT{Standard: 0.20},
		CapitalGainsTax: 0.25, DividendTax: 0.30, StartupRate: 0.15,
		Source: france.SourceRef,
	},
	{
		ID: "MADRID", City: "Madrid", Country: "Spain",
		CorporateTax:    CorporateTax{Standard: 0.25, Reduced: f(0.15)},
		VAT:             VAT{Standard: 0.21},
		CapitalGainsTax: 0.25, DividendTax: 0.19, StartupRate: 0.15,
		Source: spain.SourceRef,
	},
	{
		ID: "BERLIN", City: "Berlin", Country: "Germany",
		CorporateTax:    CorporateTax{Standard: 0.30},
		VAT:             VAT{Standard: 0.19},
		CapitalGainsTax: 0.26, DividendTax: 0.26, StartupRate: 0.30,
		Source: SourceRef{URL: "https://www.bundesfinanzministerium.de/", Name: "Bundesministerium der Finanzen (BMF)", Country: "Germany"},
	},
	{
		ID: "LONDON", City: "London", Country: "United Kingdom",
		CorporateTax:    CorporateTax{Standard: 0.25, Reduced: f(0.19), Threshold: f(50000)},
		VAT:             VAT{Standard: 0.20},
		CapitalGainsTax: 0.20, DividendTax: 0.339, StartupRate: 0.19,
		Source: uk.SourceRef,
	},
	{
		ID: "AMSTERDAM", City: "Amsterdam", Country: "Netherlands",
		CorporateTax:    CorporateTax{Standard: 0.258, Reduced: f(0.19), Threshold: f(200000)},
		VAT:             VAT{Standard: 0.21},
		CapitalGainsTax: 0.258, DividendTax: 0.15, StartupRate: 0.19,
		Source: SourceRef{URL: "https://www.belastingdienst.nl/", Name: "Belastingdienst", Country: "Netherlands"},
	},
	{
		ID: "ROME", City: "Rome", Country: "Italy",
		CorporateTax:    CorporateTax{Standard: 0.24},
		VAT:             VAT{Standard: 0.22},
		CapitalGainsTax: 0.26, DividendTax: 0.26, StartupRate: 0.24,
		Source: SourceRef{URL: "https://www.agenziaentrate.gov.it/", Name: "Agenzia delle Entrate", Country: "Italy"},
	},
	{
		ID: "SINGAPORE", City: "Singapore", Country: "Singapore",
		CorporateTax:    CorporateTax{Standard: 0.17, Reduced: f(0.085), Threshold: f(200000)},
		VAT:             VAT{Standard: 0.09},
		CapitalGainsTax: 0, DividendTax: 0, StartupRate: 0.085,
		Source: singapore.SourceRef,
		Notes:  "0% capital gains, 0% dividends (one-tier system)",
	},
	{
		ID: "DUBAI", City: "Dubai", Country: "United Arab Emirates",
		CorporateTax:    CorporateTax{Standard: 0.09, Reduced: f(0), Threshold: f(375000)},
		VAT:             VAT{Standard: 0.05},
		CapitalGainsTax: 0, DividendTax: 0, StartupRate: 0,
		Source: SourceRef{URL: "https://mof.gov.ae/", Name: "Ministry of Finance UAE", Country: "United Arab Emirates"},
		Notes:  "0% capital gains, 0% dividends",
	},
	{
		ID: "NEW_YORK", City: "New York", Country: "United States",
		CorporateTax:    CorporateTax{Standard: 0.2825},
		VAT:             VAT{Standard: 0.08875},
		CapitalGainsTax: 0.21, DividendTax: 0.238, StartupRate: 0.2825,
		Source: SourceRef{URL: "https://www.irs.gov/", Name: "Internal Revenue Service (IRS)", Country: "United States"},
		Notes:  "21% federal + 7.25% NY",
	},
	{
		ID: "TORONTO", City: "Toronto", Country: "Canada",
		CorporateTax:    CorporateTax{Standard: 0.265, Reduced: f(0.122), Threshold: f(500000)},
		VAT:             VAT{Standard: 0.13},
		CapitalGainsTax: 0.1325, DividendTax: 0.3953, StartupRate: 0.122,
		Source: SourceRef{URL: "https://www.canada.ca/en/revenue-agency.html", Name: "Canada Revenue Agency (CRA)", Country: "Canada"},
		Notes:  "15% federal + 11.5% Ontario",
	},
}

func init() {
	for i := range fallback {
		fallback[i].VerifiedDate = verified
	}
	if err := ValidateTable(Fallback()); err != nil {
		panic(err)
	}
}

// Fallback returns a fresh copy of the manually verified baseline, keyed by jurisdiction id.
func Fallback() map[string]Record {
	out := make(map[string]Record, len(fallback))
	for _, r := range fallback {
		out[r.ID] = r.Clone()
	}
	return out
}

// IDs returns the keys of table in sorted order.
func IDs(table map[string]Record) []string {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that every rate of r is a fraction in [0, 1].
func Validate(r Record) error {
	if r.ID == "" {
		return errors.New("jurisdiction without id")
	}
	rates := map[string]float64{
		"corporateTax.standard": r.CorporateTax.Standard,
		"vat.standard":          r.VAT.Standard,
		"capitalGainsTax":       r.CapitalGainsTax,
		"dividendTax":           r.DividendTax,
		"startupRate":           r.StartupRate,
	}
	if r.CorporateTax.Reduced != nil {
		rates["corporateTax.reduced"] = *r.CorporateTax.Reduced
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %s=%v: %w", r.ID, name, v, ErrInvalidRate)
		}
	}
	if r.CorporateTax.Threshold != nil && *r.CorporateTax.Threshold < 0 {
		return fmt.Errorf("%s corporateTax.threshold=%v is negative", r.ID, *r.CorporateTax.Threshold)
	}
	return nil
}

// ValidateTable validates every record and checks that keys match record ids.
func ValidateTable(table map[string]Record) error {
	if len(table) == 0 {
		return errors.New("empty jurisdiction table")
	}
	for id, r := range table {
		if id != r.ID {
			return fmt.Errorf("jurisdiction keyed %q has id %q", id, r.ID)
		}
		if err := Validate(r); err != nil {
			return err
		}
	}
	return nil
}
