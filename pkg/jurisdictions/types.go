package jurisdictions

import (
	"net/url"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// SourceRef identifies the authority behind a record.
type SourceRef struct {
	URL     string `json:"url" mapstructure:"url"`
	Name    string `json:"name" mapstructure:"name"`
	Country string `json:"country" mapstructure:"country"`
}

// Source is an authority whose page is fetched every cycle.
type Source struct {
	ID        string `json:"id" mapstructure:"id"`
	SourceRef `mapstructure:",squash"`
}

// Domain returns the registrable domain of the source URL (impots.gouv.fr),
// or the bare host when it can't be derived.
func (s Source) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	d, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return u.Hostname()
	}
	return d
}

type CorporateTax struct {
	Standard  float64  `json:"standard"`
	Reduced   *float64 `json:"reduced,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type VAT struct {
	Standard float64 `json:"standard"`
}

// Record is the unit of comparison. All rates are fractions (0.25 = 25%).
type Record struct {
	ID              string       `json:"id"`
	City            string       `json:"city"`
	Country         string       `json:"country"`
	CorporateTax    CorporateTax `json:"corporateTax"`
	VAT             VAT          `json:"vat"`
	CapitalGainsTax float64      `json:"capitalGainsTax"`
	DividendTax     float64      `json:"dividendTax"`
	StartupRate     float64      `json:"startupRate"`
	Source          SourceRef    `json:"source"`
	VerifiedDate    string       `json:"verifiedDate"`
	Notes           string       `json:"notes,omitempty"`
}

// Partial is what a per-source extractor may recover from a page.
// Nil fields were not found.
type Partial struct {
	CorporateStandard *float64 `json:"corporateStandard,omitempty"`
	CorporateReduced  *float64 `json:"corporateReduced,omitempty"`
	Threshold         *float64 `json:"threshold,omitempty"`
	VATStandard       *float64 `json:"vatStandard,omitempty"`
}

// Clone returns a deep copy, so callers can't mutate shared pointer fields.
func (r Record) Clone() Record {
	c := r
	if r.CorporateTax.Reduced != nil {
		v := *r.CorporateTax.Reduced
		c.CorporateTax.Reduced = &v
	}
	if r.CorporateTax.Threshold != nil {
		v := *r.CorporateTax.Threshold
		c.CorporateTax.Threshold = &v
	}
	return c
}
