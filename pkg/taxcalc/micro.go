package taxcalc

import "fmt"

// MicroCategory is a French micro-entrepreneur activity class.
type MicroCategory struct {
	Label        string  `json:"label"`
	SocialRate   float64 `json:"socialRate"`
	TaxAllowance float64 `json:"taxAllowance"`
	Liberatoire  float64 `json:"liberatoire"`
}

var microCategories = map[string]MicroCategory{
	"VENTE":                  {Label: "Purchase / resale", SocialRate: 0.123, TaxAllowance: 0.71, Liberatoire: 0.01},
	"PRESTATION_SERVICE_BIC": {Label: "Services (BIC)", SocialRate: 0.212, TaxAllowance: 0.50, Liberatoire: 0.017},
	"LIBERAL":                {Label: "Liberal profession (BNC)", SocialRate: 0.231, TaxAllowance: 0.34, Liberatoire: 0.022},
}

// MicroCategories returns a copy of the supported categories.
func MicroCategories() map[string]MicroCategory {
	out := make(map[string]MicroCategory, len(microCategories))
	for k, v := range microCategories {
		out[k] = v
	}
	return out
}

// MicroSocial returns the social contributions due on gross turnover.
func MicroSocial(turnover float64, category string) (float64, error) {
	cat, ok := microCategories[category]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if turnover <= 0 {
		return 0, nil
	}
	return turnover * cat.SocialRate, nil
}
