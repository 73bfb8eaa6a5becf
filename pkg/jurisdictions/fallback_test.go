package jurisdictions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackIsValid(t *testing.T) {
	table := Fallback()
	require.Len(t, table, 10)
	require.NoError(t, ValidateTable(table))

	dubai := table["DUBAI"]
	assert.Equal(t, 0.09, dubai.CorporateTax.Standard)
	require.NotNil(t, dubai.CorporateTax.Reduced)
	assert.Equal(t, 0.0, *dubai.CorporateTax.Reduced)
	assert.Equal(t, "2024-02-13", dubai.VerifiedDate)
}

func TestFallbackReturnsIndependentCopies(t *testing.T) {
	a := Fallback()
	*a["PARIS"].CorporateTax.Reduced = 0.99
	delete(a, "ROME")

	b := Fallback()
	assert.Equal(t, 0.15, *b["PARIS"].CorporateTax.Reduced)
	assert.Contains(t, b, "ROME")
}

func TestValidateRejectsPercentages(t *testing.T) {
	r := Fallback()["BERLIN"]
	r.CorporateTax.Standard = 30
	err := Validate(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRate))

	r = Fallback()["BERLIN"]
	r.DividendTax = -0.1
	assert.ErrorIs(t, Validate(r), ErrInvalidRate)
}

func TestValidateTableKeyMismatch(t *testing.T) {
	table := Fallback()
	table["ELSEWHERE"] = table["ROME"]
	assert.Error(t, ValidateTable(table))
	assert.Error(t, ValidateTable(map[string]Record{}))
}

func TestIDsSorted(t *testing.T) {
	ids := IDs(Fallback())
	assert.Equal(t, "AMSTERDAM", ids[0])
	assert.Equal(t, "TORONTO", ids[len(ids)-1])
}

func TestSourceDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.impots.gouv.fr/professionnel/limpot-sur-les-societes", "impots.gouv.fr"},
		{"https://www.gov.uk/topic/business-tax/corporation-tax", "www.gov.uk"},
		{"https://www.iras.gov.sg/taxes", "iras.gov.sg"},
		{"::not a url", ""},
	}
	for _, tt := range tests {
		s := Source{ID: "X", SourceRef: SourceRef{URL: tt.url}}
		assert.Equal(t, tt.want, s.Domain(), tt.url)
	}
}

func TestDefaultSourcesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range DefaultSources() {
		assert.False(t, seen[s.ID], "duplicate %s", s.ID)
		seen[s.ID] = true
	}
	assert.Len(t, seen, 4)
}
