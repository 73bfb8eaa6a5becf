package fetcher

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
)

// Extractor recovers figures from a fetched authority page. It must be a pure
// function of the document. ok=false means nothing usable was found.
type Extractor func(doc *goquery.Document) (p jurisdictions.Partial, ok bool)

// Extractors maps source ids to their extraction strategy. Sources without an
// entry always fall back to the static table.
type Extractors map[string]Extractor

// DefaultExtractors is empty: no authority page is parsed for figures yet.
func DefaultExtractors() Extractors {
	return Extractors{}
}

func (e Extractors) extract(sourceID string, doc *goquery.Document) (*jurisdictions.Partial, bool) {
	fn, ok := e[sourceID]
	if !ok || doc == nil {
		return nil, false
	}
	p, ok := fn(doc)
	if !ok {
		return nil, false
	}
	return &p, true
}
