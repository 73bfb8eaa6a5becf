package fetcher

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
	"github.com/sw33tLie/taxscope/pkg/whttp"
)

const defaultConcurrency = 5

// Outcome is the result of fetching one source in one cycle.
type Outcome struct {
	SourceID   string                 `json:"sourceId"`
	Success    bool                   `json:"success"`
	Timestamp  time.Time              `json:"timestamp"`
	Error      string                 `json:"error,omitempty"`
	StatusCode int                    `json:"statusCode,omitempty"`
	PageTitle  string                 `json:"pageTitle,omitempty"`
	Extracted  bool                   `json:"extracted,omitempty"`
	Source     jurisdictions.Source   `json:"source"`
	Partial    *jurisdictions.Partial `json:"partial,omitempty"`
}

// Config holds everything a Fetcher needs.
type Config struct {
	Client      *retryablehttp.Client
	Concurrency int // defaults to 5 if <= 0
	Extractors  Extractors
	Log         logrus.FieldLogger // optional; nil = no logging
	Now         func() time.Time
}

type Fetcher struct {
	client      *retryablehttp.Client
	concurrency int
	extractors  Extractors
	log         logrus.FieldLogger
	now         func() time.Time
}

func New(cfg Config) *Fetcher {
	f := &Fetcher{
		client:      cfg.Client,
		concurrency: cfg.Concurrency,
		extractors:  cfg.Extractors,
		log:         cfg.Log,
		now:         cfg.Now,
	}
	if f.concurrency <= 0 {
		f.concurrency = defaultConcurrency
	}
	if f.extractors == nil {
		f.extractors = DefaultExtractors()
	}
	if f.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		f.log = l
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Fetch issues one GET against the source and never fails: transport errors
// become an unsuccessful Outcome.
func (f *Fetcher) Fetch(ctx context.Context, src jurisdictions.Source) Outcome {
	log := f.log.WithField("source", src.ID)
	log.Debugf("Fetching %s from %s", src.Domain(), src.URL)

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{URL: src.URL}, f.client)
	if err != nil {
		log.Warnf("Error fetching %s: %v", src.ID, err)
		return Outcome{
			SourceID:  src.ID,
			Success:   false,
			Timestamp: f.now().UTC(),
			Error:     err.Error(),
			Source:    src,
		}
	}

	out := Outcome{
		SourceID:   src.ID,
		Success:    true,
		Timestamp:  f.now().UTC(),
		StatusCode: res.StatusCode,
		Source:     src,
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		log.Debugf("Could not parse page: %v", err)
		return out
	}
	out.PageTitle = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	out.Partial, out.Extracted = f.extractors.extract(src.ID, doc)

	log.Debugf("Fetched: status %d, %d chars", res.StatusCode, res.ResponseLength)
	return out
}

// FetchAll fetches every source concurrently and returns exactly one Outcome
// per source, in the order of sources. It returns once the slowest fetch has
// completed or timed out.
func (f *Fetcher) FetchAll(ctx context.Context, sources []jurisdictions.Source) []Outcome {
	outcomes := make([]Outcome, len(sources))
	if len(sources) == 0 {
		return outcomes
	}

	idxChan := make(chan int, len(sources))
	for i := range sources {
		idxChan <- i
	}
	close(idxChan)

	workers := f.concurrency
	if workers > len(sources) {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				// each worker owns distinct indexes, no lock needed
				outcomes[i] = f.Fetch(ctx, sources[i])
			}
		}()
	}
	wg.Wait()

	return outcomes
}
