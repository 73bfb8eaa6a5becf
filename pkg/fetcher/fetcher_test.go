package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
	"github.com/sw33tLie/taxscope/pkg/whttp"
)

func src(id, url string) jurisdictions.Source {
	return jurisdictions.Source{ID: id, SourceRef: jurisdictions.SourceRef{URL: url, Name: id, Country: id}}
}

func newFetcher(t *testing.T, timeout time.Duration, ex Extractors) *Fetcher {
	t.Helper()
	client, err := whttp.NewClient(whttp.ClientOptions{Timeout: timeout})
	require.NoError(t, err)
	return New(Config{Client: client, Extractors: ex})
}

func TestFetchSuccessRecordsTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>\n  Corporation Tax\n - GOV.UK </title></head></html>"))
	}))
	defer srv.Close()

	out := newFetcher(t, time.Second, nil).Fetch(context.Background(), src("UK", srv.URL))
	assert.True(t, out.Success)
	assert.Equal(t, "UK", out.SourceID)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "Corporation Tax - GOV.UK", out.PageTitle)
	assert.Empty(t, out.Error)
	assert.False(t, out.Extracted)
}

func TestFetchAnyStatusIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	out := newFetcher(t, time.Second, nil).Fetch(context.Background(), src("SPAIN", srv.URL))
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusForbidden, out.StatusCode)
}

func TestFetchNetworkErrorIsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := newFetcher(t, time.Second, nil).Fetch(context.Background(), src("FRANCE", url))
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
	assert.Equal(t, "FRANCE", out.SourceID)
	assert.False(t, out.Timestamp.IsZero())
}

func TestFetchLogsWithSourceField(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	log, hook := logtest.NewNullLogger()
	client, err := whttp.NewClient(whttp.ClientOptions{Timeout: time.Second})
	require.NoError(t, err)

	New(Config{Client: client, Log: log}).Fetch(context.Background(), src("SINGAPORE", url))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "SINGAPORE", entry.Data["source"])
}

func TestFetchAllOneOutcomePerSource(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<title>ok</title>"))
	}))
	defer ok.Close()
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	sources := []jurisdictions.Source{
		src("A", ok.URL), src("B", deadURL), src("C", ok.URL), src("D", deadURL), src("E", ok.URL), src("F", ok.URL),
	}
	outcomes := newFetcher(t, time.Second, nil).FetchAll(context.Background(), sources)
	require.Len(t, outcomes, len(sources))
	for i, o := range outcomes {
		assert.Equal(t, sources[i].ID, o.SourceID)
	}
	assert.False(t, outcomes[1].Success)
	assert.True(t, outcomes[0].Success)
}

func TestFetchAllBoundedBySlowestSource(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fast"))
	}))
	defer fast.Close()

	timeout := 200 * time.Millisecond
	sources := []jurisdictions.Source{src("SLOW1", slow.URL), src("SLOW2", slow.URL), src("FAST", fast.URL)}

	start := time.Now()
	outcomes := newFetcher(t, timeout, nil).FetchAll(context.Background(), sources)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.True(t, outcomes[2].Success)
	// Both slow fetches run in parallel, so the cycle takes about one timeout.
	assert.Less(t, elapsed, 2*timeout+time.Second)
}

func TestFetchRunsRegisteredExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><span id="rate">25</span></body></html>`))
	}))
	defer srv.Close()

	ex := Extractors{
		"FRANCE": func(doc *goquery.Document) (jurisdictions.Partial, bool) {
			if doc.Find("#rate").Text() != "25" {
				return jurisdictions.Partial{}, false
			}
			v := 0.25
			return jurisdictions.Partial{CorporateStandard: &v}, true
		},
	}
	out := newFetcher(t, time.Second, ex).Fetch(context.Background(), src("FRANCE", srv.URL))
	require.True(t, out.Extracted)
	require.NotNil(t, out.Partial)
	assert.Equal(t, 0.25, *out.Partial.CorporateStandard)
}
