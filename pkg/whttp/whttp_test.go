package whttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTTPRequestSetsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html><title>Impôt</title></html>"))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: time.Second})
	require.NoError(t, err)

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, USER_AGENT, gotUA)
	assert.Contains(t, gotAccept, "text/html")
	assert.Contains(t, res.BodyString(), "Impôt")
	assert.Equal(t, len([]rune(res.BodyString())), res.ResponseLength)
}

func TestSendHTTPRequestPassesErrorStatusThrough(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: time.Second})
	require.NoError(t, err)

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestSendHTTPRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	_, err := NewClient(ClientOptions{Timeout: time.Second, Proxy: "://bad"})
	assert.Error(t, err)
}
