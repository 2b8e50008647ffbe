package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPageFetcherSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><head><TITLE>\n  Go &amp; You \n</TITLE></head><body><p>hi</p></body></html>"))
	}))
	defer srv.Close()

	f := NewPageFetcher(zap.NewNop())
	res := f.Fetch(context.Background(), srv.URL+"/post")

	assert.Equal(t, "Go & You", res.Title)
	assert.Contains(t, res.RawText, "<p>hi</p>")
	assert.Equal(t, BrowserUserAgent, gotUA)
}

func TestPageFetcherNon2xxSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<title>Denied</title>"))
	}))
	defer srv.Close()

	f := NewPageFetcher(zap.NewNop())
	res := f.Fetch(context.Background(), srv.URL)

	assert.Equal(t, "", res.RawText)
	assert.Equal(t, "127.0.0.1", res.Title)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPageFetcherNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone"
	srv.Close()

	res := NewPageFetcher(zap.NewNop()).Fetch(context.Background(), url)

	assert.True(t, res.Empty())
	assert.Equal(t, "127.0.0.1", res.Title)
}

func TestPageFetcherNoTitleFallsBackToHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain body"))
	}))
	defer srv.Close()

	res := NewPageFetcher(zap.NewNop()).Fetch(context.Background(), srv.URL)

	assert.Equal(t, "plain body", res.RawText)
	assert.Equal(t, "127.0.0.1", res.Title)
}

func TestPageFetcherBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	res := NewPageFetcher(zap.NewNop(), WithMaxBodyBytes(4)).Fetch(context.Background(), srv.URL)

	assert.Equal(t, "0123", res.RawText)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "First", ExtractTitle(`<title lang="en">First</title><title>Second</title>`))
	assert.Equal(t, "", ExtractTitle("<h1>none</h1>"))
}
