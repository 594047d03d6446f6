package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/modules/hr.html":
			_, _ = w.Write([]byte("<section>HR</section>"))
		case "/modules/billing.html":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	got, err := f.Fetch(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, "<section>HR</section>", got)

	_, err = f.Fetch(ctx, "billing")
	var rerr *RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusInternalServerError, rerr.Status)
	assert.ErrorIs(t, err, ErrRetrieval)

	_, err = f.Fetch(ctx, "missing")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusNotFound, rerr.Status)

	before := hits.Load()
	_, err = f.Fetch(ctx, "../secrets")
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.Equal(t, before, hits.Load(), "invalid names must not reach the network")
}

func TestHTTPFetcherCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	f, err := NewHTTPFetcher(srv.URL, WithExtension(".htm"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, "crm")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPFetcherRejectsBadBase(t *testing.T) {
	_, err := NewHTTPFetcher("ftp://example.com")
	assert.Error(t, err)
	_, err = NewHTTPFetcher("::")
	assert.Error(t, err)
}

func TestDirFetcher(t *testing.T) {
	fsys := fstest.MapFS{
		"hr.html":      {Data: []byte("<h2>Human Resources</h2>")},
		"finance.html": {Data: []byte("<h2>Finance</h2>")},
	}
	f := NewDirFetcher(fsys, "")
	ctx := context.Background()

	got, err := f.Fetch(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, "<h2>Human Resources</h2>", got)

	_, err = f.Fetch(ctx, "crm")
	var rerr *RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusNotFound, rerr.Status)

	for _, bad := range []string{"", ".", "..", "../hr", "a/b", `a\b`} {
		_, err := f.Fetch(ctx, bad)
		assert.ErrorIs(t, err, ErrRetrieval, "name %q", bad)
	}
}
