package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/database"
	"github.com/TobiSchelling/postplanner/internal/logx"
)

type memStore struct {
	items  []content.Item
	bodies map[string]string
}

func (s *memStore) GetQueuedItems(status string) ([]content.Item, error) {
	if status != database.StatusPending {
		return nil, nil
	}
	return s.items, nil
}

func (s *memStore) UpdateItemBody(id, body string) error {
	s.bodies[id] = body
	return nil
}

var articleHTML = `<html><head><title>Launch</title></head><body>
<article><h1>Launch</h1>
<p>` + strings.Repeat("Our new release brings faster scheduling and better analytics for every team. ", 6) + `</p>
<p>` + strings.Repeat("Customers can plan a whole week of posts in minutes. ", 4) + `</p>
</article></body></html>`

func TestFetchMissingContent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(articleHTML))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	store := &memStore{
		bodies: make(map[string]string),
		items: []content.Item{
			{ID: "ok", Title: "Launch", SourceURL: srv.URL + "/article"},
			{ID: "long", Body: strings.Repeat("x", minBodyChars), SourceURL: srv.URL + "/article"},
			{ID: "nosrc", Body: "short"},
			{ID: "gone", SourceURL: srv.URL + "/gone"},
			{ID: "skipped", SourceURL: srv.URL + "/also-gone"},
		},
	}
	f := NewContentFetcher(store, 5*time.Second, logx.Nop())

	r, err := f.FetchMissingContent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Fetched)
	assert.Equal(t, 2, r.AlreadyHadContent)
	assert.Equal(t, 2, r.Failed)
	assert.EqualValues(t, 2, hits.Load(), "the second item on a failing domain is not requested")

	body, ok := store.bodies["ok"]
	require.True(t, ok)
	assert.Contains(t, body, "faster scheduling")
	assert.NotContains(t, store.bodies, "gone")
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	store := &memStore{bodies: make(map[string]string), items: []content.Item{{ID: "a", SourceURL: "http://127.0.0.1:1/a"}}}
	f := NewContentFetcher(store, time.Second, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchMissingContent(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
