package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commoncache "github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/handlers"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/index"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/server"
)

// fakeIndex serves canned results and counts queries.
type fakeIndex struct {
	results []index.PostDocument
	queries int
	failErr error
}

func (f *fakeIndex) IndexPost(context.Context, index.PostDocument) error { return nil }
func (f *fakeIndex) DeletePost(context.Context, string) error            { return nil }

func (f *fakeIndex) Search(_ context.Context, _ string, limit int) ([]index.PostDocument, error) {
	f.queries++
	if f.failErr != nil {
		return nil, f.failErr
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func setupSearch(t *testing.T) (http.Handler, *fakeIndex) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	idx := &fakeIndex{}
	h := handlers.New(idx, cache.New(commoncache.NewRedisStore(client)))
	return server.NewRouter(h), idx
}

func doSearch(router http.Handler, target, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Cached  *bool           `json:"cached"`
}

func TestSearchReturnsResults(t *testing.T) {
	router, idx := setupSearch(t)
	idx.results = []index.PostDocument{
		{ID: "post-1", UserID: "user-1", Content: "hello world", CreatedAt: time.Now().UTC()},
	}

	rec := doSearch(router, "/api/search/posts?query=hello", "user-2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Cached)
	assert.False(t, *body.Cached)

	var docs []index.PostDocument
	require.NoError(t, json.Unmarshal(body.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "post-1", docs[0].ID)
}

func TestSearchCachedOnSecondQuery(t *testing.T) {
	router, idx := setupSearch(t)

	rec := doSearch(router, "/api/search/posts?query=hello", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doSearch(router, "/api/search/posts?query=hello", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Cached)
	assert.True(t, *body.Cached)
	assert.Equal(t, 1, idx.queries, "second query must be served from cache")
}

func TestSearchDistinctQueriesCachedSeparately(t *testing.T) {
	router, idx := setupSearch(t)

	doSearch(router, "/api/search/posts?query=hello", "user-1")
	doSearch(router, "/api/search/posts?query=world", "user-1")
	assert.Equal(t, 2, idx.queries)

	doSearch(router, "/api/search/posts?query=hello&limit=5", "user-1")
	assert.Equal(t, 3, idx.queries, "a different limit is a different result set")
}

func TestSearchRequiresQuery(t *testing.T) {
	router, _ := setupSearch(t)

	for _, target := range []string{"/api/search/posts", "/api/search/posts?query=", "/api/search/posts?query=%20"} {
		rec := doSearch(router, target, "user-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestSearchRequiresIdentity(t *testing.T) {
	router, _ := setupSearch(t)

	rec := doSearch(router, "/api/search/posts?query=hello", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchIndexErrorIs500AndNotCached(t *testing.T) {
	router, idx := setupSearch(t)
	idx.failErr = errors.New("cluster red")

	rec := doSearch(router, "/api/search/posts?query=hello", "user-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Recovery is immediate once the index answers again.
	idx.failErr = nil
	rec = doSearch(router, "/api/search/posts?query=hello", "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, *body.Cached, "errors must never be cached")
}
