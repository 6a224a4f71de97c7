package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/auth"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/ratelimit"
)

const dispatchSecret = "dispatch-test-secret"

type dispatchEnv struct {
	dispatcher *Dispatcher
	redis      *miniredis.Miniredis
	backend    *recordingBackend
}

// recordingBackend captures what the dispatcher actually forwarded.
type recordingBackend struct {
	srv      *httptest.Server
	lastPath string
	lastUser string
}

func newRecordingBackend(t *testing.T) *recordingBackend {
	t.Helper()

	b := &recordingBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.lastPath = r.URL.Path
		b.lastUser = r.Header.Get(UserIDHeader)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	t.Cleanup(b.srv.Close)
	return b
}

// setupDispatcher routes every prefix at one recording backend with
// ceilings high enough to stay out of the way unless a test lowers them.
func setupDispatcher(t *testing.T, globalMax, sensitiveMax int64) *dispatchEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cache.NewRedisStore(client)

	backend := newRecordingBackend(t)
	table := DefaultTable(backend.srv.URL, backend.srv.URL, backend.srv.URL, backend.srv.URL)

	d := NewDispatcher(
		table,
		auth.NewVerifier(dispatchSecret),
		ratelimit.New(store, "global", globalMax, time.Minute),
		ratelimit.New(store, "sensitive", sensitiveMax, 15*time.Minute),
		2*time.Second,
	)

	return &dispatchEnv{dispatcher: d, redis: mr, backend: backend}
}

func mintDispatchToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()

	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(dispatchSecret))
	require.NoError(t, err)
	return signed
}

func TestDispatchForwardsWithRewriteAndIdentity(t *testing.T) {
	env := setupDispatcher(t, 100, 100)
	token := mintDispatchToken(t, "user-123", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/v1/posts/abc-123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/posts/abc-123", env.backend.lastPath, "prefix rewritten exactly once")
	assert.Equal(t, "user-123", env.backend.lastUser, "verified identity injected for the backend")
}

func TestDispatchPublicRouteSkipsAuth(t *testing.T) {
	env := setupDispatcher(t, 100, 100)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()

	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/auth/login", env.backend.lastPath)
}

func TestDispatchStripsSpoofedIdentity(t *testing.T) {
	env := setupDispatcher(t, 100, 100)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.Header.Set(UserIDHeader, "attacker")
	rec := httptest.NewRecorder()

	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.backend.lastUser, "client-supplied identity must never reach a backend")
}

func TestDispatchMissingTokenIs401(t *testing.T) {
	env := setupDispatcher(t, 100, 100)

	req := httptest.NewRequest(http.MethodGet, "/v1/posts", nil)
	rec := httptest.NewRecorder()

	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assertFailureEnvelope(t, rec)
}

func TestDispatchBadTokenIs403(t *testing.T) {
	env := setupDispatcher(t, 100, 100)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + mintDispatchToken(t, "user-123", time.Now().Add(-time.Hour))},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/posts", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			env.dispatcher.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assertFailureEnvelope(t, rec)
		})
	}
}

func TestDispatchGlobalCeiling(t *testing.T) {
	env := setupDispatcher(t, 2, 100)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		rec := httptest.NewRecorder()
		env.dispatcher.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assertFailureEnvelope(t, rec)
}

func TestDispatchSensitiveCeilingIsStricter(t *testing.T) {
	env := setupDispatcher(t, 100, 1)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", nil)
	rec := httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second registration attempt trips the sensitive tier while the
	// global tier still has headroom.
	rec = httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Non-sensitive traffic from the same client is still admitted.
	rec = httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDispatchFailsClosedWhenStoreDown(t *testing.T) {
	env := setupDispatcher(t, 100, 100)
	env.redis.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assertFailureEnvelope(t, rec)
}

func TestDispatchUnknownRouteIs404(t *testing.T) {
	env := setupDispatcher(t, 100, 100)

	req := httptest.NewRequest(http.MethodGet, "/v2/unknown", nil)
	rec := httptest.NewRecorder()
	env.dispatcher.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertFailureEnvelope(t, rec)
}

func TestDispatchUnreachableUpstreamIs502(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cache.NewRedisStore(client)

	// A backend that existed once and is now gone.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	d := NewDispatcher(
		DefaultTable(deadURL, deadURL, deadURL, deadURL),
		auth.NewVerifier(dispatchSecret),
		ratelimit.New(store, "global", 100, time.Minute),
		ratelimit.New(store, "sensitive", 100, 15*time.Minute),
		time.Second,
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assertFailureEnvelope(t, rec)
}

func assertFailureEnvelope(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Message)
}
