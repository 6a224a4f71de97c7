package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/handlers"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/models"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/repository"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/server"
)

func setupMedia(t *testing.T) (http.Handler, *repository.MemoryRepository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	return server.NewRouter(handlers.New(repo)), repo
}

func doRequest(t *testing.T, router http.Handler, method, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "/api/media", &buf)
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
}

func TestRegisterMedia(t *testing.T) {
	router, _ := setupMedia(t)

	rec := doRequest(t, router, http.MethodPost, "user-1", models.RegisterMediaRequest{
		OriginalName: "photo.jpg",
		URL:          "https://cdn.example.com/abc",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	var media models.Media
	require.NoError(t, json.Unmarshal(body.Data, &media))
	assert.NotEmpty(t, media.ID)
	assert.Equal(t, "user-1", media.UserID)
	assert.Equal(t, "photo.jpg", media.OriginalName)
}

func TestRegisterMediaValidation(t *testing.T) {
	router, _ := setupMedia(t)

	tests := []struct {
		name string
		req  models.RegisterMediaRequest
	}{
		{"missing name", models.RegisterMediaRequest{URL: "https://cdn.example.com/abc"}},
		{"missing url", models.RegisterMediaRequest{OriginalName: "photo.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "user-1", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListMediaScopedToCaller(t *testing.T) {
	router, _ := setupMedia(t)

	rec := doRequest(t, router, http.MethodPost, "user-1", models.RegisterMediaRequest{
		OriginalName: "mine.jpg", URL: "https://cdn.example.com/1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "user-2", models.RegisterMediaRequest{
		OriginalName: "theirs.jpg", URL: "https://cdn.example.com/2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	var items []models.Media
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "mine.jpg", items[0].OriginalName)
}

func TestMediaRequiresIdentity(t *testing.T) {
	router, _ := setupMedia(t)

	rec := doRequest(t, router, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
