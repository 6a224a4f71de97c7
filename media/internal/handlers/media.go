package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/models"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/repository"
)

// MediaHandler provides HTTP handlers for the media endpoints.
type MediaHandler struct {
	repo   repository.Repository
	logger *slog.Logger
}

// New creates a MediaHandler.
func New(repo repository.Repository) *MediaHandler {
	return &MediaHandler{
		repo:   repo,
		logger: slog.Default().With(slog.String("component", "handlers")),
	}
}

// Collection handles /api/media: POST registers, GET lists the caller's
// media.
func (h *MediaHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.RegisterMedia(w, r)
	case http.MethodGet:
		h.ListMedia(w, r)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// RegisterMedia handles POST /api/media. The upload itself happens
// against object storage; this records the metadata.
func (h *MediaHandler) RegisterMedia(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if strings.TrimSpace(req.OriginalName) == "" || strings.TrimSpace(req.URL) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "originalName and url are required.")
		return
	}

	media := &models.Media{
		ID:           uuid.NewString(),
		UserID:       middleware.GetUserID(r.Context()),
		OriginalName: req.OriginalName,
		URL:          req.URL,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), media); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to register media", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to register media.")
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "Media registered", media)
}

// ListMedia handles GET /api/media.
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list media", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list media.")
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", items)
}
