package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/models"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// EventPublisher is the slice of the bus publisher the handlers need.
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *models.Post) error
	PublishPostDeleted(ctx context.Context, post *models.Post) error
}

// PostsHandler provides HTTP handlers for the posts endpoints.
type PostsHandler struct {
	repo      repository.Repository
	cache     *cache.Cache
	publisher EventPublisher
	logger    *slog.Logger
}

// New creates a PostsHandler.
func New(repo repository.Repository, c *cache.Cache, publisher EventPublisher) *PostsHandler {
	return &PostsHandler{
		repo:      repo,
		cache:     c,
		publisher: publisher,
		logger:    slog.Default().With(slog.String("component", "handlers")),
	}
}

// Collection handles /api/posts: POST creates, GET lists.
func (h *PostsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreatePost(w, r)
	case http.MethodGet:
		h.ListPosts(w, r)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Item handles /api/posts/{id}: GET fetches, DELETE removes.
func (h *PostsHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "Post not found.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.GetPost(w, r, id)
	case http.MethodDelete:
		h.DeletePost(w, r, id)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// CreatePost handles POST /api/posts.
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Content is required.")
		return
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		UserID:    middleware.GetUserID(r.Context()),
		Content:   req.Content,
		MediaIDs:  req.MediaIDs,
		CreatedAt: time.Now().UTC(),
	}
	if post.MediaIDs == nil {
		post.MediaIDs = []string{}
	}

	if err := h.repo.Create(r.Context(), post); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create post", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to create post.")
		return
	}

	// The post is durable at this point. A publish failure loses the
	// fan-out for this one event but must not fail the request.
	if err := h.publisher.PublishPostCreated(r.Context(), post); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to publish post.created",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()))
	}

	if err := h.cache.InvalidateListings(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to invalidate listings",
			slog.String("error", err.Error()))
	}

	httputil.WriteSuccess(w, http.StatusCreated, "Post created", post)
}

// ListPosts handles GET /api/posts.
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page := defaultPage
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}

	value, cached, err := h.cache.GetOrCompute(r.Context(), cache.ListKey(page, limit), cache.ListTTL, func() ([]byte, error) {
		posts, err := h.repo.List(r.Context(), page, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(posts)
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list posts", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list posts.")
		return
	}

	httputil.WriteCached(w, http.StatusOK, json.RawMessage(value), cached)
}

// GetPost handles GET /api/posts/{id}.
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request, id string) {
	value, cached, err := h.cache.GetOrCompute(r.Context(), cache.PostKey(id), cache.PostTTL, func() ([]byte, error) {
		post, err := h.repo.GetByID(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(post)
	})
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Post not found.")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get post",
			slog.String("post_id", id),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to get post.")
		return
	}

	httputil.WriteCached(w, http.StatusOK, json.RawMessage(value), cached)
}

// DeletePost handles DELETE /api/posts/{id}. Only the owner can delete;
// anyone else sees the same 404 as for a missing post.
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request, id string) {
	post, err := h.repo.Delete(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Post not found.")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to delete post",
			slog.String("post_id", id),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to delete post.")
		return
	}

	if err := h.publisher.PublishPostDeleted(r.Context(), post); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to publish post.deleted",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()))
	}

	// Synchronous: the response must not be written while stale entries
	// are still readable.
	if err := h.cache.InvalidatePost(r.Context(), post.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to invalidate cache",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()))
	}

	httputil.WriteSuccess(w, http.StatusOK, "Post deleted", nil)
}
