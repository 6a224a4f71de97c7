package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/index"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// SearchHandler provides the HTTP handler for the search endpoint.
type SearchHandler struct {
	index  index.Indexer
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a SearchHandler.
func New(idx index.Indexer, c *cache.Cache) *SearchHandler {
	return &SearchHandler{
		index:  idx,
		cache:  c,
		logger: slog.Default().With(slog.String("component", "handlers")),
	}
}

// SearchPosts handles GET /api/search/posts?query=...&limit=...
func (h *SearchHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Query is required.")
		return
	}

	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}

	value, cached, err := h.cache.GetOrCompute(r.Context(), cache.SearchKey(query, limit), func() ([]byte, error) {
		docs, err := h.index.Search(r.Context(), query, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(docs)
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "Search failed.")
		return
	}

	httputil.WriteCached(w, http.StatusOK, json.RawMessage(value), cached)
}
