// Package server wires the search service's HTTP surface.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/handlers"
)

// NewRouter builds the search service mux.
func NewRouter(h *handlers.SearchHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/api/search/posts", middleware.Identity(http.HandlerFunc(h.SearchPosts)))

	return middleware.RequestID(mux)
}
