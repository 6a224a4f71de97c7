// Package server wires the post service's HTTP surface.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/handlers"
)

// NewRouter builds the post service mux. All /api routes sit behind the
// identity middleware; health and metrics do not.
func NewRouter(h *handlers.PostsHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/api/posts", middleware.Identity(http.HandlerFunc(h.Collection)))
	mux.Handle("/api/posts/", middleware.Identity(http.HandlerFunc(h.Item)))

	return middleware.RequestID(mux)
}
