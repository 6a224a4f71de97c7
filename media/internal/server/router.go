// Package server wires the media service's HTTP surface.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/handlers"
)

// NewRouter builds the media service mux.
func NewRouter(h *handlers.MediaHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/api/media", middleware.Identity(http.HandlerFunc(h.Collection)))

	return middleware.RequestID(mux)
}
