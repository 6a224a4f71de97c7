// Package server wires the gateway's HTTP surface: local endpoints for
// health and metrics, and the dispatcher as the catch-all for everything
// else.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/proxy"
)

// NewRouter builds the gateway mux. /healthz and /metrics are answered
// locally and skip admission control; every other path goes through the
// dispatcher.
func NewRouter(d *proxy.Dispatcher) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", d)

	return middleware.RequestID(mux)
}
