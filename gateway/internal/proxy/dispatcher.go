package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpapi "github.com/pulsefeed-systems/pulsefeed-stack/common/httputil"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/middleware"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/auth"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/metrics"
	"github.com/pulsefeed-systems/pulsefeed-stack/gateway/internal/ratelimit"
)

// UserIDHeader is the trust header injected after token verification.
// Backends read it unconditionally, so the dispatcher strips any inbound
// value before forwarding.
const UserIDHeader = middleware.UserIDHeader

// Dispatcher is the single dispatch function for the gateway: admission
// control, authentication, route resolution and forwarding, in that
// order, with an early rejection at every check.
type Dispatcher struct {
	table     *Table
	verifier  *auth.Verifier
	global    *ratelimit.Limiter
	sensitive *ratelimit.Limiter
	proxies   map[string]*httputil.ReverseProxy
	logger    *slog.Logger
}

// NewDispatcher builds one reverse proxy per route up front; the table is
// static for the life of the deployment.
func NewDispatcher(table *Table, verifier *auth.Verifier, global, sensitive *ratelimit.Limiter, upstreamTimeout time.Duration) *Dispatcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: upstreamTimeout,
		}).DialContext,
		ResponseHeaderTimeout: upstreamTimeout,
	}

	d := &Dispatcher{
		table:     table,
		verifier:  verifier,
		global:    global,
		sensitive: sensitive,
		proxies:   make(map[string]*httputil.ReverseProxy, len(table.Routes)),
		logger:    slog.Default().With(slog.String("component", "dispatcher")),
	}

	for i := range table.Routes {
		route := table.Routes[i]
		target, err := url.Parse(route.Target)
		if err != nil {
			// Targets are validated with the table; an unparseable one
			// here is a programming error.
			panic("proxy: invalid route target " + route.Target)
		}

		d.proxies[route.PathPrefix] = &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(target)
				pr.Out.URL.Path = route.Rewrite.Apply(pr.In.URL.Path)
				pr.Out.URL.RawPath = ""
				pr.SetXForwarded()
			},
			Transport: transport,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				metrics.UpstreamErrors.WithLabelValues(route.PathPrefix).Inc()
				d.logger.Error("upstream unreachable",
					slog.String("route", route.PathPrefix),
					slog.String("error", err.Error()))
				httpapi.WriteError(w, http.StatusBadGateway, "Unable to reach the service.")
			},
		}
	}

	return d
}

// ServeHTTP runs the per-request pipeline:
// coarse limit -> sensitive limit -> auth -> resolve -> forward -> relay.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	ip := clientIP(r)

	// Never let a client smuggle an identity to a backend.
	r.Header.Del(UserIDHeader)

	if !d.admit(r.Context(), w, d.global, ip, path) {
		return
	}

	if d.table.IsSensitive(path) {
		if !d.admit(r.Context(), w, d.sensitive, ip, path) {
			return
		}
	}

	route, ok := d.table.Resolve(path)
	if !ok {
		d.reject(w, path, http.StatusNotFound, "Unknown route.")
		return
	}

	if route.RequiresAuth {
		userID, ok := d.authenticate(w, r, route)
		if !ok {
			return
		}
		r.Header.Set(UserIDHeader, userID)
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	d.proxies[route.PathPrefix].ServeHTTP(rec, r)
	metrics.RequestsTotal.WithLabelValues(route.PathPrefix, strconv.Itoa(rec.status)).Inc()
}

// admit runs one limiter tier. A store failure fails closed: the request
// is rejected exactly as if the ceiling were exceeded.
func (d *Dispatcher) admit(ctx context.Context, w http.ResponseWriter, limiter *ratelimit.Limiter, ip, path string) bool {
	allowed, err := limiter.Allow(ctx, ip)
	if err != nil {
		metrics.RateLimitStoreErrors.Inc()
		d.logger.Error("counter store unreachable, failing closed",
			slog.String("tier", limiter.Tier()),
			slog.String("error", err.Error()))
		d.reject(w, path, http.StatusTooManyRequests, "Too many requests, please try again later.")
		return false
	}
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(limiter.Tier()).Inc()
		d.logger.Warn("rate limit exceeded",
			slog.String("tier", limiter.Tier()),
			slog.String("ip", ip))
		d.reject(w, path, http.StatusTooManyRequests, "Too many requests, please try again later.")
		return false
	}
	return true
}

// authenticate verifies the bearer token: 401 when no token is presented,
// 403 when one is presented but fails verification.
func (d *Dispatcher) authenticate(w http.ResponseWriter, r *http.Request, route *Route) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		metrics.AuthFailures.WithLabelValues("missing").Inc()
		d.reject(w, route.PathPrefix, http.StatusUnauthorized, "No token provided.")
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		metrics.AuthFailures.WithLabelValues("malformed").Inc()
		d.reject(w, route.PathPrefix, http.StatusForbidden, "Invalid token.")
		return "", false
	}

	claims, err := d.verifier.Verify(parts[1])
	if err != nil {
		reason := "invalid"
		if errors.Is(err, auth.ErrExpiredToken) {
			reason = "expired"
		}
		metrics.AuthFailures.WithLabelValues(reason).Inc()
		d.reject(w, route.PathPrefix, http.StatusForbidden, "Invalid token.")
		return "", false
	}

	return claims.UserID, true
}

func (d *Dispatcher) reject(w http.ResponseWriter, route string, status int, message string) {
	metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpapi.WriteError(w, status, message)
}

// clientIP derives the admission-control key from the peer address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the upstream status for metrics while the body
// streams through untouched.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}
