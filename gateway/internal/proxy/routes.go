// Package proxy implements the gateway's dispatch layer: a static,
// declarative route table evaluated by one dispatch function, and the
// reverse proxy that forwards admitted requests to backend origins.
package proxy

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RewriteRule replaces the leading From segment of an inbound path with
// To, applied exactly once.
type RewriteRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Apply rewrites path. Only a leading match is replaced; a path that
// happens to contain From again deeper in is left alone.
func (r RewriteRule) Apply(path string) string {
	if r.From == "" || !strings.HasPrefix(path, r.From) {
		return path
	}
	return r.To + path[len(r.From):]
}

// Route maps one inbound path prefix to exactly one backend origin.
type Route struct {
	PathPrefix   string      `yaml:"path_prefix"`
	Target       string      `yaml:"target"`
	RequiresAuth bool        `yaml:"requires_auth"`
	Rewrite      RewriteRule `yaml:"rewrite"`
}

// Table is the static route table for one deployment. Sensitive prefixes
// name the routes that get the stricter admission tier layered in front
// of the coarse one.
type Table struct {
	Routes            []Route  `yaml:"routes"`
	SensitivePrefixes []string `yaml:"sensitive_prefixes"`
}

// DefaultTable builds the standard PulseFeed route table from the four
// backend origins. Registration is the default sensitive route.
func DefaultTable(identity, posts, media, search string) *Table {
	rewrite := RewriteRule{From: "/v1", To: "/api"}
	return &Table{
		Routes: []Route{
			{PathPrefix: "/v1/auth", Target: identity, RequiresAuth: false, Rewrite: rewrite},
			{PathPrefix: "/v1/posts", Target: posts, RequiresAuth: true, Rewrite: rewrite},
			{PathPrefix: "/v1/media", Target: media, RequiresAuth: true, Rewrite: rewrite},
			{PathPrefix: "/v1/search", Target: search, RequiresAuth: true, Rewrite: rewrite},
		},
		SensitivePrefixes: []string{"/v1/auth/register"},
	}
}

// LoadTable reads a route table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks every route has a prefix and a parseable origin URL.
func (t *Table) Validate() error {
	if len(t.Routes) == 0 {
		return fmt.Errorf("route table has no routes")
	}
	for i, route := range t.Routes {
		if route.PathPrefix == "" {
			return fmt.Errorf("route %d: path_prefix is required", i)
		}
		u, err := url.Parse(route.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("route %s: invalid target %q", route.PathPrefix, route.Target)
		}
	}
	return nil
}

// Resolve returns the route whose prefix matches path, longest prefix
// first so /v1/auth/register style entries can coexist with /v1/auth.
func (t *Table) Resolve(path string) (*Route, bool) {
	var best *Route
	for i := range t.Routes {
		route := &t.Routes[i]
		if !strings.HasPrefix(path, route.PathPrefix) {
			continue
		}
		if best == nil || len(route.PathPrefix) > len(best.PathPrefix) {
			best = route
		}
	}
	return best, best != nil
}

// IsSensitive reports whether path falls under a sensitive prefix.
func (t *Table) IsSensitive(path string) bool {
	for _, prefix := range t.SensitivePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
