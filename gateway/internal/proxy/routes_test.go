package proxy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteApply(t *testing.T) {
	rule := RewriteRule{From: "/v1", To: "/api"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "/v1/posts", "/api/posts"},
		{"nested", "/v1/posts/abc-123", "/api/posts/abc-123"},
		{"prefix only", "/v1", "/api"},
		{"no match untouched", "/healthz", "/healthz"},
		{"applied once", "/v1/v1/posts", "/api/v1/posts"},
		{"interior occurrence untouched", "/v1/echo/v1", "/api/echo/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Apply(tt.in))
		})
	}
}

func TestRewriteApplyEmptyRule(t *testing.T) {
	assert.Equal(t, "/v1/posts", RewriteRule{}.Apply("/v1/posts"))
}

func TestDefaultTableResolve(t *testing.T) {
	table := DefaultTable("http://identity:3001", "http://post:3002", "http://media:3003", "http://search:3004")

	tests := []struct {
		path         string
		wantTarget   string
		requiresAuth bool
	}{
		{"/v1/auth/login", "http://identity:3001", false},
		{"/v1/auth/register", "http://identity:3001", false},
		{"/v1/posts", "http://post:3002", true},
		{"/v1/posts/abc-123", "http://post:3002", true},
		{"/v1/media/xyz", "http://media:3003", true},
		{"/v1/search", "http://search:3004", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, ok := table.Resolve(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.wantTarget, route.Target)
			assert.Equal(t, tt.requiresAuth, route.RequiresAuth)
		})
	}
}

func TestResolveUnknownPath(t *testing.T) {
	table := DefaultTable("http://identity:3001", "http://post:3002", "http://media:3003", "http://search:3004")

	_, ok := table.Resolve("/v2/posts")
	assert.False(t, ok)

	_, ok = table.Resolve("/")
	assert.False(t, ok)
}

func TestResolveLongestPrefixWins(t *testing.T) {
	table := &Table{
		Routes: []Route{
			{PathPrefix: "/v1/posts", Target: "http://post:3002"},
			{PathPrefix: "/v1/posts/trending", Target: "http://search:3004"},
		},
	}

	route, ok := table.Resolve("/v1/posts/trending/today")
	require.True(t, ok)
	assert.Equal(t, "http://search:3004", route.Target)

	route, ok = table.Resolve("/v1/posts/abc")
	require.True(t, ok)
	assert.Equal(t, "http://post:3002", route.Target)
}

func TestIsSensitive(t *testing.T) {
	table := DefaultTable("http://identity:3001", "http://post:3002", "http://media:3003", "http://search:3004")

	assert.True(t, table.IsSensitive("/v1/auth/register"))
	assert.False(t, table.IsSensitive("/v1/auth/login"))
	assert.False(t, table.IsSensitive("/v1/posts"))
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	data := `routes:
  - path_prefix: /v1/posts
    target: http://post:3002
    requires_auth: true
    rewrite:
      from: /v1
      to: /api
sensitive_prefixes:
  - /v1/auth/register
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Routes, 1)
	assert.Equal(t, "/v1/posts", table.Routes[0].PathPrefix)
	assert.True(t, table.Routes[0].RequiresAuth)
	assert.Equal(t, "/api", table.Routes[0].Rewrite.To)
	assert.Equal(t, []string{"/v1/auth/register"}, table.SensitivePrefixes)
}

func TestLoadTableRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data string
	}{
		{"empty table", "routes: []\n"},
		{"missing prefix", "routes:\n  - target: http://post:3002\n"},
		{"bad target", "routes:\n  - path_prefix: /v1/posts\n    target: not-a-url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, err := LoadTable(path)
			assert.Error(t, err)
		})
	}
}
