// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mediguard/internal/offline"
)

// =============================================================================
// HELPERS
// =============================================================================

const testOrigin = "http://localhost:3000"

// originStub answers like the app origin and records what it saw.
type originStub struct {
	mu      sync.Mutex
	calls   map[string]int
	down    bool
	headers http.Header
}

func newOriginStub() *originStub {
	return &originStub{calls: make(map[string]int)}
}

func (o *originStub) Fetch(_ context.Context, req *http.Request) (*http.Response, error) {
	key := offline.CacheKey(req.URL)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[key]++
	o.headers = req.Header.Clone()
	if o.down {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}, "Connection": []string{"close"}},
		Body:       io.NopCloser(strings.NewReader(req.Method + " " + key)),
	}, nil
}

func (o *originStub) setDown(down bool) {
	o.mu.Lock()
	o.down = down
	o.mu.Unlock()
}

func (o *originStub) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[key]
}

func newTestServer(t *testing.T, cfg Config) (*Server, *originStub) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	net := newOriginStub()
	w, err := offline.NewWorker(offline.DefaultConfig(testOrigin), offline.NewMemoryStorage(), net,
		offline.WithLogger(logger))
	require.NoError(t, err)

	cfg.Logger = logger
	s, err := New(w, testOrigin, cfg)
	require.NoError(t, err)
	return s, net
}

func do(t *testing.T, h http.Handler, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =============================================================================
// ROUTES
// =============================================================================

func TestNew_RequiresWorker(t *testing.T) {
	_, err := New(nil, testOrigin, Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Config{AppVersion: "1.0.0"})

	rec := do(t, s.Handler(), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.0.0", health.Version)
	assert.Equal(t, offline.DefaultVersion, health.CacheVersion)
	assert.Equal(t, "parsed", health.WorkerState)
}

func TestInstall_ThenServesFromCache(t *testing.T) {
	s, net := newTestServer(t, Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/_offline/install")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	status := decode[StatusResponse](t, rec)
	assert.Equal(t, offline.StateActivated, status.Worker.State)
	assert.Len(t, status.Worker.Cached, len(offline.DefaultManifest))
	assert.Equal(t, []string{offline.DefaultVersion}, status.Worker.Generations)

	net.setDown(true)
	rec = do(t, h, http.MethodGet, "/index.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET "+testOrigin+"/index.html", rec.Body.String())
	assert.Equal(t, 1, net.count(testOrigin+"/index.html"), "served from cache after install")
}

func TestInstall_Twice(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/_offline/install").Code)
	rec := do(t, h, http.MethodPost, "/_offline/install")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInstall_UpstreamFailure(t *testing.T) {
	s, net := newTestServer(t, Config{})
	h := s.Handler()
	net.setDown(true)

	rec := do(t, h, http.MethodPost, "/_offline/install")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, offline.StateRedundant, s.worker.State())

	health := decode[HealthResponse](t, do(t, h, http.MethodGet, "/health"))
	assert.Equal(t, "degraded", health.Status)
}

func TestActivate_BeforeInstall(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/_offline/activate")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	do(t, h, http.MethodGet, "/")
	rec := do(t, h, http.MethodGet, "/_offline/status")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[StatusResponse](t, rec)
	assert.Equal(t, offline.StateParsed, status.Worker.State)
	assert.Empty(t, status.Worker.Cached)
	require.Len(t, status.Clients, 1)
	assert.Equal(t, testOrigin+"/", status.Clients[0].URL)
	assert.Empty(t, status.Clients[0].Controller)
}

func TestUnknownAdminPath(t *testing.T) {
	s, net := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/_offline/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, net.count(testOrigin+"/_offline/nope"), "admin paths are never proxied")
}

// =============================================================================
// PROXY
// =============================================================================

func TestProxy_BeforeInstallUsesNetwork(t *testing.T) {
	s, net := newTestServer(t, Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/profile?x=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET "+testOrigin+"/api/profile?x=1", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Connection"), "hop-by-hop headers are dropped")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	do(t, h, http.MethodGet, "/api/profile?x=1")
	assert.Equal(t, 2, net.count(testOrigin+"/api/profile?x=1"))
}

func TestProxy_NetworkDown(t *testing.T) {
	s, net := newTestServer(t, Config{})
	net.setDown(true)

	rec := do(t, s.Handler(), http.MethodGet, "/index.html")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxy_DropsHopHeaders(t *testing.T) {
	s, net := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Accept-Language", "hi")
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	net.mu.Lock()
	defer net.mu.Unlock()
	assert.Empty(t, net.headers.Get("Connection"))
	assert.Equal(t, "hi", net.headers.Get("Accept-Language"))
}

func TestProxy_ClientCookieAndController(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ClientCookie, cookies[0].Name)
	assert.Empty(t, rec.Header().Get(ControllerHeader))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/_offline/install").Code)

	rec = do(t, h, http.MethodGet, "/", cookies[0])
	assert.Equal(t, offline.DefaultVersion, rec.Header().Get(ControllerHeader), "install claims open pages")
	assert.Empty(t, rec.Result().Cookies(), "known client keeps its cookie")
	assert.Equal(t, 1, s.worker.Clients().Len())
}

func TestCloseClient(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	cookie := do(t, h, http.MethodGet, "/").Result().Cookies()[0]

	rec := do(t, h, http.MethodDelete, "/_offline/clients/"+cookie.Value)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, s.worker.Clients().Len())

	rec = do(t, h, http.MethodDelete, "/_offline/clients/"+cookie.Value)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResource(t *testing.T) {
	s, net := newTestServer(t, Config{})
	h := s.Handler()

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"manifest entry", "/_offline/resource?url=https://cdn.tailwindcss.com", http.StatusOK},
		{"not in manifest", "/_offline/resource?url=https://evil.example/x.js", http.StatusNotFound},
		{"missing url", "/_offline/resource", http.StatusBadRequest},
		{"bad scheme", "/_offline/resource?url=ftp://cdn.tailwindcss.com/", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, net.count("https://evil.example/x.js"))
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitRPS: 0.001, RateBurst: 2})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health").Code)

	rec := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_ZeroIsUnlimited(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for range 100 {
		require.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(log.New(io.Discard, "", 0))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	do(t, h, http.MethodGet, "/")
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.5:1234", "", "", "203.0.113.5"},
		{"untrusted peer ignores XFF", "203.0.113.5:1234", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy XFF", "127.0.0.1:1234", "198.51.100.1, 10.0.0.1", "", "198.51.100.1"},
		{"trusted proxy X-Real-IP", "10.1.2.3:80", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy bad XFF", "10.1.2.3:80", "not-an-ip", "", "10.1.2.3"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
