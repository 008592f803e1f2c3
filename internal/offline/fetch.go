// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"log"
	"net/http"
	"time"
)

//go:generate mockgen -source=fetch.go -destination=offlinemock/fetcher.go -package=offlinemock Fetcher

// =============================================================================
// FETCHER CHAIN
// =============================================================================

// Fetcher performs a request. The network, the cache and the worker are
// all Fetchers.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Interceptor wraps a Fetcher, like HTTP middleware wraps a handler.
type Interceptor func(next Fetcher) Fetcher

// Chain wraps base with interceptors. The first interceptor sees the
// request first.
func Chain(base Fetcher, interceptors ...Interceptor) Fetcher {
	f := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		f = interceptors[i](f)
	}
	return f
}

// =============================================================================
// NETWORK
// =============================================================================

// DefaultFetchTimeout bounds a single network fetch.
const DefaultFetchTimeout = 30 * time.Second

// HTTPFetcher fetches from the live network.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps client. nil uses a client with DefaultFetchTimeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &HTTPFetcher{client: client}
}

// Fetch sends req with ctx.
func (h *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return h.client.Do(req.WithContext(ctx))
}

// =============================================================================
// CACHE FIRST
// =============================================================================

// Matcher looks up stored entries by cache key.
type Matcher interface {
	Match(ctx context.Context, key string) (*Entry, bool, error)
}

// CacheFirst serves GET requests from m when it holds a match, without
// calling next. On a miss next is called exactly once and its response and
// error are returned unmodified; the response is not stored. A lookup
// error counts as a miss. Other methods go straight to next.
func CacheFirst(m Matcher, logger *log.Logger) Interceptor {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Fetcher) Fetcher {
		return FetcherFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
			if req.Method != http.MethodGet && req.Method != "" {
				return next.Fetch(ctx, req)
			}

			key := CacheKey(req.URL)
			entry, ok, err := m.Match(ctx, key)
			if err != nil {
				logger.Printf("CACHE_LOOKUP_ERROR | url=%s error=%v", key, err)
			} else if ok {
				return entry.Response(req), nil
			}

			return next.Fetch(ctx, req)
		})
	}
}
