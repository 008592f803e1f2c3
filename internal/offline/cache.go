// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"
)

// MaxEntrySize bounds a single cached body.
const MaxEntrySize = 32 << 20

// ErrEntryTooLarge is returned when a response body exceeds MaxEntrySize.
var ErrEntryTooLarge = errors.New("response body too large to cache")

// =============================================================================
// ENTRY
// =============================================================================

// Entry is a stored response.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// NewEntry reads resp fully and closes its body.
func NewEntry(key string, resp *http.Response) (*Entry, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > MaxEntrySize {
		return nil, ErrEntryTooLarge
	}
	return &Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

// Response builds a fresh response for req. Each call gets its own body.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Header = e.Header.Clone()
	c.Body = slices.Clone(e.Body)
	return &c
}

// =============================================================================
// STORAGE INTERFACES
// =============================================================================

// Cache is one named generation.
type Cache interface {
	Name() string
	Match(ctx context.Context, key string) (*Entry, bool, error)
	// PutAll stores every entry or none.
	PutAll(ctx context.Context, entries []*Entry) error
	// Keys lists the stored URLs. Order is unspecified.
	Keys(ctx context.Context) ([]string, error)
}

// CacheStorage holds the generations.
type CacheStorage interface {
	// Open returns the named generation, creating it if needed.
	Open(ctx context.Context, name string) (Cache, error)
	Has(ctx context.Context, name string) (bool, error)
	// Keys lists generation names in ascending order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a generation and its entries. It reports whether the
	// generation existed.
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}

// =============================================================================
// MEMORY STORAGE
// =============================================================================

// MemoryStorage keeps generations in memory.
type MemoryStorage struct {
	mu          sync.RWMutex
	generations map[string]map[string]*Entry
}

// NewMemoryStorage creates an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{generations: make(map[string]map[string]*Entry)}
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.generations[name]; !ok {
		s.generations[name] = make(map[string]*Entry)
	}
	return &memoryCache{s: s, name: name}, nil
}

func (s *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.generations[name]
	return ok, nil
}

func (s *MemoryStorage) Keys(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.generations))
	for name := range s.generations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.generations[name]
	delete(s.generations, name)
	return ok, nil
}

func (s *MemoryStorage) Close() error { return nil }

type memoryCache struct {
	s    *MemoryStorage
	name string
}

func (c *memoryCache) Name() string { return c.name }

func (c *memoryCache) Match(_ context.Context, key string) (*Entry, bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	e, ok := c.s.generations[c.name][key]
	if !ok {
		return nil, false, nil
	}
	return e.clone(), true, nil
}

func (c *memoryCache) PutAll(_ context.Context, entries []*Entry) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	gen, ok := c.s.generations[c.name]
	if !ok {
		gen = make(map[string]*Entry)
		c.s.generations[c.name] = gen
	}
	for _, e := range entries {
		gen[e.URL] = e.clone()
	}
	return nil
}

func (c *memoryCache) Keys(context.Context) ([]string, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	keys := make([]string, 0, len(c.s.generations[c.name]))
	for k := range c.s.generations[c.name] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
