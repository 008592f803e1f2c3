// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"
)

// =============================================================================
// CONFIG
// =============================================================================

// DefaultVersion names the cache generation the worker installs.
const DefaultVersion = "mediguard-app-v1"

// DefaultConcurrency bounds parallel manifest fetches.
const DefaultConcurrency = 4

// DefaultManifest is the application shell plus its one cross-origin
// stylesheet.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"/icon.png",
	"https://cdn.tailwindcss.com",
}

// Config describes one worker installation.
type Config struct {
	Version  string
	Origin   string
	Manifest []string

	// Attempts per manifest entry. 1 means no retry.
	Attempts    int
	Concurrency int
	RetryDelay  time.Duration
}

// DefaultConfig returns the stock configuration for origin.
func DefaultConfig(origin string) Config {
	return Config{
		Version:     DefaultVersion,
		Origin:      origin,
		Manifest:    slices.Clone(DefaultManifest),
		Attempts:    1,
		Concurrency: DefaultConcurrency,
		RetryDelay:  200 * time.Millisecond,
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is the worker lifecycle position.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st := StateParsed; st <= StateRedundant; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown worker state %q", b)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotInstalled is returned by Activate before a successful install.
	ErrNotInstalled = errors.New("worker is not installed")

	// ErrInvalidState is returned when Install is called on a worker that
	// is already installing, installed or active.
	ErrInvalidState = errors.New("invalid worker state for this operation")

	// ErrBadStatus marks a manifest response outside 2xx.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrIncomplete is returned by Resume when the stored generation does
	// not hold the whole manifest.
	ErrIncomplete = errors.New("cache generation is incomplete")
)

// InstallError reports the manifest entry that failed an install.
type InstallError struct {
	URL    string
	Status int // zero when the fetch itself failed
	Err    error
}

func (e *InstallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("install %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("install %s: %v", e.URL, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// =============================================================================
// WORKER
// =============================================================================

// Worker installs a cache generation and then serves fetches from it.
type Worker struct {
	mu sync.Mutex

	version     string
	manifest    []string
	attempts    int
	concurrency int
	retryDelay  time.Duration

	storage CacheStorage
	network Fetcher
	clients *Clients
	logger  *log.Logger

	state       State
	skipWaiting bool
	current     Cache
	chain       Fetcher
	lastErr     error
	installedAt time.Time
	activatedAt time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger. Default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithClients shares a client registry. Default is a fresh one.
func WithClients(c *Clients) Option {
	return func(w *Worker) { w.clients = c }
}

// NewWorker validates cfg and resolves its manifest against the origin.
func NewWorker(cfg Config, storage CacheStorage, network Fetcher, opts ...Option) (*Worker, error) {
	if cfg.Version == "" {
		return nil, errors.New("cache version is required")
	}
	origin, err := ParseOrigin(cfg.Origin)
	if err != nil {
		return nil, err
	}
	manifest, err := ResolveManifest(origin, cfg.Manifest)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		version:     cfg.Version,
		manifest:    manifest,
		attempts:    max(cfg.Attempts, 1),
		concurrency: cfg.Concurrency,
		retryDelay:  cfg.RetryDelay,
		storage:     storage,
		network:     network,
		state:       StateParsed,
	}
	if w.concurrency <= 0 {
		w.concurrency = DefaultConcurrency
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	if w.clients == nil {
		w.clients = NewClients()
	}
	return w, nil
}

// Version returns the generation name.
func (w *Worker) Version() string { return w.version }

// Manifest returns the resolved manifest URLs.
func (w *Worker) Manifest() []string { return slices.Clone(w.manifest) }

// Clients returns the client registry.
func (w *Worker) Clients() *Clients { return w.clients }

// State returns the lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start brings the worker to activated: it resumes a complete stored
// generation if there is one, otherwise installs and then activates.
func (w *Worker) Start(ctx context.Context) error {
	err := w.Resume(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrIncomplete) {
		return err
	}

	if err := w.Install(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	skip := w.skipWaiting
	w.mu.Unlock()
	if !skip {
		return nil
	}
	return w.Activate(ctx)
}

// Resume activates a generation stored by an earlier process without
// fetching anything. It returns ErrIncomplete when the stored generation is
// missing or lacks any manifest entry.
func (w *Worker) Resume(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateParsed {
		w.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidState, w.state)
	}
	w.mu.Unlock()

	ok, err := w.storage.Has(ctx, w.version)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIncomplete
	}

	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		return err
	}
	keys, err := cache.Keys(ctx)
	if err != nil {
		return err
	}
	stored := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		stored[k] = struct{}{}
	}
	for _, u := range w.manifest {
		if _, found := stored[u]; !found {
			return fmt.Errorf("%w: missing %s", ErrIncomplete, u)
		}
	}

	w.mu.Lock()
	w.current = cache
	w.state = StateInstalled
	w.installedAt = time.Now()
	w.mu.Unlock()

	w.logger.Printf("WORKER_RESUMED | version=%s entries=%d", w.version, len(keys))
	return w.Activate(ctx)
}

// =============================================================================
// INSTALL
// =============================================================================

// Install fetches every manifest entry and stores them all in the current
// generation. Any failure stores nothing and leaves the worker redundant.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateParsed && w.state != StateRedundant {
		w.mu.Unlock()
		return fmt.Errorf("%w: install from %s", ErrInvalidState, w.state)
	}
	w.state = StateInstalling
	w.lastErr = nil
	w.mu.Unlock()

	start := time.Now()
	w.logger.Printf("WORKER_INSTALL | version=%s entries=%d", w.version, len(w.manifest))

	entries, err := w.fetchManifest(ctx)
	if err == nil {
		err = w.store(ctx, entries)
	}
	if err != nil {
		w.mu.Lock()
		w.state = StateRedundant
		w.lastErr = err
		w.mu.Unlock()
		w.logger.Printf("WORKER_INSTALL_FAILED | version=%s error=%v", w.version, err)
		return err
	}

	w.mu.Lock()
	w.state = StateInstalled
	w.skipWaiting = true
	w.installedAt = time.Now()
	w.mu.Unlock()

	w.logger.Printf("WORKER_INSTALLED | version=%s entries=%d duration=%s",
		w.version, len(entries), time.Since(start).Round(time.Millisecond))
	return nil
}

// fetchManifest fetches all entries concurrently. The first failure cancels
// the rest.
func (w *Worker) fetchManifest(ctx context.Context) ([]*Entry, error) {
	entries := make([]*Entry, len(w.manifest))

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(w.concurrency)

	for i, u := range w.manifest {
		p.Go(func(ctx context.Context) error {
			var status int
			err := retry.Do(
				func() error {
					e, s, err := w.fetchOne(ctx, u)
					status = s
					if err != nil {
						return err
					}
					entries[i] = e
					return nil
				},
				retry.Context(ctx),
				retry.Attempts(uint(w.attempts)),
				retry.Delay(w.retryDelay),
				retry.LastErrorOnly(true),
				retry.OnRetry(func(n uint, err error) {
					w.logger.Printf("WORKER_FETCH_RETRY | url=%s attempt=%d error=%v", u, n+1, err)
				}),
			)
			if err != nil {
				return &InstallError{URL: u, Status: status, Err: err}
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (w *Worker) fetchOne(ctx context.Context, rawURL string) (*Entry, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := w.network.Fetch(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, resp.StatusCode, ErrBadStatus
	}
	e, err := NewEntry(rawURL, resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return e, resp.StatusCode, nil
}

// store writes entries with one PutAll. A generation created here is
// removed again if the write fails.
func (w *Worker) store(ctx context.Context, entries []*Entry) error {
	existed, err := w.storage.Has(ctx, w.version)
	if err != nil {
		return err
	}
	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		return err
	}
	if err := cache.PutAll(ctx, entries); err != nil {
		if !existed {
			if _, delErr := w.storage.Delete(ctx, w.version); delErr != nil {
				w.logger.Printf("CACHE_CLEANUP_ERROR | version=%s error=%v", w.version, delErr)
			}
		}
		return fmt.Errorf("failed to store generation %s: %w", w.version, err)
	}

	w.mu.Lock()
	w.current = cache
	w.mu.Unlock()
	return nil
}

// =============================================================================
// ACTIVATE
// =============================================================================

// Activate evicts every generation but the current one, switches fetches to
// the cache-first chain and claims the open clients.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateInstalled {
		w.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrNotInstalled, w.state)
	}
	w.state = StateActivating
	w.mu.Unlock()

	if err := w.evict(ctx); err != nil {
		w.mu.Lock()
		w.state = StateInstalled
		w.lastErr = err
		w.mu.Unlock()
		w.logger.Printf("WORKER_ACTIVATE_FAILED | version=%s error=%v", w.version, err)
		return err
	}

	w.mu.Lock()
	w.chain = Chain(w.network, CacheFirst(w.current, w.logger))
	w.state = StateActivated
	w.activatedAt = time.Now()
	w.mu.Unlock()

	claimed := w.clients.Claim(w.version)
	w.logger.Printf("WORKER_ACTIVATED | version=%s claimed=%d", w.version, claimed)
	return nil
}

func (w *Worker) evict(ctx context.Context) error {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list generations: %w", err)
	}
	for _, name := range names {
		if name == w.version {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete generation %s: %w", name, err)
		}
		w.logger.Printf("CACHE_EVICT | version=%s", name)
	}
	return nil
}

// =============================================================================
// FETCH
// =============================================================================

// Fetch handles a request from a client page. Before activation every
// request goes to the network.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	w.mu.Lock()
	chain := w.chain
	w.mu.Unlock()

	if chain == nil {
		return w.network.Fetch(ctx, req)
	}
	return chain.Fetch(ctx, req)
}

// OpenClient registers a page. It is controlled at once if the worker is
// active.
func (w *Worker) OpenClient(pageURL *url.URL) *Client {
	w.mu.Lock()
	controller := ""
	if w.state == StateActivated {
		controller = w.version
	}
	w.mu.Unlock()

	return w.clients.Open(pageURL.String(), controller)
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a point-in-time view of the worker.
type Status struct {
	Version     string    `json:"version"`
	State       State     `json:"state"`
	SkipWaiting bool      `json:"skipWaiting"`
	Manifest    []string  `json:"manifest"`
	Cached      []string  `json:"cached"`
	Generations []string  `json:"generations"`
	Clients     int       `json:"clients"`
	InstalledAt time.Time `json:"installedAt,omitzero"`
	ActivatedAt time.Time `json:"activatedAt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

// Status reads the worker and its storage.
func (w *Worker) Status(ctx context.Context) (Status, error) {
	w.mu.Lock()
	st := Status{
		Version:     w.version,
		State:       w.state,
		SkipWaiting: w.skipWaiting,
		Manifest:    slices.Clone(w.manifest),
		Cached:      []string{},
		InstalledAt: w.installedAt,
		ActivatedAt: w.activatedAt,
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	current := w.current
	w.mu.Unlock()

	st.Clients = w.clients.Len()

	gens, err := w.storage.Keys(ctx)
	if err != nil {
		return st, err
	}
	st.Generations = gens

	if current != nil {
		keys, err := current.Keys(ctx)
		if err != nil {
			return st, err
		}
		st.Cached = keys
	}
	return st, nil
}
