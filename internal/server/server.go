// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeranaias/mediguard/internal/offline"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// ClientCookie identifies an open page across requests.
	ClientCookie = "mediguard_client"

	// ControllerHeader carries the generation controlling the page.
	ControllerHeader = "X-Mediguard-Controller"

	// MaxProxyBodySize caps request bodies forwarded to the origin.
	MaxProxyBodySize = 1 * 1024 * 1024
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ============================================================================
// SERVER
// ============================================================================

// Config configures a Server.
type Config struct {
	Addr         string
	AppVersion   string
	RateLimitRPS float64
	RateBurst    int
	Logger       *log.Logger
}

// Server fronts an offline.Worker.
type Server struct {
	worker  *offline.Worker
	origin  *url.URL
	router  *mux.Router
	limiter *RateLimiter
	logger  *log.Logger
	addr    string
	version string

	server *http.Server
}

// New builds a server for worker. origin must match the worker's origin.
func New(worker *offline.Worker, origin string, cfg Config) (*Server, error) {
	if worker == nil {
		return nil, errors.New("worker is required")
	}
	o, err := offline.ParseOrigin(origin)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		worker:  worker,
		origin:  o,
		router:  mux.NewRouter(),
		limiter: NewRateLimiter(cfg.RateLimitRPS, cfg.RateBurst),
		logger:  logger,
		addr:    cfg.Addr,
		version: cfg.AppVersion,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * offline.DefaultFetchTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	admin := s.router.PathPrefix("/_offline").Subrouter()
	admin.Use(mux.MiddlewareFunc(NoStoreMiddleware()))
	admin.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	admin.HandleFunc("/install", s.handleInstall).Methods(http.MethodPost)
	admin.HandleFunc("/activate", s.handleActivate).Methods(http.MethodPost)
	admin.HandleFunc("/resource", s.handleResource).Methods(http.MethodGet)
	admin.HandleFunc("/clients/{id}", s.handleCloseClient).Methods(http.MethodDelete)
	admin.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "unknown endpoint")
	})

	s.router.PathPrefix("/").HandlerFunc(s.handleProxy)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(s.limiter, s.logger),
	)(s.router)
}

// ============================================================================
// HEALTH / STATUS
// ============================================================================

// HealthResponse is the /health body.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	CacheVersion string `json:"cache_version"`
	WorkerState  string `json:"worker_state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.worker.State()
	health := HealthResponse{
		Status:       "ok",
		Version:      s.version,
		CacheVersion: s.worker.Version(),
		WorkerState:  state.String(),
	}
	if state == offline.StateRedundant {
		health.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, health)
}

// StatusResponse is the /_offline/status body.
type StatusResponse struct {
	Worker  offline.Status   `json:"worker"`
	Clients []offline.Client `json:"clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.worker.Status(r.Context())
	if err != nil {
		s.logger.Printf("STATUS_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read cache status")
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Worker:  st,
		Clients: s.worker.Clients().List(),
	})
}

// ============================================================================
// LIFECYCLE HANDLERS
// ============================================================================

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	if err := s.worker.Install(r.Context()); err != nil {
		s.writeWorkerError(w, err)
		return
	}
	// A fresh install skips waiting.
	if err := s.worker.Activate(r.Context()); err != nil {
		s.writeWorkerError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.worker.Activate(r.Context()); err != nil {
		s.writeWorkerError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) writeWorkerError(w http.ResponseWriter, err error) {
	var installErr *offline.InstallError
	switch {
	case errors.Is(err, offline.ErrInvalidState), errors.Is(err, offline.ErrNotInstalled):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &installErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Printf("WORKER_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCloseClient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.worker.Clients().Close(id) {
		s.writeError(w, http.StatusNotFound, "unknown client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// FETCH HANDLERS
// ============================================================================

// handleResource serves a manifest entry by absolute URL. Only manifest
// entries are reachable so the server is not an open proxy.
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		s.writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	if err := offline.ValidateURL(u); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !slices.Contains(s.worker.Manifest(), offline.CacheKey(u)) {
		s.writeError(w, http.StatusNotFound, "not a manifest entry")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.forward(w, req)
}

// handleProxy rewrites the request onto the origin and fetches it through
// the worker.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := *s.origin
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery

	var body io.Reader
	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = http.MaxBytesReader(w, r.Body, MaxProxyBodySize)
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	copyHeader(req.Header, r.Header)

	s.trackClient(w, r, &target)
	s.forward(w, req)
}

// trackClient registers the page on first sight and reports its controller.
func (s *Server) trackClient(w http.ResponseWriter, r *http.Request, target *url.URL) {
	clients := s.worker.Clients()
	if c, err := r.Cookie(ClientCookie); err == nil {
		if cl, ok := clients.Get(c.Value); ok {
			if cl.Controller != "" {
				w.Header().Set(ControllerHeader, cl.Controller)
			}
			return
		}
	}

	cl := s.worker.OpenClient(target)
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    cl.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if cl.Controller != "" {
		w.Header().Set(ControllerHeader, cl.Controller)
	}
}

func (s *Server) forward(w http.ResponseWriter, req *http.Request) {
	resp, err := s.worker.Fetch(req.Context(), req)
	if err != nil {
		s.logger.Printf("PROXY_FETCH_ERROR | method=%s url=%s error=%v", req.Method, req.URL, err)
		s.writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if req.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Printf("PROXY_COPY_ERROR | url=%s error=%v", req.URL, err)
	}
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		if isHopHeader(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopHeader(k string) bool {
	return slices.ContainsFunc(hopHeaders, func(h string) bool {
		return strings.EqualFold(h, k)
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Printf("SERVER_START | addr=%s origin=%s cache=%s", s.addr, s.origin, s.worker.Version())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("RESPONSE_ENCODE_ERROR | error=%v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
