// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile owns the user profile and keeps its durable copy in step
// with memory.
//
// Every Set writes through before returning: a present profile is
// serialized under storage.ProfileKey, an absent one removes the key. After
// the write, each commit hook receives the profile and its derived accent
// color. Load never fails: unreadable data means "signed out".
package profile

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/storage"
)

// CommitHook observes a committed profile. p is nil after sign-out.
// Hooks run synchronously and must not call back into the Store.
type CommitHook func(p *model.UserProfile, accent string)

// Sealer encrypts secrets before they reach storage.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSealer encrypts OpenFDAKey at rest.
func WithSealer(sealer Sealer) Option {
	return func(s *Store) { s.sealer = sealer }
}

// =============================================================================
// STORE
// =============================================================================

// Store holds the current profile.
type Store struct {
	backend storage.Store
	logger  *log.Logger
	sealer  Sealer

	// commitMu serializes Set/Load end to end so hooks observe commits in order.
	commitMu sync.Mutex

	mu      sync.RWMutex
	current *model.UserProfile
	hooks   []CommitHook
}

// New creates a Store over backend. Nothing is read until Load.
func New(backend storage.Store, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// OnCommit registers a hook run after every Set and Load.
func (s *Store) OnCommit(h CommitHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Load reads the durable profile, makes it current and returns a copy.
// Missing, unreadable or malformed data yields nil; the problem is logged.
func (s *Store) Load() *model.UserProfile {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	p := s.read()

	s.mu.Lock()
	s.current = p
	hooks := append([]CommitHook(nil), s.hooks...)
	s.mu.Unlock()

	s.publish(hooks, p)
	return p.Clone()
}

func (s *Store) read() *model.UserProfile {
	data, ok, err := s.backend.Get(storage.ProfileKey)
	if err != nil {
		s.logger.Printf("PROFILE_LOAD_ERROR | error=%v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var p *model.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Printf("PROFILE_PARSE_ERROR | bytes=%d error=%v", len(data), err)
		return nil
	}
	if p == nil {
		return nil
	}

	if s.sealer != nil && p.OpenFDAKey != "" {
		key, err := s.sealer.Open(p.OpenFDAKey)
		if err != nil {
			// The rest of the profile is still good; only the key is lost.
			s.logger.Printf("PROFILE_KEY_UNSEAL_ERROR | error=%v", err)
			key = ""
		}
		p.OpenFDAKey = key
	}
	return p
}

// Set replaces the profile and writes it through. nil signs out and removes
// the durable copy. The in-memory value is replaced even when the write
// fails; the error is logged and returned.
func (s *Store) Set(p *model.UserProfile) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	p = p.Clone()

	s.mu.Lock()
	s.current = p
	hooks := append([]CommitHook(nil), s.hooks...)
	s.mu.Unlock()

	err := s.persist(p)
	if err != nil {
		s.logger.Printf("PROFILE_SAVE_ERROR | signed_in=%t error=%v", p != nil, err)
	} else {
		s.logger.Printf("PROFILE_SAVED | signed_in=%t", p != nil)
	}

	s.publish(hooks, p)
	return err
}

// SignOut is Set(nil).
func (s *Store) SignOut() error {
	return s.Set(nil)
}

func (s *Store) persist(p *model.UserProfile) error {
	if p == nil {
		return s.backend.Remove(storage.ProfileKey)
	}

	out := p.Clone()
	if s.sealer != nil && out.OpenFDAKey != "" {
		sealed, err := s.sealer.Seal(out.OpenFDAKey)
		if err != nil {
			return fmt.Errorf("failed to seal api key: %w", err)
		}
		out.OpenFDAKey = sealed
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.backend.Set(storage.ProfileKey, data)
}

func (s *Store) publish(hooks []CommitHook, p *model.UserProfile) {
	accent := p.Accent()
	for _, h := range hooks {
		h(p.Clone(), accent)
	}
}

// Current returns a copy of the current profile, nil when signed out.
func (s *Store) Current() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// SignedIn reports whether a profile is present.
func (s *Store) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// AccentColor returns the current profile's accent, or model.DefaultAccent.
func (s *Store) AccentColor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Accent()
}
