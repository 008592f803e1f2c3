// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the application state container. It owns the profile and
// transcript stores and the presentation controller, wires the profile
// commit hook into the controller, and hands each screen only the
// capability it needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/profile"
	"github.com/jeranaias/mediguard/internal/storage"
	"github.com/jeranaias/mediguard/internal/transcript"
)

// =============================================================================
// CAPABILITIES
// =============================================================================

// ProfileEditor reads and replaces the profile.
type ProfileEditor interface {
	Current() *model.UserProfile
	Set(p *model.UserProfile) error
	SignOut() error
}

// TranscriptEditor reads and rewrites the chat transcript.
type TranscriptEditor interface {
	Messages() []model.ChatMessage
	Append(msgs ...model.ChatMessage) error
	Replace(msgs []model.ChatMessage) error
	Clear() error
}

// EffectTrigger fires presentation events.
type EffectTrigger interface {
	Trigger(ev presentation.Event) error
	Dismiss() bool
}

// ThemeSwitcher changes light/dark mode and the display locale.
type ThemeSwitcher interface {
	State() presentation.State
	SetTheme(m presentation.Mode) error
	ToggleTheme() presentation.Mode
	SetLocale(tag string) error
}

// ErrNoWatcher is returned by WatchStorage when the backend cannot observe
// external changes.
var ErrNoWatcher = errors.New("storage backend does not support watching")

// =============================================================================
// APP
// =============================================================================

// Config holds the collaborators of an App.
type Config struct {
	Storage     storage.Store
	Environment presentation.Environment // nil creates a Document
	Responder   chat.Responder           // nil uses chat.LocalResponder
	Sealer      profile.Sealer
	Logger      *log.Logger

	ControllerOptions []presentation.Option
}

// App holds the application state.
type App struct {
	storage storage.Store
	logger  *log.Logger
	env     presentation.Environment

	profile    *profile.Store
	transcript *transcript.Store
	controller *presentation.Controller
	session    *chat.Session

	mu     sync.RWMutex
	screen model.AppScreen
}

// New builds the container. Nothing is read from storage until Boot.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	env := cfg.Environment
	if env == nil {
		env = presentation.NewDocument()
	}
	responder := cfg.Responder
	if responder == nil {
		responder = chat.LocalResponder{}
	}

	popts := []profile.Option{profile.WithLogger(logger)}
	if cfg.Sealer != nil {
		popts = append(popts, profile.WithSealer(cfg.Sealer))
	}

	copts := append([]presentation.Option{presentation.WithLogger(logger)}, cfg.ControllerOptions...)

	a := &App{
		storage:    cfg.Storage,
		logger:     logger,
		env:        env,
		profile:    profile.New(cfg.Storage, popts...),
		transcript: transcript.New(cfg.Storage, transcript.WithLogger(logger)),
		controller: presentation.New(env, copts...),
		screen:     model.ScreenDashboard,
	}
	a.session = chat.NewSession(a.transcript, responder, chat.WithLogger(logger))

	// Profile commits drive the accent and status-bar color.
	a.profile.OnCommit(func(_ *model.UserProfile, accent string) {
		a.controller.SetAccent(accent)
	})
	return a
}

// Boot loads the profile and transcript from storage. Both loads fail soft.
func (a *App) Boot() {
	p := a.profile.Load()
	msgs := a.transcript.Load()
	a.logger.Printf("APP_BOOT | signed_in=%t messages=%d", p != nil, len(msgs))
}

// Profile returns the profile capability.
func (a *App) Profile() ProfileEditor { return a.profile }

// Transcript returns the transcript capability.
func (a *App) Transcript() TranscriptEditor { return a.transcript }

// Effects returns the effect trigger capability.
func (a *App) Effects() EffectTrigger { return a.controller }

// Theme returns the theme capability.
func (a *App) Theme() ThemeSwitcher { return a.controller }

// Chat returns the chat session.
func (a *App) Chat() *chat.Session { return a.session }

// Environment returns the environment the controller writes to.
func (a *App) Environment() presentation.Environment { return a.env }

// Subscribe registers fn for presentation state changes.
func (a *App) Subscribe(fn func(presentation.State)) {
	a.controller.Subscribe(fn)
}

// Screen returns the current screen.
func (a *App) Screen() model.AppScreen {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.screen
}

// Navigate switches screens.
func (a *App) Navigate(s model.AppScreen) error {
	parsed, err := model.ParseScreen(string(s))
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.screen = parsed
	a.mu.Unlock()
	return nil
}

// WatchStorage reloads a store whenever its key changes outside this
// process, until ctx is cancelled.
func (a *App) WatchStorage(ctx context.Context) error {
	w, ok := a.storage.(storage.Watcher)
	if !ok {
		return ErrNoWatcher
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch storage: %w", err)
	}

	go func() {
		for ch := range changes {
			a.reload(ch)
		}
	}()
	return nil
}

func (a *App) reload(ch storage.Change) {
	switch ch.Key {
	case storage.ProfileKey:
		p := a.profile.Load()
		a.logger.Printf("APP_RELOAD | key=%s signed_in=%t", ch.Key, p != nil)
	case storage.TranscriptKey:
		msgs := a.transcript.Load()
		a.logger.Printf("APP_RELOAD | key=%s messages=%d", ch.Key, len(msgs))
	}
}

// Close stops the controller timers and closes storage.
func (a *App) Close() error {
	a.controller.Close()
	return a.storage.Close()
}
