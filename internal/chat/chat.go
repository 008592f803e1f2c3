// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat sends user input to a responder and records the exchange in
// the transcript.
//
// A Session appends the user message and the reply together, and only when
// the responder succeeds. A failed turn leaves the transcript unchanged and
// is never retried.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/mediguard/internal/model"
)

//go:generate mockgen -source=chat.go -destination=chatmock/responder.go -package=chatmock

// ErrEmptyInput is returned when a turn has neither text nor image.
var ErrEmptyInput = errors.New("message has no text or image")

// Input is one user turn.
type Input struct {
	Text  string
	Image string // base64, optionally a data URL
}

// Empty reports whether the input carries nothing to send.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Text) == "" && in.Image == ""
}

// Responder produces the model reply to a turn. history holds the
// transcript before the turn.
type Responder interface {
	Respond(ctx context.Context, history []model.ChatMessage, in Input) (model.ChatMessage, error)
}

// Transcript is the part of the transcript store a session needs.
type Transcript interface {
	Messages() []model.ChatMessage
	Append(msgs ...model.ChatMessage) error
}

// Session runs turns one at a time.
type Session struct {
	mu         sync.Mutex
	transcript Transcript
	responder  Responder
	logger     *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a session over transcript.
func NewSession(t Transcript, r Responder, opts ...Option) *Session {
	s := &Session{transcript: t, responder: r}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Send runs one turn and returns the reply. The user message and the
// reply are appended in a single transcript mutation after the responder
// returns. If the transcript write fails the reply is still returned along
// with the error.
func (s *Session) Send(ctx context.Context, in Input) (model.ChatMessage, error) {
	if in.Empty() {
		return model.ChatMessage{}, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := model.NewUserMessage(strings.TrimSpace(in.Text))
	user.Image = in.Image

	start := time.Now()
	reply, err := s.responder.Respond(ctx, s.transcript.Messages(), in)
	if err != nil {
		s.logger.Printf("CHAT_ERROR | duration=%s error=%v", time.Since(start).Round(time.Millisecond), err)
		return model.ChatMessage{}, fmt.Errorf("responder failed: %w", err)
	}

	reply.Role = model.RoleModel
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now()
	}

	s.logger.Printf("CHAT_REPLY | duration=%s chars=%d sources=%d",
		time.Since(start).Round(time.Millisecond), len(reply.Text), len(reply.GroundingSources))

	if err := s.transcript.Append(user, reply); err != nil {
		return reply, err
	}
	return reply, nil
}
