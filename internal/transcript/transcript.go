// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript owns the ordered chat log and persists it on every
// mutation.
//
// The whole transcript is stored as one JSON array under
// storage.TranscriptKey. Timestamps are written as RFC 3339 text and parsed
// back into time.Time on Load; an array that fails to parse, or any
// timestamp that fails to parse, loads as an empty transcript.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/storage"
)

// =============================================================================
// WIRE FORMAT
// =============================================================================

// record is the serialized form of a message. Timestamp stays text here so
// Load controls parsing.
type record struct {
	ID               string                  `json:"id"`
	Role             model.Role              `json:"role"`
	Text             string                  `json:"text"`
	Timestamp        string                  `json:"timestamp"`
	Image            string                  `json:"image,omitempty"`
	GroundingSources []model.GroundingSource `json:"groundingSources,omitempty"`
}

// TimestampLayout is the serialized timestamp format, always in UTC.
const TimestampLayout = time.RFC3339Nano

// ErrBadTimestamp is reported when a stored timestamp does not parse.
var ErrBadTimestamp = errors.New("invalid message timestamp")

// Encode serializes messages in the durable format.
func Encode(msgs []model.ChatMessage) ([]byte, error) {
	recs := make([]record, len(msgs))
	for i, m := range msgs {
		recs[i] = record{
			ID:               m.ID,
			Role:             m.Role,
			Text:             m.Text,
			Timestamp:        m.Timestamp.UTC().Format(TimestampLayout),
			Image:            m.Image,
			GroundingSources: m.GroundingSources,
		}
	}
	return json.Marshal(recs)
}

// Decode parses the durable format. Every timestamp must parse.
func Decode(data []byte) ([]model.ChatMessage, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}

	msgs := make([]model.ChatMessage, len(recs))
	for i, r := range recs {
		ts, err := time.Parse(TimestampLayout, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d (%q): %v", ErrBadTimestamp, i, r.ID, err)
		}
		msgs[i] = model.ChatMessage{
			ID:               r.ID,
			Role:             r.Role,
			Text:             r.Text,
			Timestamp:        ts,
			Image:            r.Image,
			GroundingSources: r.GroundingSources,
		}
	}
	return msgs, nil
}

// =============================================================================
// STORE
// =============================================================================

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store holds the transcript in memory and writes every change through.
// There is no size cap.
type Store struct {
	backend storage.Store
	logger  *log.Logger

	mu       sync.RWMutex
	messages []model.ChatMessage
}

// New creates an empty Store over backend. Nothing is read until Load.
func New(backend storage.Store, opts ...Option) *Store {
	s := &Store{backend: backend, messages: []model.ChatMessage{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Load reads the durable transcript, makes it current and returns a copy.
// It never fails: missing or malformed data yields an empty, non-nil slice.
func (s *Store) Load() []model.ChatMessage {
	// Held across the read so an Update cannot land between read and assign.
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.read()
	s.messages = msgs
	return cloneMessages(msgs)
}

func (s *Store) read() []model.ChatMessage {
	data, ok, err := s.backend.Get(storage.TranscriptKey)
	if err != nil {
		s.logger.Printf("TRANSCRIPT_LOAD_ERROR | error=%v", err)
		return []model.ChatMessage{}
	}
	if !ok {
		return []model.ChatMessage{}
	}

	msgs, err := Decode(data)
	if err != nil {
		s.logger.Printf("TRANSCRIPT_PARSE_ERROR | bytes=%d error=%v", len(data), err)
		return []model.ChatMessage{}
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return msgs
}

// Append adds messages to the end and writes the transcript through.
func (s *Store) Append(msgs ...model.ChatMessage) error {
	return s.Update(func(cur []model.ChatMessage) []model.ChatMessage {
		return append(cur, msgs...)
	})
}

// Replace swaps the whole transcript and writes it through.
func (s *Store) Replace(msgs []model.ChatMessage) error {
	return s.Update(func([]model.ChatMessage) []model.ChatMessage {
		return msgs
	})
}

// Clear empties the transcript. The durable copy becomes an empty array.
func (s *Store) Clear() error {
	return s.Replace(nil)
}

// Update applies fn to a copy of the transcript, makes the result current
// and writes it through. The in-memory value is replaced even when the
// write fails; the error is logged and returned.
func (s *Store) Update(fn func([]model.ChatMessage) []model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneMessages(fn(cloneMessages(s.messages)))
	s.messages = next

	data, err := Encode(next)
	if err == nil {
		err = s.backend.Set(storage.TranscriptKey, data)
	}
	if err != nil {
		s.logger.Printf("TRANSCRIPT_SAVE_ERROR | messages=%d error=%v", len(next), err)
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages)
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the newest message.
func (s *Store) Last() (model.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return model.ChatMessage{}, false
	}
	return cloneMessage(s.messages[len(s.messages)-1]), true
}

func cloneMessages(msgs []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m model.ChatMessage) model.ChatMessage {
	m.GroundingSources = slices.Clone(m.GroundingSources)
	return m
}
