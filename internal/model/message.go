// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "MediGuard"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// GroundingSource is a web page the model cited.
type GroundingSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChatMessage is one transcript entry. Image holds base64 text, optionally
// with a data URL prefix.
type ChatMessage struct {
	ID               string            `json:"id"`
	Role             Role              `json:"role"`
	Text             string            `json:"text"`
	Timestamp        time.Time         `json:"timestamp"`
	Image            string            `json:"image,omitempty"`
	GroundingSources []GroundingSource `json:"groundingSources,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) ChatMessage {
	return NewMessage(RoleUser, text)
}

// NewModelMessage creates a model reply.
func NewModelMessage(text string, sources ...GroundingSource) ChatMessage {
	m := NewMessage(RoleModel, text)
	if len(sources) > 0 {
		m.GroundingSources = append([]GroundingSource(nil), sources...)
	}
	return m
}

// HasImage reports whether the message carries an inline image.
func (m ChatMessage) HasImage() bool {
	return m.Image != ""
}

// ErrNoImage is returned by the image helpers when the message has no image.
var ErrNoImage = errors.New("message has no image")

// ImageBytes decodes the inline image payload.
func (m ChatMessage) ImageBytes() ([]byte, error) {
	if m.Image == "" {
		return nil, ErrNoImage
	}
	payload := m.Image
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(payload)
}

// ImageMIME sniffs the content type of the inline image.
func (m ChatMessage) ImageMIME() (string, error) {
	data, err := m.ImageBytes()
	if err != nil {
		return "", err
	}
	return mimetype.Detect(data).String(), nil
}

// ImageDataURL renders the inline image as a data URL.
func (m ChatMessage) ImageDataURL() (string, error) {
	data, err := m.ImageBytes()
	if err != nil {
		return "", err
	}
	mime := mimetype.Detect(data).String()
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
