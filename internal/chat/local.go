// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/jeranaias/mediguard/internal/model"
)

// emergencyWords trigger the emergency reminder in offline replies.
var emergencyWords = []string{
	"emergency", "overdose", "chest pain", "can't breathe", "cannot breathe",
	"unconscious", "seizure", "suicide", "poison",
}

// LocalResponder answers without a network. It is used when no API key is
// configured and always gives the same reply for the same input.
type LocalResponder struct{}

// Respond returns a fixed notice, plus an emergency reminder when the input
// mentions one.
func (LocalResponder) Respond(_ context.Context, _ []model.ChatMessage, in Input) (model.ChatMessage, error) {
	var b strings.Builder
	b.WriteString("The MediGuard assistant is not connected, so I can't look this up right now. ")
	b.WriteString("Configure a Gemini API key to enable answers.")

	lower := strings.ToLower(in.Text)
	for _, w := range emergencyWords {
		if strings.Contains(lower, w) {
			b.WriteString("\n\nIf this is an emergency, call your local emergency number or one of your emergency contacts now.")
			break
		}
	}
	if in.Image != "" {
		b.WriteString("\n\nYour image was saved with the message.")
	}
	return model.NewModelMessage(b.String()), nil
}
