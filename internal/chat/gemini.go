// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jeranaias/mediguard/internal/model"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when Gemini answers with no content.
var ErrNoCandidates = errors.New("model returned no candidates")

// ProfileSource supplies the signed-in profile, or nil for a guest.
type ProfileSource interface {
	Current() *model.UserProfile
}

// GeminiResponder answers with Gemini, grounded on Google Search.
type GeminiResponder struct {
	client  *genai.Client
	model   string
	profile ProfileSource
}

// NewGeminiResponder creates a Gemini client for apiKey.
func NewGeminiResponder(ctx context.Context, apiKey, modelName string, profile ProfileSource) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiResponder{client: client, model: modelName, profile: profile}, nil
}

// Model returns the model name.
func (g *GeminiResponder) Model() string { return g.model }

// Respond sends the history plus the new turn.
func (g *GeminiResponder) Respond(ctx context.Context, history []model.ChatMessage, in Input) (model.ChatMessage, error) {
	contents, err := BuildContents(history, in)
	if err != nil {
		return model.ChatMessage{}, err
	}

	var p *model.UserProfile
	if g.profile != nil {
		p = g.profile.Current()
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(p), genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if len(resp.Candidates) == 0 {
		return model.ChatMessage{}, ErrNoCandidates
	}
	return model.NewModelMessage(resp.Text(), Sources(resp)...), nil
}

// =============================================================================
// REQUEST BUILDING
// =============================================================================

// BuildContents maps the transcript and the new turn to Gemini contents.
// Stored images are sent again so the model keeps the visual context.
func BuildContents(history []model.ChatMessage, in Input) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		c, err := messageContent(m.Role, m.Text, m.Image)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.ID, err)
		}
		if c != nil {
			contents = append(contents, c)
		}
	}

	c, err := messageContent(model.RoleUser, strings.TrimSpace(in.Text), in.Image)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrEmptyInput
	}
	return append(contents, c), nil
}

func messageContent(role model.Role, text, image string) (*genai.Content, error) {
	var parts []*genai.Part
	if image != "" {
		msg := model.ChatMessage{Image: image}
		data, err := msg.ImageBytes()
		if err != nil {
			return nil, err
		}
		mime, err := msg.ImageMIME()
		if err != nil {
			return nil, err
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}
	if text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	if len(parts) == 0 {
		return nil, nil
	}

	var r genai.Role = genai.RoleUser
	if role == model.RoleModel {
		r = genai.RoleModel
	}
	return genai.NewContentFromParts(parts, r), nil
}

// SystemInstruction tailors the assistant to the profile. A nil profile
// gets the guest instruction.
func SystemInstruction(p *model.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are MediGuard, a medication safety assistant. ")
	b.WriteString("Answer questions about medicines, interactions and side effects in plain language. ")
	b.WriteString("Cite trustworthy sources. Never replace a doctor or pharmacist; ")
	b.WriteString("for anything urgent tell the user to contact emergency services.")

	if p == nil {
		return b.String()
	}

	b.WriteString("\n\nUser health profile:")
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n- %s: %s", name, value)
		}
	}
	field("Age", p.Age)
	if p.Gender != "" && p.Gender != model.GenderUnknown {
		field("Gender", string(p.Gender))
	}
	if p.KidneyFunction != "" && p.KidneyFunction != model.OrganUnknown {
		field("Kidney function", string(p.KidneyFunction))
	}
	if p.LiverFunction != "" && p.LiverFunction != model.OrganUnknown {
		field("Liver function", string(p.LiverFunction))
	}
	field("Current medications", p.CurrentMeds)

	if lang, ok := model.LookupLanguage(p.Language); ok && lang.Code != model.DefaultLanguage {
		fmt.Fprintf(&b, "\n\nReply in %s.", lang.Name)
	}
	return b.String()
}

// Sources extracts web grounding citations, without duplicate URLs.
func Sources(resp *genai.GenerateContentResponse) []model.GroundingSource {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.GroundingSource
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		out = append(out, model.GroundingSource{Title: title, URL: chunk.Web.URI})
	}
	return out
}
