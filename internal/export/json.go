// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/mediguard/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON. Messages keep their stored
// shape so the file can be loaded back with transcript.Replace.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	Title      string              `json:"title,omitempty"`
	Owner      string              `json:"owner,omitempty"`
	ExportedAt time.Time           `json:"exportedAt"`
	Messages   []model.ChatMessage `json:"messages"`
}

// Export converts a document to indented JSON.
func (e *JSONExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if len(doc.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}
	return json.MarshalIndent(jsonDocument{
		Title:      doc.Title,
		Owner:      doc.Owner,
		ExportedAt: e.options.now().UTC(),
		Messages:   doc.Messages,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// ReadJSON parses a file written by JSONExporter.
func ReadJSON(data []byte) (*Document, error) {
	var d jsonDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return &Document{Title: d.Title, Owner: d.Owner, Messages: d.Messages}, nil
}
