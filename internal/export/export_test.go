// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mediguard/internal/model"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleDocument() *Document {
	user := model.ChatMessage{ID: "m1", Role: model.RoleUser, Text: "Can I take ibuprofen?", Timestamp: fixedNow.Add(-time.Minute)}
	user.Image = onePixelPNG
	reply := model.ChatMessage{
		ID:        "m2",
		Role:      model.RoleModel,
		Text:      "With reduced kidney function, ask your doctor first.",
		Timestamp: fixedNow.Add(-30 * time.Second),
		GroundingSources: []model.GroundingSource{
			{Title: "NSAIDs and kidneys", URL: "https://example.org/nsaids"},
			{URL: "https://example.org/bare"},
		},
	}
	return &Document{Title: "Pain relief", Owner: "Asha", Messages: []model.ChatMessage{user, reply}}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleDocument())
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "---\ntitle: Pain relief\nowner: Asha\n"), text)
	assert.Contains(t, text, "messages: 2\n")
	assert.Contains(t, text, "# Pain relief\n")
	assert.Contains(t, text, "### You <sub>09:25:53</sub>")
	assert.Contains(t, text, "### MediGuard <sub>09:26:23</sub>")
	assert.Contains(t, text, "*[image attached: image/png]*")
	assert.Contains(t, text, "- [NSAIDs and kidneys](https://example.org/nsaids)")
	assert.Contains(t, text, "- [https://example.org/bare](https://example.org/bare)")
	assert.NotContains(t, text, onePixelPNG, "image payload is never inlined")
	assert.Contains(t, text, "Exported from MediGuard on 2025-03-14 09:26:53")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(sampleDocument())
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "# Pain relief"))
	assert.Contains(t, text, "### You\n")
}

func TestMarkdownExport_YAMLInjection(t *testing.T) {
	doc := sampleDocument()
	doc.Title = "Test\nInjection: malicious"

	out, err := NewMarkdownExporter(testOptions()).Export(doc)
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\n")[:8] {
		assert.False(t, strings.HasPrefix(line, "Injection:"), "newline must be escaped in frontmatter")
	}
	assert.Contains(t, string(out), `title: "Test\nInjection: malicious"`)
}

func TestExport_Empty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&Document{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = NewJSONExporter(nil).Export(&Document{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = NewJSONExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestJSONExport_ReadBack(t *testing.T) {
	doc := sampleDocument()
	out, err := NewJSONExporter(testOptions()).Export(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"exportedAt": "2025-03-14T09:26:53Z"`)

	back, err := ReadJSON(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, back.Title)
	require.Len(t, back.Messages, 2)
	assert.Equal(t, doc.Messages[1].GroundingSources, back.Messages[1].GroundingSources)
	assert.True(t, doc.Messages[0].Timestamp.Equal(back.Messages[0].Timestamp))
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		ok   bool
	}{
		{"markdown", ".md", true},
		{"MD", ".md", true},
		{"json", ".json", true},
		{"html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := ForFormat(tt.name, nil)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.FileExtension())
		})
	}
}

func TestExportToFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := testOptions()
	opts.OutputDir = "/exports"

	path, err := ExportToFile(fs, sampleDocument(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, "/exports/transcript_Pain_relief_20250314_092653.md", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Pain relief")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "chat"},
		{"a/b:c", "a-b-c"},
		{"two words", "two_words"},
		{"bell\x07", "bell-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
