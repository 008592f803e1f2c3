// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mediguard/internal/ui/styles"
)

// init configures the lipgloss color profile for the terminal. Piped output
// and NO_COLOR get plain text.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Teal)

	// SectionStyle is used for section headers
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// ValueStyle is used for values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for hints and timestamps
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)

	// PromptStyle is the chat REPL prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)
)

// labelWidth is the column width for key/value listings.
const labelWidth = 18

// RenderSeparator renders a horizontal rule of width columns (default 48).
func RenderSeparator(width ...int) string {
	w := 48
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderField renders a "label  value" row with an aligned label column.
func RenderField(label, value string) string {
	return LabelStyle.Render(FitColumn(label, labelWidth)) + ValueStyle.Render(value)
}

// RenderStatus renders a status word as a colored tag.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "activated", "installed", "current":
		return SuccessStyle.Render("[" + strings.ToUpper(status) + "]")
	case "error", "redundant", "failed":
		return ErrorStyle.Render("[" + strings.ToUpper(status) + "]")
	case "installing", "activating", "stale":
		return WarningStyle.Render("[" + strings.ToUpper(status) + "]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}
