// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Each color has a light-mode and a dark-mode value. The mode is chosen by
// the app, not the terminal, so Theme picks a side with pick().

// Teal matches the app's default accent.
var Teal = lipgloss.AdaptiveColor{Light: "#006A6A", Dark: "#4FD8D8"}

// Rose - errors, emergency countdown
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings, disclaimers
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - success notices
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Surface - main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#000000"}

// SurfaceDim - headers and footers
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#171717"}

// Overlay - borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#262626"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F5F5F5"}

// TextMuted - hints and timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A3A3A3"}

// User message bubble
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#E0F2F1", Dark: "#134E4A"}

// Model message bubble
var ModelBubbleBg = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#1F1F1F"}

// =============================================================================
// EFFECT PALETTES
// =============================================================================

// Neon replaces the accent and text while the neon effect is on.
var (
	NeonAccent = lipgloss.Color("#39FF14")
	NeonText   = lipgloss.Color("#FF00FF")
)

// Monochrome collapses every hue to gray.
var (
	MonoAccent = lipgloss.AdaptiveColor{Light: "#404040", Dark: "#D4D4D4"}
	MonoText   = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
)

// pick returns the side of c for the app's mode.
func pick(c lipgloss.AdaptiveColor, dark bool) lipgloss.Color {
	if dark {
		return lipgloss.Color(c.Dark)
	}
	return lipgloss.Color(c.Light)
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicators are ASCII cues that work without color.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success line for plain terminal output.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line for plain terminal output.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line for plain terminal output.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an informational line for plain terminal output.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Teal).
		Render(StatusIndicators.Info + " " + message)
}
