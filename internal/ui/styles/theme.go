// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
)

// DetectMode resolves a configured theme preference. "auto" asks the
// terminal for its background.
func DetectMode(pref string) presentation.Mode {
	switch strings.ToLower(pref) {
	case "dark":
		return presentation.ModeDark
	case "light":
		return presentation.ModeLight
	default:
		if termenv.HasDarkBackground() {
			return presentation.ModeDark
		}
		return presentation.ModeLight
	}
}

// Theme holds the styles for one presentation snapshot.
type Theme struct {
	// Terminal capabilities
	ColorProfile termenv.Profile

	// Derived from the snapshot
	IsDark     bool
	Monochrome bool
	Neon       bool
	Accent     lipgloss.Color

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App       lipgloss.Style
	Header    lipgloss.Style
	HeaderTag lipgloss.Style
	StatusBar lipgloss.Style
	Muted     lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel   lipgloss.Style
	ModelLabel  lipgloss.Style
	UserBubble  lipgloss.Style
	ModelBubble lipgloss.Style
	Source      lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputPrompt lipgloss.Style
	InputText   lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	Countdown lipgloss.Style
	Flash     lipgloss.Style
	Modal     lipgloss.Style
	Notice    lipgloss.Style
	Error     lipgloss.Style
}

// NewTheme returns a light theme with the default accent.
func NewTheme() *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}
	t.build(false, lipgloss.Color(model.DefaultAccent))
	return t
}

// Apply rebuilds the styles from a Document snapshot.
func (t *Theme) Apply(snap presentation.Snapshot) {
	t.Monochrome = snap.HasBodyClass(presentation.ClassMonochrome)
	t.Neon = snap.HasBodyClass(presentation.ClassNeon)

	accent := snap.Styles[presentation.StyleAccent]
	if accent == "" {
		accent = model.DefaultAccent
	}
	t.build(snap.HasRootClass(presentation.ClassDark), lipgloss.Color(accent))
}

// ApplyState is Apply for hosts without a Document.
func (t *Theme) ApplyState(st presentation.State) {
	t.Monochrome = st.Effect == presentation.EffectMonochrome
	t.Neon = st.Effect == presentation.EffectNeon
	t.build(st.Mode == presentation.ModeDark, lipgloss.Color(st.Accent))
}

func (t *Theme) build(dark bool, accent lipgloss.Color) {
	t.IsDark = dark

	text := pick(TextPrimary, dark)
	muted := pick(TextMuted, dark)
	switch {
	case t.Neon:
		accent, text = NeonAccent, NeonText
	case t.Monochrome:
		accent, text, muted = pick(MonoAccent, dark), pick(MonoText, dark), pick(MonoAccent, dark)
	}
	t.Accent = accent

	surface := pick(Surface, dark)
	dim := pick(SurfaceDim, dark)
	userBg := pick(UserBubbleBg, dark)
	modelBg := pick(ModelBubbleBg, dark)
	if t.Monochrome {
		userBg, modelBg = dim, surface
	}

	t.App = lipgloss.NewStyle().Foreground(text)
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(pick(Surface, dark)).
		Background(accent).
		Padding(0, 1)
	if dark {
		// The status-bar indicator is black in dark mode; keep the header
		// readable by tinting the text instead of the background.
		t.Header = t.Header.Foreground(accent).Background(lipgloss.Color(presentation.DarkIndicatorColor))
	}
	t.HeaderTag = lipgloss.NewStyle().Foreground(muted).Background(dim).Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(muted).Background(dim).Padding(0, 1)
	t.Muted = lipgloss.NewStyle().Foreground(muted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.ModelLabel = lipgloss.NewStyle().Bold(true).Foreground(text)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(text).
		Background(userBg).
		Padding(0, 1)
	t.ModelBubble = lipgloss.NewStyle().
		Foreground(text).
		Background(modelBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(accent).
		PaddingLeft(1)
	t.Source = lipgloss.NewStyle().Foreground(accent).Underline(true)

	t.InputPrompt = lipgloss.NewStyle().Foreground(accent).Bold(true)
	t.InputText = lipgloss.NewStyle().Foreground(text)

	t.Countdown = lipgloss.NewStyle().
		Bold(true).
		Foreground(pick(Rose, dark)).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(pick(Rose, dark)).
		Padding(1, 6).
		Align(lipgloss.Center)
	t.Flash = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color("#FFFFFF")).
		Align(lipgloss.Center)
	t.Modal = lipgloss.NewStyle().
		Foreground(text).
		Background(surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 4).
		Align(lipgloss.Center)
	t.Notice = lipgloss.NewStyle().Foreground(pick(Emerald, dark))
	t.Error = lipgloss.NewStyle().Foreground(pick(Rose, dark)).Bold(true)
}

// GlamourStyle names the glamour standard style for the current mode.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
