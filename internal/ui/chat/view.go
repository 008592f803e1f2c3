// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/util"
)

// labels are the few strings the chat screen translates.
type labels struct {
	placeholder string
	thinking    string
	guest       string
	empty       string
	thanks      string
	thanksBody  string
}

var localized = map[string]labels{
	model.DefaultLanguage: {
		placeholder: "Ask about a medicine...",
		thinking:    "Thinking",
		guest:       "Guest",
		empty:       "No messages yet. Ask about a medicine, or type /help.",
		thanks:      "Thank You!",
		thanksBody:  "Thanks for using MediGuard. Press any key.",
	},
	model.HindiLanguage: {
		placeholder: "दवा के बारे में पूछें...",
		thinking:    "सोच रहा है",
		guest:       "अतिथि",
		empty:       "अभी कोई संदेश नहीं। किसी दवा के बारे में पूछें या /help लिखें।",
		thanks:      "धन्यवाद!",
		thanksBody:  "MediGuard का उपयोग करने के लिए धन्यवाद। कोई भी कुंजी दबाएँ।",
	},
}

func labelsFor(locale string) labels {
	if l, ok := localized[locale]; ok {
		return l
	}
	return localized[model.DefaultLanguage]
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	st := m.app.Theme().State()

	switch {
	case st.Flash:
		return m.renderFlash()
	case st.Effect == presentation.EffectCountdown:
		return m.renderCentered(m.theme.Countdown.Render("BOMB\n\n" + strconv.Itoa(st.Countdown)))
	case st.Effect == presentation.EffectModal:
		l := labelsFor(st.Locale)
		return m.renderCentered(m.theme.Modal.Render(l.thanks + "\n\n" + l.thanksBody))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(st),
		m.viewport.View(),
		m.renderStatus(st),
		m.input.View(),
	)
}

func (m Model) renderCentered(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderFlash() string {
	line := m.theme.Flash.Width(m.width).Render(" ")
	lines := make([]string, max(m.height, 1))
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(st presentation.State) string {
	l := labelsFor(st.Locale)
	who := l.guest
	if p := m.app.Profile().Current(); p != nil && p.Name != "" {
		who = p.Name
	}

	title := m.theme.Header.Render("MediGuard AI")
	tags := m.theme.HeaderTag.Render(fmt.Sprintf("%s | %s | %s | %s",
		who, st.Mode, st.Locale, m.app.Screen()))
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, tags)
	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(line)
}

func (m Model) renderStatus(st presentation.State) string {
	var text string
	switch {
	case m.waiting:
		text = m.spinner.View() + " " + labelsFor(st.Locale).thinking
	case m.notice != "":
		text = util.SingleLine(m.notice)
		if strings.Contains(m.notice, "\n") {
			// help text is multi-line; show it in the transcript area instead
			text = "/help: see above"
		}
		if m.isError {
			return m.theme.Error.Render(text)
		}
		return m.theme.Notice.Render(text)
	default:
		var parts []string
		for _, b := range m.keys.ShortHelp() {
			parts = append(parts, b.Help().Key+" "+b.Help().Desc)
		}
		text = strings.Join(parts, "  ")
	}
	return m.theme.StatusBar.Render(util.TruncateWidth(text, max(m.width-2, 1)))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	msgs := m.app.Transcript().Messages()
	st := m.app.Theme().State()

	var sb strings.Builder
	if strings.Contains(m.notice, "\n") {
		sb.WriteString(m.theme.Muted.Render(m.notice))
		sb.WriteString("\n\n")
	}
	if len(msgs) == 0 && m.pending == nil {
		sb.WriteString(m.theme.Muted.Render(labelsFor(st.Locale).empty))
		return sb.String()
	}
	for _, msg := range msgs {
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}
	if m.pending != nil {
		sb.WriteString(m.renderMessage(*m.pending))
	}
	return sb.String()
}

func (m Model) renderMessage(msg model.ChatMessage) string {
	stamp := m.theme.Muted.Render(msg.Timestamp.Format("15:04"))

	if msg.Role == model.RoleUser {
		var body strings.Builder
		if msg.HasImage() {
			mime, err := msg.ImageMIME()
			if err != nil {
				mime = "unreadable"
			}
			fmt.Fprintf(&body, "[image: %s]", mime)
			if msg.Text != "" {
				body.WriteString("\n")
			}
		}
		body.WriteString(msg.Text)
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + " " + stamp + "\n" +
			m.theme.UserBubble.Width(max(m.width-2, 10)).Render(body.String()) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(m.theme.ModelLabel.Render(msg.Role.DisplayName()) + " " + stamp + "\n")
	sb.WriteString(m.theme.ModelBubble.Render(strings.TrimRight(m.renderMarkdown(msg.Text), "\n")))
	sb.WriteString("\n")
	for i, src := range msg.GroundingSources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		fmt.Fprintf(&sb, "  [%d] %s %s\n", i+1,
			util.TruncateWidth(title, 40), m.theme.Source.Render(src.URL))
	}
	return sb.String()
}

// renderMarkdown renders a reply, falling back to the raw text.
func (m Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
