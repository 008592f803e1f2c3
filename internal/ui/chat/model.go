// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/app"
	mgchat "github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/export"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/ui/styles"
)


// =============================================================================
// MESSAGES
// =============================================================================

// replyMsg carries the outcome of one chat round trip.
type replyMsg struct {
	reply model.ChatMessage
	err   error
}

// stateChangedMsg reports a presentation transition.
type stateChangedMsg struct{}

// notifier coalesces controller notifications into one pending wake-up.
type notifier struct{ ch chan struct{} }

func newNotifier() notifier { return notifier{ch: make(chan struct{}, 1)} }

func (n notifier) notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return stateChangedMsg{}
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	ctx    context.Context
	app    *app.App
	theme  *styles.Theme
	keys   KeyMap
	notify notifier
	fs     afero.Fs

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer
	mdStyle  string

	width, height int

	waiting bool
	pending *model.ChatMessage
	notice  string
	isError bool
}

// New builds the chat screen for a booted app.
func New(ctx context.Context, a *app.App) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	n := newNotifier()
	a.Subscribe(func(presentation.State) { n.notify() })

	m := Model{
		ctx:      ctx,
		app:      a,
		theme:    styles.NewTheme(),
		keys:     DefaultKeyMap(),
		notify:   n,
		fs:       afero.NewOsFs(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
		height:   24,
	}
	m.syncTheme()
	m.refresh()
	return m
}

// Init starts the cursor blink and the presentation listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.notify.wait())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case stateChangedMsg:
		m.syncTheme()
		m.refresh()
		return m, m.notify.wait()

	case replyMsg:
		m.waiting = false
		m.pending = nil
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.say("")
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// The thank-you card closes on any key, like a click on its backdrop.
	if m.app.Theme().State().Effect == presentation.EffectModal {
		m.app.Effects().Dismiss()
		m.syncTheme()
		m.refresh()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		line := m.input.Value()
		m.input.Reset()
		return m.submit(line)

	case key.Matches(msg, m.keys.Cancel):
		m.input.Reset()
		m.say("")
		return m, nil

	case key.Matches(msg, m.keys.Theme):
		m.app.Theme().ToggleTheme()
		m.syncTheme()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	cmd, args, isSlash, err := ParseSlash(line)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	if isSlash {
		return m.runSlash(cmd, args)
	}
	if strings.TrimSpace(line) == "" {
		return m, nil
	}
	return m.send(mgchat.Input{Text: line})
}

func (m Model) send(in mgchat.Input) (tea.Model, tea.Cmd) {
	if m.waiting {
		m.setError(errors.New("still waiting for the last reply"))
		return m, nil
	}

	pending := model.NewUserMessage(strings.TrimSpace(in.Text))
	pending.Image = in.Image
	m.pending = &pending
	m.waiting = true
	m.say("")
	m.refresh()
	m.viewport.GotoBottom()

	session := m.app.Chat()
	ctx := m.ctx
	return m, tea.Batch(
		func() tea.Msg {
			reply, err := session.Send(ctx, in)
			return replyMsg{reply: reply, err: err}
		},
		m.spinner.Tick,
	)
}

func (m Model) runSlash(cmd SlashCommand, args string) (tea.Model, tea.Cmd) {
	var err error
	switch cmd.Action {
	case ActionEffect:
		err = m.app.Effects().Trigger(cmd.Event)

	case ActionToggleTheme:
		mode := m.app.Theme().ToggleTheme()
		m.say("Theme: " + string(mode))

	case ActionSignOut:
		if err = m.app.Profile().SignOut(); err == nil {
			m.say("Signed out.")
		}

	case ActionReset:
		if err = m.app.Transcript().Clear(); err == nil {
			m.say("Chat history deleted.")
		}

	case ActionImage:
		path, question, _ := strings.Cut(args, " ")
		var in mgchat.Input
		if path == "" {
			err = errors.New("usage: /image <path> [question]")
			break
		}
		in, err = mgchat.ReadImage(m.fs, path, question)
		if err == nil {
			return m.send(in)
		}

	case ActionExport:
		var out string
		out, err = m.exportTranscript(args)
		if err == nil {
			m.say("Saved " + out)
		}

	case ActionScreen:
		if err = m.app.Navigate(model.AppScreen(args)); err == nil {
			m.say("Screen: " + string(m.app.Screen()))
		}

	case ActionHelp:
		m.say(HelpText())

	case ActionQuit:
		return m, tea.Quit
	}

	if err != nil {
		m.setError(err)
	} else if cmd.Action == ActionEffect {
		m.say("")
	}
	m.syncTheme()
	m.refresh()
	return m, nil
}

func (m Model) exportTranscript(format string) (string, error) {
	exp, err := export.ForFormat(format, nil)
	if err != nil {
		return "", err
	}
	doc := export.NewDocument(m.app.Profile().Current(), m.app.Transcript().Messages())
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	opts := export.DefaultOptions()
	opts.OutputDir = dir
	return export.ExportToFile(m.fs, doc, exp, opts)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) say(text string) {
	m.notice = text
	m.isError = false
}

func (m *Model) setError(err error) {
	m.notice = err.Error()
	m.isError = true
}

// syncTheme rebuilds styles from the environment the controller wrote.
func (m *Model) syncTheme() {
	if doc, ok := m.app.Environment().(*presentation.Document); ok {
		m.theme.Apply(doc.Snapshot())
	} else {
		m.theme.ApplyState(m.app.Theme().State())
	}

	st := m.app.Theme().State()
	m.input.Placeholder = labelsFor(st.Locale).placeholder
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.TextStyle = m.theme.InputText

	if m.theme.GlamourStyle() != m.mdStyle {
		m.buildRenderer()
	}
}

func (m *Model) layout() {
	m.viewport.Width = m.width
	// header, status bar and input line
	m.viewport.Height = max(m.height-3, 1)
	m.input.Width = max(m.width-4, 10)
	m.buildRenderer()
}

func (m *Model) buildRenderer() {
	m.mdStyle = m.theme.GlamourStyle()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.mdStyle),
		glamour.WithWordWrap(max(m.width-4, 20)),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
}
