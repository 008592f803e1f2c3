// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - line chat for terminals where the full-screen UI is unwanted.
//
// Command: chat
// Short:   Chat with the MediGuard assistant
//
// Examples:
//   mediguard chat                          Start the REPL
//   mediguard chat "Can I take ibuprofen?"  Send one message and exit
//   mediguard --offline chat                Never call the model
//
// REPL commands:
//   /help              Show commands
//   /history           Print the transcript
//   /image PATH [TEXT] Send an image with optional text
//   /reset             Delete the transcript
//   /quit              Exit (also Ctrl+D)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/app"
	"github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/config"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a liner with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with prompt and records non-empty input.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file (0600). Chat lines can hold health
// details, so the file is owner-only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// ChatREPL handles chat lines against an App.
type ChatREPL struct {
	app      *app.App
	fs       afero.Fs
	out      io.Writer
	quiet    bool
	renderer *glamour.TermRenderer
}

// NewChatREPL builds a REPL writing to out. Replies are rendered as
// Markdown, without color when out is not a terminal.
func NewChatREPL(a *app.App, fs afero.Fs, out io.Writer, quiet bool) *ChatREPL {
	style := "notty"
	if ColorsEnabled() {
		style = "dark"
		if a.Theme().State().Mode != presentation.ModeDark {
			style = "light"
		}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		r = nil
	}
	return &ChatREPL{app: a, fs: fs, out: out, quiet: quiet, renderer: r}
}

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

// HandleLine processes one input line. It returns errQuit for /quit.
// Send failures are printed and do not end the session.
func (r *ChatREPL) HandleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, chat.Input{Text: line})
		return nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(name) {
	case "help", "h", "?":
		r.printHelp()
	case "history":
		r.printHistory()
	case "reset":
		if err := r.app.Transcript().Clear(); err != nil {
			DisplayError(r.out, err, false)
			return nil
		}
		fmt.Fprintln(r.out, DimStyle.Render("Chat history deleted."))
	case "image", "img":
		path, text, _ := strings.Cut(rest, " ")
		in, err := chat.ReadImage(r.fs, path, strings.TrimSpace(text))
		if err != nil {
			DisplayError(r.out, err, false)
			return nil
		}
		r.send(ctx, in)
	case "quit", "q", "exit":
		return errQuit
	default:
		DisplayError(r.out, NewValidationErrorWithExample("command", "/"+name, "unknown chat command", "/help"), false)
	}
	return nil
}

func (r *ChatREPL) send(ctx context.Context, in chat.Input) {
	reply, err := r.app.Chat().Send(ctx, in)
	if err != nil {
		DisplayError(r.out, err, false)
		return
	}
	r.printReply(reply)
}

func (r *ChatREPL) printReply(msg model.ChatMessage) {
	text := msg.Text
	if r.renderer != nil {
		if out, err := r.renderer.Render(msg.Text); err == nil {
			text = strings.TrimRight(out, "\n")
		}
	}
	fmt.Fprintln(r.out, text)
	if len(msg.GroundingSources) > 0 && !r.quiet {
		fmt.Fprintln(r.out, DimStyle.Render("Sources:"))
		for i, s := range msg.GroundingSources {
			fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, s.Title, DimStyle.Render(s.URL))
		}
	}
	fmt.Fprintln(r.out)
}

func (r *ChatREPL) printHistory() {
	msgs := r.app.Transcript().Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No messages yet."))
		return
	}
	for _, m := range msgs {
		label := LabelStyle.Render(m.Timestamp.Local().Format("15:04") + " " + m.Role.DisplayName())
		fmt.Fprintf(r.out, "%s  %s\n", label, m.Text)
	}
}

func (r *ChatREPL) printHelp() {
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/help", "Show this help"},
		{"/history", "Print the transcript"},
		{"/image PATH [TEXT]", "Send an image"},
		{"/reset", "Delete the transcript"},
		{"/quit", "Exit (Ctrl+D)"},
	} {
		fmt.Fprintln(r.out, "  "+RenderField(row[0], row[1]))
	}
}

// =============================================================================
// HANDLER
// =============================================================================

// HandleChat runs the REPL, or sends args.Message once when it is set.
func HandleChat(ctx context.Context, rt *Runtime, args Args) error {
	a, err := rt.requireApp("chat")
	if err != nil {
		return err
	}
	repl := NewChatREPL(a, rt.Fs, rt.Out, args.Quiet)

	if args.Message != "" {
		reply, err := a.Chat().Send(ctx, chat.Input{Text: args.Message})
		if err != nil {
			return NewCommandError("chat", "send", "no reply", err)
		}
		if args.JSON {
			return printJSON(rt.Out, "chat", reply)
		}
		repl.printReply(reply)
		return nil
	}

	if !IsTTY() {
		return NewCommandError("chat", "start", "stdin is not a terminal; pass the message as an argument", nil)
	}

	input := NewChatCLI()
	defer input.Close()

	if !args.Quiet {
		fmt.Fprintln(rt.Out, TitleStyle.Render("MediGuard chat"))
		fmt.Fprintln(rt.Out, DimStyle.Render("Not medical advice. Type /help for commands, Ctrl+D to exit."))
		fmt.Fprintln(rt.Out)
	}

	prompt := "you> "
	for {
		line, err := input.ReadInput(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(rt.Out)
			return nil
		}
		if err != nil {
			return err
		}
		if err := repl.HandleLine(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
