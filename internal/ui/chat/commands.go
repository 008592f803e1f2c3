// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/mediguard/internal/presentation"
)

// Action is what a slash command does.
type Action int

const (
	ActionEffect Action = iota
	ActionToggleTheme
	ActionSignOut
	ActionReset
	ActionImage
	ActionExport
	ActionScreen
	ActionHelp
	ActionQuit
)

// SlashCommand describes one command.
type SlashCommand struct {
	Name   string
	Usage  string
	Help   string
	Action Action
	Event  presentation.Event // set for ActionEffect
}

// SlashCommands lists every command in help order.
var SlashCommands = []SlashCommand{
	{Name: "mono", Help: "monochrome effect", Action: ActionEffect, Event: presentation.EventMonochrome},
	{Name: "neon", Help: "neon effect", Action: ActionEffect, Event: presentation.EventNeon},
	{Name: "countdown", Help: "four second countdown", Action: ActionEffect, Event: presentation.EventCountdown},
	{Name: "thanks", Help: "thank-you card", Action: ActionEffect, Event: presentation.EventModal},
	{Name: "hindi", Help: "switch labels to Hindi", Action: ActionEffect, Event: presentation.EventHindi},
	{Name: "clear", Help: "clear effects", Action: ActionEffect, Event: presentation.EventClear},
	{Name: "dark", Help: "toggle light/dark", Action: ActionToggleTheme},
	{Name: "signout", Help: "forget the profile", Action: ActionSignOut},
	{Name: "reset", Help: "delete the chat history", Action: ActionReset},
	{Name: "image", Usage: "<path> [question]", Help: "ask about an image", Action: ActionImage},
	{Name: "export", Usage: "[markdown|json]", Help: "save the chat to a file", Action: ActionExport},
	{Name: "screen", Usage: "<name>", Help: "switch screen", Action: ActionScreen},
	{Name: "help", Help: "list commands", Action: ActionHelp},
	{Name: "quit", Help: "exit", Action: ActionQuit},
}

// ErrUnknownCommand is returned for a slash word that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// ParseSlash splits a slash command from its arguments. ok is false when
// line is ordinary chat text.
func ParseSlash(line string) (cmd SlashCommand, args string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return SlashCommand{}, "", false, nil
	}
	name, args, _ := strings.Cut(line[1:], " ")
	name = strings.ToLower(name)
	for _, c := range SlashCommands {
		if c.Name == name {
			return c, strings.TrimSpace(args), true, nil
		}
	}
	return SlashCommand{}, "", true, fmt.Errorf("%w: /%s (try /help)", ErrUnknownCommand, name)
}

// HelpText renders the command list on one line per command.
func HelpText() string {
	var sb strings.Builder
	for _, c := range SlashCommands {
		usage := "/" + c.Name
		if c.Usage != "" {
			usage += " " + c.Usage
		}
		fmt.Fprintf(&sb, "%-28s %s\n", usage, c.Help)
	}
	return strings.TrimRight(sb.String(), "\n")
}
