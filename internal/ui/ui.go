// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the terminal front end.
package ui

import (
	"context"
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mediguard/internal/app"
	"github.com/jeranaias/mediguard/internal/ui/chat"
)

// Run shows the chat screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App) error {
	if err := a.Navigate("chat"); err != nil {
		return err
	}
	p := tea.NewProgram(chat.New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))

	log.Printf("TUI_START | screen=%s", a.Screen())
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
