// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// transcript_cmd.go - chat transcript commands.
//
// Command: transcript [subcommand]
// Aliases: history
//
// Subcommands:
//   show [--last N]                     Print the transcript
//   clear [--force]                     Delete the transcript
//   export [--format md|json] [--out D] Write a dated file to D (default: cwd)

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jeranaias/mediguard/internal/export"
	"github.com/jeranaias/mediguard/internal/util"
)

// HandleTranscript dispatches transcript subcommands.
func HandleTranscript(rt *Runtime, args Args) error {
	a, err := rt.requireApp("transcript")
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)
	msgs := a.Transcript().Messages()

	switch p.Subcommand() {
	case "", "show", "list":
		if v := p.Flag("last"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return NewValidationError("last", v, "must be a non-negative integer")
			}
			if n < len(msgs) {
				msgs = msgs[len(msgs)-n:]
			}
		}
		if args.JSON {
			return printJSON(rt.Out, "transcript show", msgs)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(rt.Out, DimStyle.Render("No messages yet."))
			return nil
		}
		width := GetTerminalWidth()
		for _, m := range msgs {
			head := FitColumn(m.Role.DisplayName(), 8) + " " + m.Timestamp.Local().Format("2006-01-02 15:04")
			fmt.Fprintln(rt.Out, LabelStyle.Render(head))
			fmt.Fprintln(rt.Out, util.TruncateWidth(m.Text, width*8))
			if m.HasImage() {
				mime, _ := m.ImageMIME()
				fmt.Fprintln(rt.Out, DimStyle.Render("[image attached: "+mime+"]"))
			}
			fmt.Fprintln(rt.Out)
		}
		return nil

	case "clear", "delete":
		if len(msgs) > 0 && !p.BoolFlag("force") && IsTTY() && !args.JSON {
			fmt.Fprintf(rt.Out, "Delete %d messages? Re-run with --force to confirm.\n", len(msgs))
			return nil
		}
		if err := a.Transcript().Clear(); err != nil {
			return NewCommandError("transcript", "clear", "could not delete transcript", err)
		}
		if args.JSON {
			return printJSON(rt.Out, "transcript clear", map[string]int{"deleted": len(msgs)})
		}
		fmt.Fprintf(rt.Out, "%s %d messages deleted.\n", SuccessStyle.Render("OK"), len(msgs))
		return nil

	case "export":
		exp, err := export.ForFormat(p.FlagOrDefault("format", "markdown"), nil)
		if err != nil {
			return NewValidationErrorWithExample("format", p.Flag("format"), err.Error(), "--format json")
		}
		opts := export.DefaultOptions()
		opts.OutputDir = p.Flag("out")
		if opts.OutputDir == "" {
			if opts.OutputDir, err = os.Getwd(); err != nil {
				return err
			}
		}
		path, err := export.ExportToFile(rt.Fs, export.NewDocument(a.Profile().Current(), msgs), exp, opts)
		if err != nil {
			return NewCommandError("transcript", "export", "could not write export", err)
		}
		if args.JSON {
			return printJSON(rt.Out, "transcript export", map[string]any{"path": path, "messages": len(msgs)})
		}
		fmt.Fprintf(rt.Out, "%s %s\n", SuccessStyle.Render("Saved"), path)
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", p.Subcommand(), "unknown transcript subcommand", "mediguard transcript show")
	}
}
