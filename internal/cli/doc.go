// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and runs the non-interactive
// commands.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if cmd == cli.CmdTUI {
//	    return ui.Run(ctx, a)
//	}
//	err := cli.Run(ctx, cli.NewRuntime(cfg, a), cmd, args)
//	os.Exit(cli.GetExitCode(err))
//
// # Commands
//
//	tui          full-screen interface (default)
//	chat         line REPL, or one message when given as arguments
//	profile      show | set | signout
//	transcript   show | clear | export
//	cache        status | install | start | clear
//	serve        offline proxy for the app origin
//	config       show | get | set | keys | path
//	version, help
//
// Global flags (-q, -v, --json, --offline, --model) go before the command.
// Output is colored only on a terminal and never when NO_COLOR is set.
package cli
