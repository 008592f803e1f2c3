// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/app"
	"github.com/jeranaias/mediguard/internal/config"
	"github.com/jeranaias/mediguard/internal/offline"
)

// Version information (set at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command represents a CLI command.
type Command int

const (
	// CmdTUI starts the full-screen interface (default).
	CmdTUI Command = iota
	// CmdChat starts the line REPL or sends one message.
	CmdChat
	// CmdProfile shows or edits the medical profile.
	CmdProfile
	// CmdTranscript shows, clears or exports the chat transcript.
	CmdTranscript
	// CmdCache manages the offline cache.
	CmdCache
	// CmdServe runs the offline proxy.
	CmdServe
	// CmdConfig manages configuration.
	CmdConfig
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:        "tui",
	CmdChat:       "chat",
	CmdProfile:    "profile",
	CmdTranscript: "transcript",
	CmdCache:      "cache",
	CmdServe:      "serve",
	CmdConfig:     "config",
	CmdVersion:    "version",
	CmdHelp:       "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// NeedsApp reports whether the command works on profile or transcript
// state and so needs storage opened.
func (c Command) NeedsApp() bool {
	switch c {
	case CmdTUI, CmdChat, CmdProfile, CmdTranscript:
		return true
	}
	return false
}

// =============================================================================
// ARGS
// =============================================================================

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Offline bool   // use the local responder even with an API key
	Model   string // overrides chat.model

	// Subcommand is the first word after the command, lowercased.
	Subcommand string

	// Raw holds everything after the command name.
	Raw []string

	// Chat
	Message string

	// Unknown is set when the command word was not recognised.
	Unknown string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `MediGuard %s - medication safety assistant

Usage:
  mediguard [flags] [command]

Commands:
  tui                        Full-screen interface (default)
  chat [message]             Line chat; sends one message when given
  profile show               Show the medical profile
  profile set [--field v]    Create or update the profile
  profile signout            Remove the profile
  transcript show            Print the chat transcript
  transcript clear           Delete the chat transcript
  transcript export          Export to Markdown or JSON (--format, --out)
  cache status               Show the offline cache generations
  cache install              Fetch the manifest and activate it
  cache start                Resume a stored generation or install one
  cache clear                Delete every cache generation
  serve [--listen addr]      Serve the app origin through the offline cache
  config show|get|set|path   Manage configuration
  version                    Show version information
  help                       Show this help

Profile fields:
  --name --email --age --gender (Male|Female|Other|Unknown)
  --kidney --liver (Normal|Impaired|Unknown) --meds
  --contact1 "Name:Number" --contact2 "Name:Number"
  --language CODE --color #RRGGBB --fda-key KEY

Flags:
  -q, --quiet       Minimal output
  -v, --verbose     Log to stderr
  --json            Machine-readable output
  --offline         Never call the chat model
  --model NAME      Chat model override

Not medical advice. In an emergency call your local emergency number.
`

// PrintUsage writes usage to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "mediguard version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		args.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "chat", "c":
		args.Message = strings.TrimSpace(strings.Join(remaining, " "))
		args.Subcommand = ""
		return CmdChat, args
	case "profile", "p":
		return CmdProfile, args
	case "transcript", "history":
		return CmdTranscript, args
	case "cache":
		return CmdCache, args
	case "serve", "proxy":
		return CmdServe, args
	case "config":
		return CmdConfig, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		args.Unknown = cmd
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
// Global flags are only recognised before the command word.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--offline":
			args.Offline = true
		case arg == "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")
		default:
			return argv[i:], args
		}
	}
	return nil, args
}

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime carries the collaborators command handlers share.
type Runtime struct {
	Config *config.Config
	// App is nil for commands that do not need profile or transcript state.
	App *app.App
	Fs  afero.Fs
	Out io.Writer
	Err io.Writer

	// Network and CacheStorage override the offline worker's collaborators.
	// Nil means a real HTTP client and SQLite storage in the data dir.
	Network      offline.Fetcher
	CacheStorage offline.CacheStorage

	// ConfigPath overrides where config set writes. Empty means the
	// default TOML path.
	ConfigPath string
}

// NewRuntime returns a runtime bound to the process's stdio and filesystem.
func NewRuntime(cfg *config.Config, a *app.App) *Runtime {
	return &Runtime{
		Config: cfg,
		App:    a,
		Fs:     afero.NewOsFs(),
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
}

// Run dispatches every command except the TUI, which the caller runs.
func Run(ctx context.Context, rt *Runtime, cmd Command, args Args) error {
	switch cmd {
	case CmdChat:
		return HandleChat(ctx, rt, args)
	case CmdProfile:
		return HandleProfile(rt, args)
	case CmdTranscript:
		return HandleTranscript(rt, args)
	case CmdCache:
		return HandleCache(ctx, rt, args)
	case CmdServe:
		return HandleServe(ctx, rt, args)
	case CmdConfig:
		return HandleConfig(rt, args)
	case CmdVersion:
		PrintVersion(rt.Out)
		return nil
	case CmdHelp:
		PrintUsage(rt.Out)
		if args.Unknown != "" {
			return NewValidationErrorWithExample("command", args.Unknown, "unknown command", "mediguard help")
		}
		return nil
	default:
		return fmt.Errorf("command %s is not handled here", cmd)
	}
}

func (rt *Runtime) requireApp(command string) (*app.App, error) {
	if rt.App == nil {
		return nil, NewCommandError(command, "open", "application state is unavailable", nil)
	}
	return rt.App, nil
}
