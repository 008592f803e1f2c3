// MediGuard - offline-first medication safety assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/app"
	"github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/cli"
	"github.com/jeranaias/mediguard/internal/config"
	"github.com/jeranaias/mediguard/internal/logging"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/security"
	"github.com/jeranaias/mediguard/internal/storage"
	"github.com/jeranaias/mediguard/internal/ui"
	"github.com/jeranaias/mediguard/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()
	if err := run(cmd, args); err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(cmd cli.Command, args cli.Args) error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil && !args.Quiet {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if args.Verbose {
		cfg.Log.Verbose = true
	}
	if args.Model != "" {
		cfg.Chat.Model = args.Model
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return cli.NewCommandError("mediguard", "start", "could not open log file", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app.App
	if cmd.NeedsApp() {
		a, err = newApp(ctx, cfg, args)
		if err != nil {
			return err
		}
		defer a.Close()
	}

	if cmd == cli.CmdTUI {
		return ui.Run(ctx, a)
	}
	return cli.Run(ctx, cli.NewRuntime(cfg, a), cmd, args)
}

// newApp opens storage and builds the booted application.
func newApp(ctx context.Context, cfg *config.Config, args cli.Args) (*app.App, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, cli.NewCommandError("mediguard", "start", "could not create data directory", err)
	}
	store, err := storage.Open(storage.Options{Backend: cfg.Storage.Backend, Dir: dir})
	if err != nil {
		return nil, cli.NewCommandError("mediguard", "start", "could not open storage", err)
	}

	logger := logging.New("app")
	appCfg := app.Config{
		Storage: store,
		Logger:  logger,
		ControllerOptions: []presentation.Option{
			presentation.WithMode(styles.DetectMode(cfg.UI.Theme)),
			presentation.WithLocale(cfg.UI.Language),
			presentation.WithLogger(logging.New("presentation")),
		},
	}

	if cfg.Security.SealAPIKey {
		path, err := cfg.KeyFilePath()
		if err != nil {
			return nil, err
		}
		sealer, err := security.LoadOrCreateSealer(security.NewFileKeyStore(afero.NewOsFs(), path))
		if err != nil {
			return nil, cli.NewCommandError("mediguard", "start", "could not load sealing key", err)
		}
		appCfg.Sealer = sealer
	}

	lazy := &lazyProfile{}
	appCfg.Responder = newResponder(ctx, cfg, args, lazy, logger)

	a := app.New(appCfg)
	lazy.app = a
	a.Boot()

	if err := a.WatchStorage(ctx); err != nil && !errors.Is(err, app.ErrNoWatcher) {
		logger.Printf("WATCH_FAILED | error=%v", err)
	}
	return a, nil
}

// newResponder picks Gemini when a key is configured, the local responder
// otherwise.
func newResponder(ctx context.Context, cfg *config.Config, args cli.Args, profiles chat.ProfileSource, logger *log.Logger) chat.Responder {
	if args.Offline || cfg.Chat.Provider != config.ProviderGemini || cfg.Chat.APIKey == "" {
		return chat.LocalResponder{}
	}
	r, err := chat.NewGeminiResponder(ctx, cfg.Chat.APIKey, cfg.Chat.Model, profiles)
	if err != nil {
		logger.Printf("RESPONDER_FALLBACK | provider=gemini error=%v", err)
		return chat.LocalResponder{}
	}
	return r
}

// lazyProfile lets the responder read the profile of an app built after it.
type lazyProfile struct {
	app *app.App
}

func (l *lazyProfile) Current() *model.UserProfile {
	if l.app == nil {
		return nil
	}
	return l.app.Profile().Current()
}
