// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - run the offline proxy.
//
// Command: serve [--listen ADDR] [--origin URL]
//
// Brings the cache worker up (resume or install) and serves the origin
// through it until interrupted. A failed install is logged and the proxy
// still starts, falling through to the network.

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/mediguard/internal/logging"
	"github.com/jeranaias/mediguard/internal/server"
)

// ShutdownTimeout bounds graceful shutdown of the proxy.
const ShutdownTimeout = 5 * time.Second

// HandleServe runs the proxy until ctx is cancelled.
func HandleServe(ctx context.Context, rt *Runtime, args Args) (err error) {
	p := NewArgParser(args.Raw)
	cfg := rt.Config.Clone()
	if v := p.Flag("listen"); v != "" {
		cfg.Offline.Listen = v
	}
	if v := p.Flag("origin"); v != "" {
		cfg.Offline.Origin = v
	}

	srt := *rt
	srt.Config = cfg
	w, _, closer, err := srt.openWorker(ctx)
	if err != nil {
		return NewCommandError("serve", "start", "could not open offline cache", err)
	}
	defer func() {
		if cerr := closer(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	logger := logging.New("server")
	if err := w.Start(ctx); err != nil {
		logger.Printf("WORKER_START_FAILED | error=%v", err)
		if !args.Quiet {
			fmt.Fprintf(rt.Err, "%s offline cache unavailable: %v\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	srv, err := server.New(w, cfg.Offline.Origin, server.Config{
		Addr:         cfg.Offline.Listen,
		AppVersion:   Version,
		RateLimitRPS: cfg.Offline.RateLimitRPS,
		RateBurst:    cfg.Offline.RateBurst,
		Logger:       logger,
	})
	if err != nil {
		return NewCommandError("serve", "start", "bad server configuration", err)
	}

	if !args.Quiet {
		fmt.Fprintf(rt.Out, "%s serving %s on http://%s (cache %s, %s)\n",
			SuccessStyle.Render("MediGuard"), cfg.Offline.Origin, cfg.Offline.Listen, w.Version(), w.State())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return NewCommandError("serve", "listen", "server stopped", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("serve", "shutdown", "graceful shutdown failed", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return NewCommandError("serve", "listen", "server stopped", err)
	}
	return nil
}
