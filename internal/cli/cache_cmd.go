// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cache_cmd.go - offline cache commands.
//
// Command: cache [subcommand]
//
// Subcommands:
//   status (default)   Show the worker state and stored generations
//   install            Fetch every manifest entry, then activate
//   start              Resume a complete stored generation or install one
//   clear              Delete every stored generation
//
// The cache lives in offline.db under the data dir and is shared with
// "mediguard serve".

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/jeranaias/mediguard/internal/logging"
	"github.com/jeranaias/mediguard/internal/offline"
)

// openWorker builds an offline worker from the runtime config. The returned
// closer releases the cache storage.
func (rt *Runtime) openWorker(ctx context.Context) (*offline.Worker, offline.CacheStorage, func() error, error) {
	oc := rt.Config.Offline
	cfg := offline.DefaultConfig(oc.Origin)
	cfg.Version = oc.CacheVersion
	if len(oc.Manifest) > 0 {
		cfg.Manifest = slices.Clone(oc.Manifest)
	}
	if oc.InstallAttempts > 0 {
		cfg.Attempts = oc.InstallAttempts
	}
	if oc.InstallConcurrency > 0 {
		cfg.Concurrency = oc.InstallConcurrency
	}

	store := rt.CacheStorage
	closer := func() error { return nil }
	if store == nil {
		dir, err := rt.Config.DataDir()
		if err != nil {
			return nil, nil, nil, err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, nil, nil, fmt.Errorf("create data directory: %w", err)
		}
		s, err := offline.NewSQLiteStorage(ctx, filepath.Join(dir, "offline.db"))
		if err != nil {
			return nil, nil, nil, err
		}
		store, closer = s, s.Close
	}

	network := rt.Network
	if network == nil {
		network = offline.NewHTTPFetcher(nil)
	}

	w, err := offline.NewWorker(cfg, store, network, offline.WithLogger(logging.New("offline")))
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	return w, store, closer, nil
}

// HandleCache dispatches cache subcommands.
func HandleCache(ctx context.Context, rt *Runtime, args Args) (err error) {
	p := NewArgParser(args.Raw)
	sub := p.Subcommand()
	switch sub {
	case "", "status", "install", "start", "clear":
	default:
		return NewValidationErrorWithExample("subcommand", sub, "unknown cache subcommand", "mediguard cache status")
	}

	w, store, closer, err := rt.openWorker(ctx)
	if err != nil {
		return NewCommandError("cache", "open", "could not open offline cache", err)
	}
	defer func() {
		if cerr := closer(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	switch sub {
	case "install":
		if err := w.Install(ctx); err != nil {
			return NewCommandError("cache", "install", "install failed, nothing was stored", err)
		}
		if err := w.Activate(ctx); err != nil {
			return NewCommandError("cache", "install", "activation failed", err)
		}
	case "start":
		if err := w.Start(ctx); err != nil {
			return NewCommandError("cache", "start", "could not bring the cache up", err)
		}
	case "clear":
		n, err := clearGenerations(ctx, store)
		if err != nil {
			return NewCommandError("cache", "clear", "could not delete generations", err)
		}
		if args.JSON {
			return printJSON(rt.Out, "cache clear", map[string]int{"deleted": n})
		}
		fmt.Fprintf(rt.Out, "%s %d generations deleted.\n", SuccessStyle.Render("OK"), n)
		return nil
	}

	return showCacheStatus(ctx, rt, w, store, args.JSON)
}

// cacheReport is the status output.
type cacheReport struct {
	offline.Status
	Stored   bool     `json:"stored"`
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

func buildCacheReport(ctx context.Context, w *offline.Worker, store offline.CacheStorage) (cacheReport, error) {
	st, err := w.Status(ctx)
	if err != nil {
		return cacheReport{}, err
	}
	r := cacheReport{Status: st}

	ok, err := store.Has(ctx, st.Version)
	if err != nil || !ok {
		r.Missing = st.Manifest
		return r, err
	}
	r.Stored = true

	gen, err := store.Open(ctx, st.Version)
	if err != nil {
		return r, err
	}
	keys, err := gen.Keys(ctx)
	if err != nil {
		return r, err
	}
	for _, u := range st.Manifest {
		if !slices.Contains(keys, u) {
			r.Missing = append(r.Missing, u)
		}
	}
	r.Complete = len(r.Missing) == 0
	return r, nil
}

func showCacheStatus(ctx context.Context, rt *Runtime, w *offline.Worker, store offline.CacheStorage, jsonMode bool) error {
	r, err := buildCacheReport(ctx, w, store)
	if err != nil {
		return NewCommandError("cache", "status", "could not read cache", err)
	}
	if jsonMode {
		return printJSON(rt.Out, "cache status", r)
	}

	fmt.Fprintln(rt.Out, TitleStyle.Render("Offline cache"))
	fmt.Fprintln(rt.Out, RenderSeparator())
	fmt.Fprintln(rt.Out, RenderField("Version", r.Version))
	fmt.Fprintln(rt.Out, RenderField("Worker", RenderStatus(r.State.String())))
	stored := "no"
	switch {
	case r.Complete:
		stored = "complete"
	case r.Stored:
		stored = fmt.Sprintf("incomplete (%d missing)", len(r.Missing))
	}
	fmt.Fprintln(rt.Out, RenderField("Stored", stored))
	fmt.Fprintln(rt.Out, RenderField("Manifest", fmt.Sprintf("%d entries", len(r.Manifest))))
	if r.LastError != "" {
		fmt.Fprintln(rt.Out, RenderField("Last error", ErrorStyle.Render(r.LastError)))
	}

	fmt.Fprintln(rt.Out, SectionStyle.Render("Generations"))
	if len(r.Generations) == 0 {
		fmt.Fprintln(rt.Out, DimStyle.Render("  none"))
	}
	for _, g := range r.Generations {
		tag := "stale"
		if g == r.Version {
			tag = "current"
		}
		fmt.Fprintf(rt.Out, "  %s %s\n", FitColumn(g, 32), RenderStatus(tag))
	}
	for _, u := range r.Missing {
		fmt.Fprintln(rt.Out, DimStyle.Render("  missing "+u))
	}
	if r.LastError == "" && !r.Complete {
		fmt.Fprintln(rt.Out, DimStyle.Render("\nRun `mediguard cache install` to fetch the app for offline use."))
	}
	return nil
}

func clearGenerations(ctx context.Context, store offline.CacheStorage) (int, error) {
	names, err := store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range names {
		ok, err := store.Delete(ctx, name)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}
