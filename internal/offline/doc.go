// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline implements the installable offline cache: a worker that
// intercepts resource fetches and serves them from a versioned cache
// generation.
//
// # Lifecycle
//
//	parsed -> installing -> installed -> activating -> activated
//	                    \-> redundant (install failed)
//
// Install fetches every manifest URL and stores them all in the generation
// named by the version tag, or stores nothing: one failed fetch or non-2xx
// response fails the whole install. A successful install requests
// immediate activation (skip waiting).
//
// Activate deletes every generation whose name is not the current version,
// then claims the open clients.
//
// # Fetch Policy
//
// Once active, GET requests are served cache-first with no revalidation.
// A miss goes to the network exactly once and the response is returned
// untouched. Nothing fetched at runtime is written back to the cache, and
// network errors reach the caller unchanged.
//
// # Usage
//
//	w, err := offline.NewWorker(offline.DefaultConfig("http://localhost:8080"),
//	    offline.NewMemoryStorage(), offline.NewHTTPFetcher(nil))
//	if err := w.Start(ctx); err != nil {
//	    log.Printf("install failed: %v", err)
//	}
//	resp, err := w.Fetch(ctx, req)
package offline
