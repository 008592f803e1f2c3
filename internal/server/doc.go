// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the offline cache worker over HTTP.
//
// Every path outside /_offline/ is proxied to the app origin through the
// worker, so pages are served cache-first once a generation is active.
//
// Endpoints:
//   - GET    /health                    - Liveness and worker state
//   - GET    /_offline/status           - Worker status and open clients
//   - POST   /_offline/install          - Install the manifest, then activate
//   - POST   /_offline/activate         - Activate an installed generation
//   - GET    /_offline/resource?url=... - Serve a cross-origin manifest entry
//   - DELETE /_offline/clients/{id}     - Forget an open page
package server
