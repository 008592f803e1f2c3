// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to shareable files.
//
// # Supported Formats
//
//   - Markdown: human-readable, one section per message
//   - JSON: the stored message list, suitable for re-import
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", nil)
//	path, err := export.ExportToFile(afero.NewOsFs(), doc, exp, opts)
package export
