// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across mediguard.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe write (temp file, fsync, rename) on any afero.Fs
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight: display-width aware helpers for terminal tables
//
// # Usage
//
//	fs := afero.NewOsFs()
//	err := util.AtomicWriteFile(fs, path, data, 0600)
//
//	display := util.TruncateWidth(preview, 40)
package util
