// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles turns presentation state into lipgloss styles.
//
// The presentation controller writes classes and properties to a Document.
// Theme.Apply reads that snapshot back, so the terminal shows exactly what
// the controller derived: the accent from --primary-color, dark mode from
// the root "dark" class and the monochrome and neon effects from the body
// classes.
package styles
