// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package presentation owns the theme mode and the transient visual effect
// state, and derives the environment attributes a renderer consumes.
//
// # State Machine
//
// Effects are mutually exclusive: none, monochrome, neon, countdown, modal.
//
//	Trigger(monochrome|neon|modal)  -> that effect, from any state
//	Trigger(countdown)              -> countdown, count reset to 4
//	Trigger(clear)                  -> none (and locale hi -> en)
//	Trigger(hindi)                  -> locale hi, effect unchanged
//	Dismiss()                       -> modal -> none
//
// While in countdown a 1s ticker decrements the count. At zero the effect
// returns to none and a one-second flash starts. Leaving countdown any other
// way stops the ticker; a tick that races the transition is discarded.
//
// # Environment
//
// After every transition, inside the same critical section, the controller
// removes dark, theme-bw and theme-neon, then adds the classes for the
// current state, and sets --primary-color and the theme-color meta (black in
// dark mode, the accent otherwise). Applying a state twice leaves the same
// attributes as applying it once.
package presentation
