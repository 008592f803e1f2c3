// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the bubbletea chat screen.
//
// It renders the transcript, forwards typed messages to the chat session
// and maps slash commands to presentation events:
//
//	/mono /neon /countdown /thanks /hindi /clear   effects
//	/dark                                           toggle light/dark
//	/signout /reset                                 profile and transcript
//	/image <path> [question]                        attach an image
//	/export [markdown|json]                         write the transcript
//
// Presentation changes made elsewhere (the countdown ticker, a profile
// reload) reach the model through a coalescing notifier so the controller
// never blocks on the UI loop.
package chat
