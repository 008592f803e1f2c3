// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the stores, the
// presentation controller and the chat collaborator.
//
// # Key Types
//
//   - UserProfile: the signed-in user's medical profile (nil means guest)
//   - EmergencyContact: one of exactly two contacts held by a profile
//   - ChatMessage: one transcript entry with role, text, time and optional image
//   - AppScreen: the view selector consumed by the front ends
//   - Language: a supported display locale
//
// # Wire Format
//
// JSON field names match the mobile web app (name, kidneyFunction,
// openFdaKey, groundingSources, ...) so a profile or transcript exported
// from either side loads in the other.
//
// # Usage
//
//	p := &model.UserProfile{Name: "Asha", Gender: model.GenderFemale}
//	accent := p.Accent() // "#006a6a" until ThemeColor is set
//
//	msg := model.NewUserMessage("Is ibuprofen safe with lisinopril?")
package model
