// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// SCREENS
// =============================================================================

// AppScreen selects which view a front end renders.
type AppScreen string

const (
	ScreenDashboard AppScreen = "dashboard"
	ScreenChat      AppScreen = "chat"
	ScreenEmergency AppScreen = "emergency"
	ScreenCredits   AppScreen = "credits"
	ScreenSettings  AppScreen = "settings"
)

// Screens lists every screen in navigation order.
var Screens = []AppScreen{ScreenDashboard, ScreenChat, ScreenEmergency, ScreenCredits, ScreenSettings}

// ParseScreen parses a screen name, case-insensitively.
func ParseScreen(s string) (AppScreen, error) {
	want := AppScreen(strings.ToLower(strings.TrimSpace(s)))
	for _, sc := range Screens {
		if sc == want {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown screen %q", s)
}

// =============================================================================
// LANGUAGES
// =============================================================================

// Language is a supported display locale.
type Language struct {
	Code string
	Name string // native name
}

const (
	DefaultLanguage = "en"
	// HindiLanguage is the locale switched on by the hindi effect trigger.
	HindiLanguage = "hi"
)

// Languages lists the supported display locales.
var Languages = []Language{
	{"en", "English"}, {"es", "Español"}, {"hi", "हिंदी"}, {"te", "తెలుగు"},
	{"ta", "தமிழ்"}, {"kn", "ಕನ್ನಡ"}, {"ml", "മലയാളം"}, {"mr", "मराठी"},
	{"gu", "ગુજરાતી"}, {"pa", "ਪੰਜਾਬੀ"}, {"bn", "বাংলা"}, {"ur", "اردو"},
	{"or", "ଓଡ଼ିଆ"}, {"as", "অসমীয়া"}, {"mai", "मैथिली"}, {"sat", "संथाली"},
	{"ks", "कश्मीरी"}, {"ne", "नेपाली"}, {"kok", "कोंकणी"}, {"sd", "सिंधी"},
	{"doi", "डोगरी"}, {"mni", "मणिपुरी"}, {"bo", "बोडो"}, {"sa", "संस्कृत"},
}

// LookupLanguage finds a supported locale by code.
func LookupLanguage(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}
