// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/text/language"
)

// DefaultAccent is the accent color used when no profile or no ThemeColor is set.
const DefaultAccent = "#006a6a"

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Gender is the self-reported gender on a profile.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderOther   Gender = "Other"
	GenderUnknown Gender = "Unknown"
)

// Valid reports whether g is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// OrganFunction describes kidney or liver function.
type OrganFunction string

const (
	OrganNormal   OrganFunction = "Normal"
	OrganImpaired OrganFunction = "Impaired"
	OrganUnknown  OrganFunction = "Unknown"
)

// Valid reports whether f is one of the known values.
func (f OrganFunction) Valid() bool {
	switch f {
	case OrganNormal, OrganImpaired, OrganUnknown:
		return true
	}
	return false
}

// =============================================================================
// PROFILE
// =============================================================================

// EmergencyContact is a name and phone number. Both may be empty.
type EmergencyContact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// UserProfile is the durable medical profile.
//
// Contacts is a fixed-size array: a profile always carries exactly two
// contacts. Decoding a shorter JSON array leaves the missing slots empty and
// a longer one is truncated.
//
// Language, OpenFDAKey and ThemeColor are optional; empty means unset.
type UserProfile struct {
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Age            string              `json:"age"`
	Gender         Gender              `json:"gender"`
	KidneyFunction OrganFunction       `json:"kidneyFunction"`
	LiverFunction  OrganFunction       `json:"liverFunction"`
	CurrentMeds    string              `json:"currentMeds"`
	Contacts       [2]EmergencyContact `json:"contacts"`
	Language       string              `json:"language,omitempty"`
	OpenFDAKey     string              `json:"openFdaKey,omitempty"`
	ThemeColor     string              `json:"themeColor,omitempty"`
}

// NewProfile returns a profile with every enum set to its Unknown value.
func NewProfile(name, email string) *UserProfile {
	return &UserProfile{
		Name:           name,
		Email:          email,
		Gender:         GenderUnknown,
		KidneyFunction: OrganUnknown,
		LiverFunction:  OrganUnknown,
	}
}

// Accent returns the profile's theme color, or DefaultAccent when the
// profile is nil or has none.
func (p *UserProfile) Accent() string {
	if p == nil || p.ThemeColor == "" {
		return DefaultAccent
	}
	return p.ThemeColor
}

// Clone returns an independent copy. Clone of nil is nil.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// =============================================================================
// VALIDATION
// =============================================================================

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ErrInvalidProfile is wrapped by every error returned from Validate.
var ErrInvalidProfile = errors.New("invalid profile")

// Validate checks enum fields, the theme color and the language tag.
// Empty enum values are accepted so partially filled drafts can be saved.
func (p *UserProfile) Validate() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Gender != "" && !p.Gender.Valid() {
		errs = append(errs, fmt.Errorf("%w: gender %q", ErrInvalidProfile, p.Gender))
	}
	if p.KidneyFunction != "" && !p.KidneyFunction.Valid() {
		errs = append(errs, fmt.Errorf("%w: kidneyFunction %q", ErrInvalidProfile, p.KidneyFunction))
	}
	if p.LiverFunction != "" && !p.LiverFunction.Valid() {
		errs = append(errs, fmt.Errorf("%w: liverFunction %q", ErrInvalidProfile, p.LiverFunction))
	}
	if p.ThemeColor != "" && !IsHexColor(p.ThemeColor) {
		errs = append(errs, fmt.Errorf("%w: themeColor %q is not #rgb or #rrggbb", ErrInvalidProfile, p.ThemeColor))
	}
	if p.Language != "" {
		if _, err := language.Parse(p.Language); err != nil {
			errs = append(errs, fmt.Errorf("%w: language %q: %v", ErrInvalidProfile, p.Language, err))
		}
	}
	return errors.Join(errs...)
}

// IsHexColor reports whether s is a #rgb or #rrggbb color.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}
