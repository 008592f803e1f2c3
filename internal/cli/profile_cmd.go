// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// profile_cmd.go - medical profile commands.
//
// Command: profile [subcommand]
//
// Subcommands:
//   show (default)     Print the profile (the API key is masked)
//   set [flags]        Create or update fields; unset flags keep their value
//   signout            Remove the profile from this device
//
// Examples:
//   mediguard profile set --name "Asha Rao" --email asha@example.com --age 62
//   mediguard profile set --kidney Impaired --meds "metformin 500mg"
//   mediguard profile set --contact1 "Ravi:+91 98450 00000" --color "#7c3aed"

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/mediguard/internal/model"
)

// HandleProfile dispatches profile subcommands.
func HandleProfile(rt *Runtime, args Args) error {
	a, err := rt.requireApp("profile")
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)

	switch p.Subcommand() {
	case "", "show":
		return showProfile(rt, a.Profile().Current(), args.JSON)
	case "set", "edit":
		next, err := applyProfileFlags(a.Profile().Current(), p)
		if err != nil {
			return err
		}
		if err := a.Profile().Set(next); err != nil {
			return NewCommandError("profile", "set", "could not save profile", err)
		}
		if !args.Quiet && !args.JSON {
			fmt.Fprintln(rt.Out, SuccessStyle.Render("Profile saved."))
		}
		return showProfile(rt, a.Profile().Current(), args.JSON)
	case "signout", "sign-out", "logout":
		if err := a.Profile().SignOut(); err != nil {
			return NewCommandError("profile", "signout", "could not remove profile", err)
		}
		if args.JSON {
			return printJSON(rt.Out, "profile signout", map[string]bool{"signedIn": false})
		}
		fmt.Fprintln(rt.Out, SuccessStyle.Render("Signed out."))
		return nil
	default:
		return NewValidationErrorWithExample("subcommand", p.Subcommand(), "unknown profile subcommand", "mediguard profile show")
	}
}

// applyProfileFlags returns a copy of cur with every given flag applied.
// A nil cur starts a new profile, which needs --name.
func applyProfileFlags(cur *model.UserProfile, p *ArgParser) (*model.UserProfile, error) {
	next := cur.Clone()
	if next == nil {
		name, _ := p.Lookup("name")
		if strings.TrimSpace(name) == "" {
			return nil, ErrMissingArgument("name", `mediguard profile set --name "Asha Rao" --email asha@example.com`)
		}
		next = model.NewProfile("", "")
	}

	text := map[string]*string{
		"name":     &next.Name,
		"email":    &next.Email,
		"age":      &next.Age,
		"meds":     &next.CurrentMeds,
		"language": &next.Language,
		"color":    &next.ThemeColor,
		"fda-key":  &next.OpenFDAKey,
	}
	for flag, field := range text {
		if v, ok := p.Lookup(flag); ok {
			*field = strings.TrimSpace(v)
		}
	}

	if v, ok := p.Lookup("gender"); ok {
		next.Gender = model.Gender(titleCase(v))
	}
	if v, ok := p.Lookup("kidney"); ok {
		next.KidneyFunction = model.OrganFunction(titleCase(v))
	}
	if v, ok := p.Lookup("liver"); ok {
		next.LiverFunction = model.OrganFunction(titleCase(v))
	}
	for i, flag := range []string{"contact1", "contact2"} {
		if v, ok := p.Lookup(flag); ok {
			next.Contacts[i] = parseContact(v)
		}
	}

	if next.Language != "" {
		if _, ok := model.LookupLanguage(next.Language); !ok {
			return nil, NewValidationError("language", next.Language, "unsupported language code")
		}
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// parseContact splits "Name:Number". A value without a colon is a number.
func parseContact(s string) model.EmergencyContact {
	name, number, ok := strings.Cut(s, ":")
	if !ok {
		return model.EmergencyContact{Number: strings.TrimSpace(s)}
	}
	return model.EmergencyContact{Name: strings.TrimSpace(name), Number: strings.TrimSpace(number)}
}

// titleCase maps "impaired" to "Impaired" so enum flags are case-insensitive.
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// maskSecret keeps the last four characters of a key.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

func showProfile(rt *Runtime, p *model.UserProfile, jsonMode bool) error {
	if jsonMode {
		if p != nil {
			p.OpenFDAKey = maskSecret(p.OpenFDAKey)
		}
		return printJSON(rt.Out, "profile show", p)
	}
	if p == nil {
		fmt.Fprintln(rt.Out, DimStyle.Render("Not signed in. Create a profile with: mediguard profile set --name NAME"))
		return nil
	}

	fmt.Fprintln(rt.Out, TitleStyle.Render("MediGuard profile"))
	fmt.Fprintln(rt.Out, RenderSeparator())
	rows := [][2]string{
		{"Name", p.Name},
		{"Email", p.Email},
		{"Age", p.Age},
		{"Gender", string(p.Gender)},
		{"Kidney function", string(p.KidneyFunction)},
		{"Liver function", string(p.LiverFunction)},
		{"Current meds", p.CurrentMeds},
	}
	for i, c := range p.Contacts {
		rows = append(rows, [2]string{fmt.Sprintf("Contact %d", i+1), strings.TrimSpace(c.Name + " " + c.Number)})
	}
	lang := p.Language
	if l, ok := model.LookupLanguage(lang); ok {
		lang = l.Name + " (" + l.Code + ")"
	}
	rows = append(rows,
		[2]string{"Language", lang},
		[2]string{"Theme color", p.Accent()},
		[2]string{"OpenFDA key", maskSecret(p.OpenFDAKey)},
	)
	for _, r := range rows {
		fmt.Fprintln(rt.Out, RenderField(r[0], r[1]))
	}
	return nil
}
