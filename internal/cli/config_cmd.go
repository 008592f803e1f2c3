// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - configuration commands.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)     Print the effective configuration (secrets redacted)
//   get KEY            Print one value, e.g. offline.origin
//   set KEY VALUE      Validate and save one value to config.toml
//   keys               List every settable key
//   path               Print the config file path

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jeranaias/mediguard/internal/config"
)

// secretKeys are redacted by get and show.
var secretKeys = map[string]bool{
	"chat.api_key": true,
}

// HandleConfig dispatches config subcommands.
func HandleConfig(rt *Runtime, args Args) error {
	p := NewArgParser(args.Raw)

	switch p.Subcommand() {
	case "", "show":
		if args.JSON {
			return printJSON(rt.Out, "config show", redactedConfig(rt.Config))
		}
		fmt.Fprintln(rt.Out, TitleStyle.Render("MediGuard configuration"))
		fmt.Fprintln(rt.Out, RenderSeparator())
		fmt.Fprintln(rt.Out, rt.Config.String())
		return nil

	case "get":
		key := strings.ToLower(p.Positional(1))
		if key == "" {
			return ErrMissingArgument("key", "mediguard config get offline.origin")
		}
		v, err := rt.Config.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		if secretKeys[key] {
			v = maskSecret(fmt.Sprint(v))
		}
		if args.JSON {
			return printJSON(rt.Out, "config get", map[string]any{"key": key, "value": v})
		}
		fmt.Fprintln(rt.Out, formatValue(v))
		return nil

	case "set":
		key, value := strings.ToLower(p.Positional(1)), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.Positional(2) == "" {
			return ErrMissingArgument("key and value", "mediguard config set offline.origin http://localhost:3000")
		}
		path, err := rt.configPath()
		if err != nil {
			return err
		}
		// Edit the file's own values so environment overrides are not
		// written back to disk.
		next, err := loadFileConfig(path)
		if err != nil {
			return NewCommandError("config", "set", "could not read config file", err)
		}
		if err := next.Set(key, value); err != nil {
			return NewValidationError("key", key, err.Error())
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(next, path); err != nil {
			return NewCommandError("config", "set", "could not save config", err)
		}
		_ = rt.Config.Set(key, value)
		if args.JSON {
			return printJSON(rt.Out, "config set", map[string]string{"key": key, "path": path})
		}
		fmt.Fprintf(rt.Out, "%s %s saved to %s\n", SuccessStyle.Render("OK"), key, path)
		return nil

	case "keys":
		keys := config.GetAllKeys()
		if args.JSON {
			return printJSON(rt.Out, "config keys", keys)
		}
		for _, k := range keys {
			fmt.Fprintln(rt.Out, k)
		}
		return nil

	case "path":
		path, err := rt.configPath()
		if err != nil {
			return err
		}
		if args.JSON {
			return printJSON(rt.Out, "config path", map[string]string{"path": path})
		}
		fmt.Fprintln(rt.Out, path)
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", p.Subcommand(), "unknown config subcommand", "mediguard config show")
	}
}

func (rt *Runtime) configPath() (string, error) {
	if rt.ConfigPath != "" {
		return rt.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// loadFileConfig reads path without environment overrides. A missing file
// yields the defaults.
func loadFileConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func redactedConfig(c *config.Config) *config.Config {
	out := c.Clone()
	if out.Chat.APIKey != "" {
		out.Chat.APIKey = maskSecret(out.Chat.APIKey)
	}
	return out
}

func formatValue(v any) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}
