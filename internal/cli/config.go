// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Change a value in config.toml
//   keys                List all keys
//   path                Show configuration file path
//   reset --confirm     Reset config.toml to defaults
//
// Examples:
//   pmassist config set backend.url https://assist.example.org
//   pmassist config set identity.user_id u-42
//   pmassist config set ui.show_scores false
//   pmassist config get storage.backend

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/pmassist-tui/internal/config"
)

// secretKeys are masked in show and get output.
var secretKeys = map[string]bool{
	"identity.user_id": true,
}

// RunConfig dispatches the config subcommands.
func RunConfig(app *App, args Args) error {
	p := args.Flags
	switch sub := p.Positional(0); sub {
	case "", "show":
		return configShow(app, args)
	case "get":
		return configGet(app, args, p.Positional(1))
	case "set":
		return configSet(app, args, p.Positional(1), JoinPositionalArgs(p, 2))
	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Fprintln(app.Out, key)
		}
		return nil
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Write(app.Out)
		}
		fmt.Fprintln(app.Out, path)
		return nil
	case "reset":
		if err := app.RequireConfirmation(p.AnyBool("confirm", "y"), "reset the configuration", args.JSON); err != nil {
			return err
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Fprintln(app.Err, app.style(SuccessStyle, "Configuration reset"))
		return nil
	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", sub), Usage: "pmassist config [show|get|set|keys|path|reset]"}
	}
}

func configShow(app *App, args Args) error {
	values := make(map[string]interface{}, len(config.GetAllKeys()))
	for _, key := range config.GetAllKeys() {
		v, err := app.Config.Get(key)
		if err != nil {
			return err
		}
		values[key] = maskIfSecret(key, v)
	}

	if args.JSON {
		return NewJSONResponse("config show", values).Write(app.Out)
	}
	fmt.Fprintln(app.Out, app.style(TitleStyle, "pmassist configuration"))
	for _, key := range config.GetAllKeys() {
		fmt.Fprintf(app.Out, "  %-28s %v\n", key, values[key])
	}
	return nil
}

func configGet(app *App, args Args, key string) error {
	if key == "" {
		return ErrMissingArgument("key", "pmassist config get <key>")
	}
	v, err := app.Config.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error(), Usage: "pmassist config keys"}
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": v}).Write(app.Out)
	}
	fmt.Fprintln(app.Out, v)
	return nil
}

// configSet edits the file config only, so environment overrides in effect
// for this run are never written back.
func configSet(app *App, args Args, key, value string) error {
	if key == "" {
		return ErrMissingArgument("key", "pmassist config set <key> <value>")
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error(), Usage: "pmassist config keys"}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{"key": key, "path": path}).Write(app.Out)
	}
	if !args.Quiet {
		fmt.Fprintf(app.Err, "%s %s = %v\n", app.style(SuccessStyle, "Set"), key, maskIfSecret(key, value))
	}
	return nil
}

func maskIfSecret(key string, v interface{}) interface{} {
	if s, ok := v.(string); ok && secretKeys[key] && s != "" {
		if len(s) <= 4 {
			return "****"
		}
		return s[:2] + "****" + s[len(s)-2:]
	}
	return v
}
