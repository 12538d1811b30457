// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for pmassist.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Assistant API location, timeouts and pacing
//   - IdentityConfig: The signed-in user sent as User-Id
//   - StorageConfig: Where local drafts live
//   - Watcher: Reloads the config when the file changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PMASSIST_*)
//   - ~/.pmassist/config.toml (PMASSIST_HOME moves the directory)
//   - ~/.pmassist/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	client := api.NewClient(cfg.Backend.URL).WithTimeout(cfg.Timeout())
//	identity := cfg.UserIdentity()
package config
