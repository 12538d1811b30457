// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the pmassist command line.
//
// # Key Types
//
//   - Command: Enumeration of all CLI commands
//   - Args: Parsed global flags plus an ArgParser for the command's own flags
//   - App: The configured collaborators a command runs against
//   - ChatSession: The interactive REPL around a session controller
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	app := cli.NewApp(cfg, drafts)
//	if err := cli.Run(ctx, app, cmd, args); err != nil {
//	    app.DisplayError(err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
//   - ask: One question, streamed to stdout
//   - chat: Interactive REPL with slash commands
//   - list, show, rename, favorite, delete, share: conversation management
//   - config: Inspect and edit ~/.pmassist/config.toml
//
// All commands support --json for scripting.
package cli
