// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for pmassist.

package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdList
	CmdShow
	CmdRename
	CmdFavorite
	CmdDelete
	CmdShare
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// commandNames maps command words and aliases to commands.
var commandNames = map[string]Command{
	"tui":       CmdTUI,
	"ask":       CmdAsk,
	"a":         CmdAsk,
	"chat":      CmdChat,
	"c":         CmdChat,
	"list":      CmdList,
	"ls":        CmdList,
	"show":      CmdShow,
	"open":      CmdShow,
	"rename":    CmdRename,
	"mv":        CmdRename,
	"favorite":  CmdFavorite,
	"fav":       CmdFavorite,
	"delete":    CmdDelete,
	"rm":        CmdDelete,
	"share":     CmdShare,
	"export":    CmdExport,
	"config":    CmdConfig,
	"cfg":       CmdConfig,
	"version":   CmdVersion,
	"--version": CmdVersion,
	"-V":        CmdVersion,
	"help":      CmdHelp,
	"--help":    CmdHelp,
	"-h":        CmdHelp,
}

// String returns the canonical command word.
func (c Command) String() string {
	switch c {
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdList:
		return "list"
	case CmdShow:
		return "show"
	case CmdRename:
		return "rename"
	case CmdFavorite:
		return "favorite"
	case CmdDelete:
		return "delete"
	case CmdShare:
		return "share"
	case CmdExport:
		return "export"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "tui"
	}
}

// boolFlagsByCommand lists the value-less flags of each command.
var boolFlagsByCommand = map[Command][]string{
	CmdAsk:      {"raw"},
	CmdList:     {"useful"},
	CmdShow:     {"public"},
	CmdFavorite: {"off"},
	CmdDelete:   {"confirm", "y"},
	CmdShare:    {"no-copy"},
	CmdExport:   {"public", "local", "no-scores"},
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool   // Output in JSON format
	Quiet   bool   // Minimal output
	Verbose bool   // Debug logging
	APIURL  string // Overrides backend.url
	User    string // Overrides identity.user_id
	Shared  string // Open a shared conversation read-only

	// Command-specific flags and positionals
	Flags *ArgParser
}

const usageText = `pmassist - project management assistant in your terminal

Ask questions about project management, keep the answers, and share them.

Usage:
  pmassist                        Start the TUI (default)
  pmassist ask "question"         Ask a single question, answer streams to stdout
  pmassist chat                   Interactive chat in the terminal
  pmassist list                   List your conversations
  pmassist show <id>              Print a conversation
  pmassist rename <id> <title>    Rename a conversation
  pmassist favorite <id>          Mark a conversation useful
  pmassist delete <id>            Delete a conversation
  pmassist share <id>             Print and copy the public link
  pmassist export <id>            Save a conversation as Markdown or JSON
  pmassist config [show|get|set|keys|path]
  pmassist version

Ask:
  --conversation ID     Continue one of your conversations
  --raw                 Never render markdown

List:
  --useful              Only conversations marked useful
  --search TERM         Case-insensitive title search

Show:
  --public              Read a shared conversation without signing in

Favorite:
  --off                 Remove the useful mark

Delete:
  -y, --confirm         Skip the confirmation prompt

Share:
  --no-copy             Print the link without copying it

Export:
  --format md|json      Output format (default md)
  -o, --output FILE     Output file (default: generated name)
  --local               Export the anonymous chat kept on this machine
  --public              Export a shared conversation
  --no-scores           Omit source scores

Global Flags:
  --api URL             Backend URL (env PMASSIST_API_URL)
  --user ID             Sign in as ID (env PMASSIST_USER_ID)
  --shared ID           Open a shared conversation read-only (TUI and chat)
  --json                Output in JSON format
  -q, --quiet           Minimal output
  -v, --verbose         Debug logging

Without a user id pmassist runs anonymously: the current conversation is kept
on this machine only and the conversation list is unavailable.

Examples:
  pmassist ask "What goes into a sprint retrospective?"
  pmassist --user u-42 list --useful --search планирование
  pmassist --user u-42 delete 17 --confirm
  pmassist --shared 17

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer, jsonMode bool) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if jsonMode {
		return NewJSONResponse("version", data).Write(w)
	}
	fmt.Fprintf(w, "pmassist version %s\n", data.Version)
	fmt.Fprintf(w, "  Git commit: %s\n", data.GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", data.BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s\n", data.GoVersion, data.Platform)
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name).
// Global flags may appear before or after the command word.
func Parse(argv []string) (Command, Args, error) {
	var args Args
	cmd := CmdTUI
	found := false
	rest := make([]string, 0, len(argv))

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			rest = append(rest, argv[i:]...)
			break
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		isFlag := strings.HasPrefix(arg, "-")

		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(argv) {
				return "", &UsageError{Message: "--" + name + " needs a value"}
			}
			i++
			return argv[i], nil
		}

		switch {
		case isFlag && (name == "json"):
			args.JSON = true
		case isFlag && (name == "q" || name == "quiet"):
			args.Quiet = true
		case isFlag && (name == "v" || name == "verbose"):
			args.Verbose = true
		case isFlag && (name == "api" || name == "user" || name == "shared"):
			v, err := takeValue()
			if err != nil {
				return cmd, args, err
			}
			switch name {
			case "api":
				args.APIURL = v
			case "user":
				args.User = v
			default:
				args.Shared = v
			}
		case !found:
			c, ok := commandNames[arg]
			if !ok {
				if isFlag {
					rest = append(rest, arg)
					continue
				}
				return cmd, args, &UsageError{Message: fmt.Sprintf("unknown command %q", arg), Usage: "pmassist help"}
			}
			cmd = c
			found = true
		default:
			rest = append(rest, arg)
		}
	}

	args.Flags = NewArgParser(rest, boolFlagsByCommand[cmd]...)
	return cmd, args, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes a non-TUI command.
func Run(ctx context.Context, app *App, cmd Command, args Args) error {
	switch cmd {
	case CmdAsk:
		return RunAsk(ctx, app, args)
	case CmdChat:
		return RunChat(ctx, app, args)
	case CmdList:
		return RunList(ctx, app, args)
	case CmdShow:
		return RunShow(ctx, app, args)
	case CmdRename:
		return RunRename(ctx, app, args)
	case CmdFavorite:
		return RunFavorite(ctx, app, args)
	case CmdDelete:
		return RunDelete(ctx, app, args)
	case CmdShare:
		return RunShare(ctx, app, args)
	case CmdExport:
		return RunExport(ctx, app, args)
	case CmdConfig:
		return RunConfig(app, args)
	case CmdVersion:
		return PrintVersion(app.Out, args.JSON)
	case CmdHelp:
		PrintUsage(app.Out)
		return nil
	default:
		return fmt.Errorf("command %s is not handled by the CLI", cmd)
	}
}
