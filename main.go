// pmassist - a terminal client for the project-management assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/cli"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/logging"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
	"github.com/jeranaias/pmassist-tui/internal/sidebar"
	"github.com/jeranaias/pmassist-tui/internal/storage"
	"github.com/jeranaias/pmassist-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.GetExitCode(err)
	}

	cfg, err := config.Load()
	if cfg == nil {
		if !toleratesBadConfig(cmd) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return cli.ExitConfigError
		}
		cfg = config.Default()
	}
	if err != nil && !args.Quiet {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	closeLog, err := initLogging(cfg, cmd, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: logging disabled:", err)
	} else {
		defer closeLog.Close()
	}

	kv, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Storage.Backend).Msg("local store unavailable, using memory")
		kv = storage.NewMemoryKV()
	}
	defer storage.Close(kv)

	app := cli.NewApp(cfg, storage.NewDraftStore(kv))
	if err := app.ApplyArgs(args); err != nil {
		app.DisplayError(err, args.JSON)
		return cli.GetExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	log.Debug().
		Str("command", cmd.String()).
		Str("api", cfg.Backend.URL).
		Str("mode", model.DeriveMode(app.Identity, args.Shared != "").String()).
		Msg("starting")

	if cmd == cli.CmdTUI {
		err = runTUI(ctx, app, args)
	} else {
		err = cli.Run(ctx, app, cmd, args)
	}
	if err != nil {
		app.DisplayError(err, args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

// toleratesBadConfig lists commands that still run on defaults when the
// config file is invalid, so the file can be inspected and repaired.
func toleratesBadConfig(cmd cli.Command) bool {
	switch cmd {
	case cli.CmdConfig, cli.CmdHelp, cli.CmdVersion:
		return true
	}
	return false
}

// initLogging sends the TUI's logs to a file so they never draw over the
// screen. CLI commands log to stderr unless a file is configured.
func initLogging(cfg *config.Config, cmd cli.Command, args cli.Args) (io.Closer, error) {
	opts := logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		Quiet: !args.Verbose,
	}
	if args.Verbose {
		opts.Level = "debug"
	}
	if cmd == cli.CmdTUI {
		opts.File = cfg.LogPath()
	}
	return logging.Init(opts)
}

// runTUI wires the bus between the core and the full-screen interface.
func runTUI(ctx context.Context, app *cli.App, args cli.Args) error {
	if !app.Interactive || !cli.IsStdoutTTY() {
		return &cli.UsageError{
			Message: "the interactive interface needs a terminal",
			Usage:   `pmassist ask "your question" (or pmassist help)`,
		}
	}

	b := bus.New(logging.NewWatermill(log.Logger))
	defer b.Close()

	repo := app.Repo.WithNotifier(b)
	repo.OnChange(func(list []model.Conversation) {
		if err := b.Publish(bus.TopicConversations, list); err != nil {
			log.Warn().Err(err).Msg("conversation list update dropped")
		}
	})

	ctrl := session.New(session.Config{
		Streamer: app.Client,
		Repo:     repo,
		Drafts:   app.Drafts,
		Sink:     session.NewBusSink(b),
		Notifier: b,
		Identity: app.Identity,
		SharedID: args.Shared,
	})
	defer ctrl.Close()

	configPath, err := config.ConfigPathTOML()
	if err != nil {
		configPath = ""
	}

	return chat.Run(ctx, chat.Deps{
		Controller: ctrl,
		Sidebar:    sidebar.New(repo, app.Drafts),
		Repo:       repo,
		UI:         app.Config.UI,
		Identity:   app.Identity,
	}, b, configPath)
}
