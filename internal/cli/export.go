// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/export"
	"github.com/jeranaias/pmassist-tui/internal/model"
)

// ExportData is the JSON form of the export command.
type ExportData struct {
	ID       string `json:"id,omitempty"`
	Path     string `json:"path"`
	Format   string `json:"format"`
	Messages int    `json:"messages"`
}

// RunExport saves a conversation to a Markdown or JSON file.
//
// Usage:
//
//	pmassist export 17
//	pmassist export 17 --format json -o sprint.json
//	pmassist export --local
func RunExport(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	opts := export.DefaultOptions()
	opts.IncludeScores = !p.BoolFlag("no-scores")

	format := p.FlagOrDefault("format", "md")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return &UsageError{Message: err.Error(), Usage: "pmassist export <id> --format md|json"}
	}

	t, err := loadTranscript(ctx, app, args)
	if err != nil {
		return err
	}

	output := p.Flag("output")
	if output == "" {
		output = p.Flag("o")
	}
	path, err := export.ExportToFile(t, exporter, output, opts)
	if err != nil {
		return err
	}
	log.Debug().Str("path", path).Str("format", format).Int("messages", len(t.Messages)).Msg("conversation exported")

	if args.JSON {
		return NewJSONResponse("export", ExportData{
			ID:       t.ID,
			Path:     path,
			Format:   exporter.FileExtension()[1:],
			Messages: len(t.Messages),
		}).Write(app.Out)
	}
	if args.Quiet {
		fmt.Fprintln(app.Out, path)
		return nil
	}
	fmt.Fprintln(app.Out, app.style(SuccessStyle, fmt.Sprintf("Exported %d messages to %s", len(t.Messages), path)))
	return nil
}

// loadTranscript reads the conversation the export flags point at.
func loadTranscript(ctx context.Context, app *App, args Args) (*export.Transcript, error) {
	p := args.Flags
	t := &export.Transcript{ExportedAt: time.Now()}

	if p.BoolFlag("local") {
		msgs, err := app.Drafts.LoadTranscript()
		if err != nil {
			return nil, err
		}
		t.Title = "Local chat"
		t.Messages = msgs
		return t, nil
	}

	id := p.Positional(0)
	if id == "" {
		id = args.Shared
	}
	if id == "" {
		return nil, ErrMissingArgument("id", "pmassist export <id> [--format md|json] [-o FILE]")
	}
	t.ID = id
	t.ShareURL = app.Repo.ShareLink(id)

	var (
		msgs []model.Message
		err  error
	)
	if p.BoolFlag("public") || args.Shared != "" || !app.Identity.Valid() {
		msgs, err = app.Repo.LoadPublic(ctx, id)
	} else {
		msgs, err = app.Repo.LoadMessages(ctx, id, app.Identity)
		if err == nil {
			// USABILITY: The title is only known from the list; a failed
			// refresh still exports under the default title.
			if _, rerr := app.Repo.Refresh(ctx, app.Identity); rerr == nil {
				if c, ok := app.Repo.Get(id); ok {
					t.Title = c.DisplayTitle()
				}
			}
		}
	}
	if err != nil {
		return nil, err
	}
	t.Messages = msgs
	return t, nil
}
