// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Conversation management commands.
//
// Commands:
//   list [--useful] [--search TERM]
//   show <id> [--public]
//   rename <id> <title...>
//   favorite <id> [--off]
//   delete <id> [--confirm]
//   share <id> [--no-copy]

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// RunList prints the signed-in user's conversations.
func RunList(ctx context.Context, app *App, args Args) error {
	if err := app.requireIdentity(); err != nil {
		return err
	}
	p := args.Flags
	filter := model.FilterState{SearchTerm: p.Flag("search"), ActiveTab: model.TabAll}
	if p.BoolFlag("useful") {
		filter.ActiveTab = model.TabUseful
	}
	if filter.SearchTerm == "" && p.PositionalCount() > 0 {
		filter.SearchTerm = JoinPositionalArgs(p, 0)
	}

	all, err := app.Repo.Refresh(ctx, app.Identity)
	if err != nil {
		return err
	}
	rows := app.Repo.Filter(filter)

	if args.JSON {
		data := ListData{Filter: filter, Total: len(all), Conversations: make([]ConversationData, 0, len(rows))}
		for _, c := range rows {
			data.Conversations = append(data.Conversations, conversationData(c, app.Repo.ShareLink(c.ID)))
		}
		return NewJSONResponse("list", data).Write(app.Out)
	}

	if len(rows) == 0 {
		if len(all) == 0 {
			fmt.Fprintln(app.Out, "No conversations yet. Ask something with: pmassist ask \"...\"")
		} else {
			fmt.Fprintln(app.Out, "No conversations match.")
		}
		return nil
	}
	now := time.Now()
	for i, c := range rows {
		app.writeConversationRow(app.Out, i+1, c, now)
	}
	if !args.Quiet && len(rows) != len(all) {
		fmt.Fprintln(app.Err, app.style(DimStyle, fmt.Sprintf("%d of %d conversations", len(rows), len(all))))
	}
	return nil
}

// RunShow prints one conversation.
func RunShow(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	id := p.Positional(0)
	if id == "" {
		id = args.Shared
	}
	if id == "" {
		return ErrMissingArgument("id", "pmassist show <id> [--public]")
	}

	public := p.BoolFlag("public") || args.Shared != "" || !app.Identity.Valid()
	var (
		msgs []model.Message
		err  error
	)
	if public {
		msgs, err = app.Repo.LoadPublic(ctx, id)
	} else {
		msgs, err = app.Repo.LoadMessages(ctx, id, app.Identity)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("show", TranscriptData{ID: id, Public: public, Messages: model.CloneMessages(msgs)}).Write(app.Out)
	}
	app.writeTranscript(app.Out, msgs)
	return nil
}

// RunRename renames a conversation.
func RunRename(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	id := p.Positional(0)
	title := strings.TrimSpace(JoinPositionalArgs(p, 1))
	if id == "" || title == "" {
		return ErrMissingArgument("id and title", "pmassist rename <id> <new title>")
	}
	if err := loadList(ctx, app); err != nil {
		return err
	}
	conv, err := app.Repo.Rename(ctx, id, title, app.Identity)
	if err != nil {
		return err
	}
	return report(app, args, "rename", conv, fmt.Sprintf("Renamed %s to %q", conv.ID, conv.DisplayTitle()))
}

// RunFavorite sets or clears the useful mark.
func RunFavorite(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("id", "pmassist favorite <id> [--off]")
	}
	if err := loadList(ctx, app); err != nil {
		return err
	}
	useful := !p.BoolFlag("off")
	conv, err := app.Repo.SetUseful(ctx, id, useful, app.Identity)
	if err != nil {
		return err
	}
	msg := "Marked " + conv.ID + " useful"
	if !useful {
		msg = "Removed useful mark from " + conv.ID
	}
	return report(app, args, "favorite", conv, msg)
}

// RunDelete deletes a conversation after confirmation.
func RunDelete(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("id", "pmassist delete <id> [--confirm]")
	}
	if err := loadList(ctx, app); err != nil {
		return err
	}
	conv, ok := app.Repo.Get(id)
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, conversation.ErrUnknownConversation)
	}
	if err := app.RequireConfirmation(p.AnyBool("confirm", "y"), fmt.Sprintf("delete %q", conv.DisplayTitle()), args.JSON); err != nil {
		return err
	}
	if err := app.Repo.Delete(ctx, id, app.Identity); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("delete", map[string]string{"id": id}).Write(app.Out)
	}
	return nil
}

// RunShare prints a conversation's public link and copies it.
func RunShare(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	id := p.Positional(0)
	if id == "" {
		return ErrMissingArgument("id", "pmassist share <id>")
	}
	link := app.Repo.ShareLink(id)

	copied := false
	if !p.BoolFlag("no-copy") && !args.JSON {
		copied = copyToClipboard(link) == nil
	}

	if args.JSON {
		return NewJSONResponse("share", map[string]string{"id": id, "url": link}).Write(app.Out)
	}
	fmt.Fprintln(app.Out, link)
	if copied && !args.Quiet {
		fmt.Fprintln(app.Err, app.style(SuccessStyle, "Link copied"))
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// loadList requires an identity and fetches the list mutations operate on.
func loadList(ctx context.Context, app *App) error {
	if err := app.requireIdentity(); err != nil {
		return err
	}
	_, err := app.Repo.Refresh(ctx, app.Identity)
	return err
}

func report(app *App, args Args, command string, conv model.Conversation, text string) error {
	if args.JSON {
		return NewJSONResponse(command, conversationData(conv, app.Repo.ShareLink(conv.ID))).Write(app.Out)
	}
	if !args.Quiet {
		fmt.Fprintln(app.Out, text)
	}
	return nil
}
