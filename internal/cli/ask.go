// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask [question]
//
// Examples:
//   pmassist ask "What is a burndown chart?"
//   echo "Define MVP" | pmassist ask
//   pmassist --user u-42 ask --conversation 17 "And for Kanban?"
//   pmassist ask --json "What is a sprint?"
//
// Flags:
//   --conversation ID   Continue a conversation (signed in only)
//   --raw               Stream plain text even on a terminal
//   --json              Print one JSON document when the answer is complete

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/stream"
	"github.com/jeranaias/pmassist-tui/internal/transcript"
)

// MaxStdinQuery caps a question read from a pipe.
const MaxStdinQuery = 64 * 1024

// AnswerError is a failure reported by the answer stream itself.
type AnswerError struct {
	Message string
}

func (e *AnswerError) Error() string {
	return e.Message
}

// RunAsk streams the answer to one question.
func RunAsk(ctx context.Context, app *App, args Args) error {
	p := args.Flags
	query := strings.TrimSpace(JoinPositionalArgs(p, 0))
	if query == "" && !app.Interactive {
		data, err := io.ReadAll(io.LimitReader(app.In, MaxStdinQuery))
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		return ErrMissingArgument("question", `pmassist ask "your question"`)
	}

	convID := p.Flag("conversation")
	var prior []model.Message
	if convID != "" {
		if err := app.requireIdentity(); err != nil {
			return err
		}
		msgs, err := app.Client.LoadMessages(ctx, convID, app.Identity)
		if err != nil {
			return err
		}
		prior = msgs
	}

	start := time.Now()
	s, err := app.Client.AskStream(ctx, api.NewAskRequest(query, prior, convID), app.Identity)
	if err != nil {
		return err
	}
	defer s.Close()

	// Rendered markdown needs the whole answer; plain output streams.
	live := !args.JSON && (p.BoolFlag("raw") || !app.Rich || !app.Config.UI.RenderMarkdown)

	msgs := []model.Message{model.NewUserMessage(query)}
	var done stream.Event
	printed := false
	for ev := range s.Events(ctx) {
		msgs = transcript.Apply(msgs, ev)
		switch ev.Kind {
		case stream.KindChunk:
			if live && ev.Text != "" {
				fmt.Fprint(app.Out, ev.Text)
				printed = true
			}
		case stream.KindDone:
			done = ev
		}
	}

	last := msgs[len(msgs)-1]
	if last.Role == model.RoleError {
		if printed {
			fmt.Fprintln(app.Out)
		}
		return &AnswerError{Message: last.Content}
	}

	if args.JSON {
		return NewJSONResponse("ask", AskData{
			Query:          query,
			Answer:         last.Content,
			Sources:        nonNilSources(last.Sources),
			ConversationID: done.ConversationID,
			DurationMs:     time.Since(start).Milliseconds(),
		}).Write(app.Out)
	}

	if live {
		if !strings.HasSuffix(last.Content, "\n") {
			fmt.Fprintln(app.Out)
		}
	} else {
		fmt.Fprint(app.Out, ensureNewline(app.renderMarkdown(last.Content)))
	}

	if !args.Quiet {
		app.writeSources(app.Out, last.Sources)
		if done.ConversationID != "" && app.Identity.Valid() {
			fmt.Fprintln(app.Err, app.style(DimStyle, "conversation "+done.ConversationID))
		}
	}
	return nil
}

func nonNilSources(s []model.Source) []model.Source {
	if s == nil {
		return []model.Source{}
	}
	return s
}
