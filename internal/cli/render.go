// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Transcript, source and list rendering for the terminal.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	rendererMu    sync.Mutex
	rendererCache = map[string]*glamour.TermRenderer{}
)

// NewMarkdownRenderer builds a glamour renderer for a configured theme.
func NewMarkdownRenderer(theme string, width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch theme {
	case "light", "dark":
		opts = append(opts, glamour.WithStandardStyle(theme))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}
	return glamour.NewTermRenderer(opts...)
}

// renderMarkdown renders agent content when the output is rich and markdown
// is enabled. The original content is returned on any failure.
func (a *App) renderMarkdown(content string) string {
	if !a.Rich || !a.Config.UI.RenderMarkdown {
		return content
	}

	width := GetTerminalWidth() - 4
	key := fmt.Sprintf("%s/%d", a.Config.UI.Theme, width)

	rendererMu.Lock()
	r, ok := rendererCache[key]
	if !ok {
		var err error
		r, err = NewMarkdownRenderer(a.Config.UI.Theme, width)
		if err != nil {
			rendererMu.Unlock()
			return content
		}
		rendererCache[key] = r
	}
	rendererMu.Unlock()

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// writeSources lists a finished answer's citations, best first as received.
func (a *App) writeSources(w io.Writer, sources []model.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, a.style(DimStyle, "Sources:"))
	for _, s := range sources {
		line := "  " + s.Title
		if a.Config.UI.ShowScores {
			score := fmt.Sprintf("[%.2f]", s.Score)
			line = "  " + a.style(TierStyle(s.Tier()), score) + " " + s.Title
		}
		if s.URL != "" {
			line += "  " + a.style(DimStyle, s.URL)
		}
		fmt.Fprintln(w, line)
	}
}

// writeMessage prints one transcript entry with its role label.
func (a *App) writeMessage(w io.Writer, m model.Message) {
	label := a.style(RoleStyle(m.Role), m.Role.DisplayName()+":")
	switch m.Role {
	case model.RoleAgent:
		fmt.Fprintln(w, label)
		fmt.Fprint(w, ensureNewline(a.renderMarkdown(m.Content)))
		a.writeSources(w, m.Sources)
	case model.RoleError:
		fmt.Fprintf(w, "%s %s\n", label, a.style(ErrorStyle, m.Content))
	default:
		fmt.Fprintf(w, "%s %s\n", label, m.Content)
	}
}

// writeTranscript prints a whole conversation separated by blank lines.
func (a *App) writeTranscript(w io.Writer, msgs []model.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		a.writeMessage(w, m)
	}
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

const titleColumnWidth = 40

// writeConversationRow prints one list row: marker, id, title, activity.
func (a *App) writeConversationRow(w io.Writer, index int, c model.Conversation, now time.Time) {
	marker := " "
	if c.IsUseful {
		marker = a.style(UsefulStyle, "★")
	}
	title := util.FitWidth(util.SingleLine(c.DisplayTitle()), titleColumnWidth)
	activity := ""
	if !c.LastActivityAt.IsZero() {
		activity = formatRelative(now, c.LastActivityAt)
	}
	fmt.Fprintf(w, "%3d %s %-10s %s  %s\n",
		index, marker, util.TruncateRunes(c.ID, 10), title, a.style(DimStyle, activity))
}

// formatRelative renders how long ago t was, coarsely.
func formatRelative(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
