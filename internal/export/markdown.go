// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("conversation has no messages")

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown with YAML frontmatter.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil || len(t.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}
	title := t.Title
	if strings.TrimSpace(title) == "" {
		title = model.DefaultTitle
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
	if t.ID != "" {
		fmt.Fprintf(&sb, "conversation_id: %s\n", escapeYAML(t.ID))
	}
	if t.ShareURL != "" {
		fmt.Fprintf(&sb, "share_url: %s\n", t.ShareURL)
	}
	fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
	fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
	sb.WriteString("generator: pmassist\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range t.Messages {
		fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		if msg.Role == model.RoleError {
			fmt.Fprintf(&sb, "> %s\n", strings.ReplaceAll(msg.Content, "\n", "\n> "))
		} else {
			sb.WriteString(strings.TrimRight(msg.Content, "\n") + "\n")
		}
		if e.options.IncludeSources && len(msg.Sources) > 0 {
			sb.WriteString("\n**Sources**\n\n")
			for _, s := range msg.Sources {
				sb.WriteString(e.formatSource(s.Clamped()))
			}
		}
		if i < len(t.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) formatSource(s model.Source) string {
	label := escapeMarkdown(s.Title)
	if s.URL != "" {
		label = fmt.Sprintf("[%s](%s)", label, s.URL)
	}
	if e.options.IncludeScores {
		return fmt.Sprintf("- %s (%.2f)\n", label, s.Score)
	}
	return "- " + label + "\n"
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would change the meaning of a
// heading or link label.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"[", `\[`,
		"]", `\]`,
		"*", `\*`,
		"_", `\_`,
		"#", `\#`,
		"\n", " ",
	)
	return r.Replace(s)
}

// escapeYAML quotes a scalar when it would not survive as a plain value.
func escapeYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":#{}[],&*!|>'\"%@`\n") || strings.TrimSpace(s) != s {
		return fmt.Sprintf("%q", s)
	}
	return s
}
