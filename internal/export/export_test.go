// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

func sample() *Transcript {
	return &Transcript{
		ID:         "17",
		Title:      "Sprint: planning",
		ShareURL:   "https://share.example.org/c/17",
		ExportedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Messages: []model.Message{
			model.NewUserMessage("What is a sprint?"),
			{Role: model.RoleAgent, Content: "A time box.\n", Sources: []model.Source{
				{Title: "Scrum Guide", URL: "https://scrum.org", Score: 0.91},
				{Title: "", Score: 1.4},
			}},
			model.NewErrorMessage("quota exceeded"),
		},
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sample())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"Sprint: planning\"\n"))
	assert.Contains(t, md, "conversation_id: 17\n")
	assert.Contains(t, md, "exported: 2025-03-01T09:30:00Z\n")
	assert.Contains(t, md, "# Sprint: planning\n")
	assert.Contains(t, md, "### You\n\nWhat is a sprint?\n")
	assert.Contains(t, md, "### AI\n\nA time box.\n")
	assert.Contains(t, md, "- [Scrum Guide](https://scrum.org) (0.91)\n")
	assert.Contains(t, md, "- Untitled (1.00)\n")
	assert.Contains(t, md, "### Error\n\n> quota exceeded\n")
}

func TestMarkdownExporter_WithoutScores(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeScores = false
	out, err := NewMarkdownExporter(opts).Export(sample())
	require.NoError(t, err)
	assert.Contains(t, string(out), "- [Scrum Guide](https://scrum.org)\n")
}

func TestExporters_RejectEmpty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&Transcript{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	_, err = NewJSONExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestJSONExporter_DropsSourcesWhenExcluded(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeSources = false
	src := sample()
	out, err := NewJSONExporter(opts).Export(src)
	require.NoError(t, err)

	var got Transcript
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "17", got.ID)
	require.Len(t, got.Messages, 3)
	assert.Nil(t, got.Messages[1].Sources)
	assert.Len(t, src.Messages[1].Sources, 2, "input must not be modified")
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("Markdown", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", e.FileExtension())

	e, err = ForFormat("json", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.MimeType())

	_, err = ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestExportToFile_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sample(), NewMarkdownExporter(opts), "", opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "conversation_Sprint-_planning_20250301_093000.md"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestExportToFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	got, err := ExportToFile(sample(), NewJSONExporter(nil), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "conversation", sanitizeFilename("   "))
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "Риски_проекта", sanitizeFilename("Риски проекта"))
}
