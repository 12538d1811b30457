// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package export writes conversation transcripts to files.

	exp, err := export.ForFormat("md", export.DefaultOptions())
	path, err := export.ExportToFile(&export.Transcript{
		ID:         "17",
		Title:      "Sprint planning",
		ExportedAt: time.Now(),
		Messages:   msgs,
	}, exp, "", nil)

Markdown output starts with YAML frontmatter and lists each answer's
sources with their scores. JSON output is the Transcript itself.
*/
package export
