// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting.
//
// Every command given --json writes exactly one JSONResponse to stdout.
// Human-readable progress goes to stderr.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// JSONResponse is the envelope for all --json output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// AskData is the result of the ask command.
type AskData struct {
	Query          string         `json:"query"`
	Answer         string         `json:"answer"`
	Sources        []model.Source `json:"sources"`
	ConversationID string         `json:"conversation_id,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// ConversationData is one row of the list command.
type ConversationData struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	IsUseful       bool       `json:"is_useful"`
	MessageCount   int        `json:"message_count,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	ShareURL       string     `json:"share_url,omitempty"`
}

// ListData is the result of the list command.
type ListData struct {
	Filter        model.FilterState  `json:"filter"`
	Total         int                `json:"total"`
	Conversations []ConversationData `json:"conversations"`
}

// TranscriptData is the result of the show command.
type TranscriptData struct {
	ID       string          `json:"id"`
	Public   bool            `json:"public"`
	Messages []model.Message `json:"messages"`
}

func conversationData(c model.Conversation, shareURL string) ConversationData {
	d := ConversationData{
		ID:           c.ID,
		Title:        c.DisplayTitle(),
		IsUseful:     c.IsUseful,
		MessageCount: c.MessageCount,
		ShareURL:     shareURL,
	}
	if !c.LastActivityAt.IsZero() {
		t := c.LastActivityAt
		d.LastActivityAt = &t
	}
	return d
}
