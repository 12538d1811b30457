// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/util"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AskRequest is the body of POST /api/ask-stream.
type AskRequest struct {
	Query          string               `json:"query"`
	History        []model.HistoryEntry `json:"history"`
	ConversationID *string              `json:"conversation_id"`
}

// NewAskRequest builds a request from the settled transcript preceding the
// question. An empty conversation id is sent as null.
func NewAskRequest(query string, prior []model.Message, conversationID string) AskRequest {
	req := AskRequest{Query: query, History: model.History(prior)}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}
	return req
}

// ConversationPatch is the partial body of PUT /api/conversations/{id}.
type ConversationPatch struct {
	Title    *string `json:"title,omitempty"`
	IsUseful *bool   `json:"is_useful,omitempty"`
}

// TitlePatch builds a rename patch.
func TitlePatch(title string) ConversationPatch {
	return ConversationPatch{Title: &title}
}

// UsefulPatch builds a favorite patch.
func UsefulPatch(useful bool) ConversationPatch {
	return ConversationPatch{IsUseful: &useful}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// flexID accepts string or numeric ids.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// timeLayouts are tried in order; the backend emits naive ISO timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// flexTime parses the timestamp formats seen from the backend. Unparseable
// values decode to the zero time.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return nil
}

// conversationDTO is one element of GET /api/conversations.
type conversationDTO struct {
	ID             flexID   `json:"id"`
	Title          string   `json:"title"`
	IsUseful       bool     `json:"is_useful"`
	LastActivityAt flexTime `json:"last_activity_at"`
	CreatedAt      flexTime `json:"created_at"`
	MessageCount   int      `json:"message_count"`
}

func (d conversationDTO) toModel() model.Conversation {
	return model.Conversation{
		ID:             string(d.ID),
		Title:          d.Title,
		IsUseful:       d.IsUseful,
		LastActivityAt: time.Time(d.LastActivityAt),
		CreatedAt:      time.Time(d.CreatedAt),
		MessageCount:   d.MessageCount,
	}
}

// messageDTO is one element of the messages response.
type messageDTO struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Sources json.RawMessage `json:"sources"`
}

func (d messageDTO) toModel() model.Message {
	msg := model.Message{Role: model.ParseRole(d.Role), Content: d.Content}
	msg.Sources = decodeSources(d.Sources)
	return msg
}

// messagesResponse is the body of the messages endpoints.
type messagesResponse struct {
	ConversationID flexID       `json:"conversation_id"`
	Messages       []messageDTO `json:"messages"`
}

// decodeSources accepts a source array, a JSON string holding an array (how
// the backend stores them), or null.
func decodeSources(raw json.RawMessage) []model.Source {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
	}
	var sources []model.Source
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil
	}
	for i := range sources {
		sources[i] = sources[i].Clamped()
	}
	return sources
}

// maxErrorRunes bounds error text taken from a non-JSON body.
const maxErrorRunes = 200

// errorBody is the backend's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorRunes)
}
