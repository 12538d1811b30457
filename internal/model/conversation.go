// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// DefaultTitle is shown for conversations whose title is still blank.
const DefaultTitle = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a conversation's metadata and, when loaded, its messages.
// List responses never include messages.
type Conversation struct {
	// Identity
	ID       string `json:"id"`
	Title    string `json:"title"`
	IsUseful bool   `json:"is_useful"`

	// Server bookkeeping (optional on the wire)
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	MessageCount   int       `json:"message_count,omitempty"`

	// Messages
	Messages []Message `json:"messages,omitempty"`
}

// DisplayTitle returns the title or a placeholder when blank.
func (c Conversation) DisplayTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return DefaultTitle
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	if c.Messages != nil {
		c.Messages = CloneMessages(c.Messages)
	}
	return c
}

// Meta returns the conversation without its messages.
func (c Conversation) Meta() Conversation {
	c.Messages = nil
	return c
}

// CloneConversations deep-copies a conversation list.
func CloneConversations(list []Conversation) []Conversation {
	out := make([]Conversation, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Conversation, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
