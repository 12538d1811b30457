// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleError Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAgent:
		return "AI"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// ParseRole maps a wire role onto a transcript role.
// The backend stores answers as "assistant"; anything unknown is treated as an
// agent answer so that it is still rendered.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser
	case "error":
		return RoleError
	default:
		return RoleAgent
	}
}

// WireRole returns the role name used in request history, or "" for roles
// that are never sent back to the backend.
func (r Role) WireRole() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAgent:
		return "assistant"
	default:
		return ""
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// ScoreTier groups source scores for display.
type ScoreTier int

const (
	TierLow ScoreTier = iota
	TierMedium
	TierHigh
)

// Score thresholds used for tiering.
const (
	HighScoreThreshold   = 0.7
	MediumScoreThreshold = 0.3
)

// String returns the tier name.
func (t ScoreTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Source is a ranked citation returned with a finished answer.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Tier returns the display tier of the source score.
func (s Source) Tier() ScoreTier {
	switch {
	case s.Score >= HighScoreThreshold:
		return TierHigh
	case s.Score >= MediumScoreThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Clamped returns a copy of the source with its score forced into [0,1].
func (s Source) Clamped() Source {
	if s.Score < 0 {
		s.Score = 0
	}
	if s.Score > 1 {
		s.Score = 1
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = "Untitled"
	}
	return s
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
// Content may contain pre-rendered markup produced by the backend.
type Message struct {
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Sources   []Source `json:"sources,omitempty"`
	Streaming bool     `json:"streaming,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewStreamingMessage creates the empty agent message that receives chunks.
func NewStreamingMessage() Message {
	return Message{Role: RoleAgent, Streaming: true}
}

// NewErrorMessage creates an error message.
func NewErrorMessage(content string) Message {
	return Message{Role: RoleError, Content: content}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m.Sources != nil {
		m.Sources = append([]Source(nil), m.Sources...)
	}
	return m
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// Preview returns a truncated preview of the message content.
func (m Message) Preview(maxLen int) string {
	runes := []rune(strings.ReplaceAll(m.Content, "\n", " "))
	if maxLen <= 3 || len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}

// CloneMessages deep-copies a transcript. A nil input yields an empty,
// non-nil slice so snapshots always serialize as a list.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Settled returns the transcript without a trailing streaming message.
func Settled(msgs []Message) []Message {
	if n := len(msgs); n > 0 && msgs[n-1].Streaming {
		return CloneMessages(msgs[:n-1])
	}
	return CloneMessages(msgs)
}

// HistoryEntry is one element of the history sent with a question.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History converts a transcript into request history. Error messages and a
// streaming tail are never sent.
func History(msgs []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		if m.Streaming {
			continue
		}
		role := m.Role.WireRole()
		if role == "" {
			continue
		}
		history = append(history, HistoryEntry{Role: role, Content: m.Content})
	}
	return history
}
