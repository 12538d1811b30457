// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"github.com/jeranaias/pmassist-tui/internal/model"
)

// Kind discriminates protocol events.
type Kind int

const (
	KindChunk Kind = iota
	KindDone
	KindFailure
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindDone:
		return "done"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// IncompleteStreamMessage is the Failure message used when the stream ends
// without a terminal record.
const IncompleteStreamMessage = "The answer was interrupted before it finished. Please try again."

// CanceledMessage is the Failure message for an answer stopped by the user.
const CanceledMessage = "Answer cancelled."

// TimeoutMessage is the Failure message for an answer that ran past its
// deadline.
const TimeoutMessage = "The answer took too long and was stopped. Please try again."

// GenericFailureMessage is used when the server reports an error without text.
const GenericFailureMessage = "Server error"

// Event is one decoded protocol record.
type Event struct {
	Kind Kind

	// Chunk
	Text string

	// Done
	Sources        []model.Source
	ConversationID string

	// Failure
	Message string
}

// Chunk creates an incremental text event.
func Chunk(text string) Event {
	return Event{Kind: KindChunk, Text: text}
}

// Done creates the terminal success event.
func Done(sources []model.Source, conversationID string) Event {
	return Event{Kind: KindDone, Sources: sources, ConversationID: conversationID}
}

// Failure creates the terminal error event.
func Failure(message string) Event {
	if message == "" {
		message = GenericFailureMessage
	}
	return Event{Kind: KindFailure, Message: message}
}

// Terminal reports whether the event ends the sequence.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindFailure
}
