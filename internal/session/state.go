// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// State is the controller's position in the send cycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateErrorDisplayed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateErrorDisplayed:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// acceptsSend reports whether a send may start from s.
func (s State) acceptsSend() bool {
	return s == StateIdle || s == StateErrorDisplayed
}

// ConnectionErrorMessage is shown when the stream could not be opened.
const ConnectionErrorMessage = "Could not reach the assistant. Check your connection and try again."

// SharedMissingMessage is shown when a shared link points nowhere.
const SharedMissingMessage = "This conversation does not exist or is no longer shared."

// LoadErrorMessage is shown when a conversation's messages could not be loaded.
const LoadErrorMessage = "Could not load this conversation."

var (
	// ErrRejected is returned for a blank question or a send while busy.
	ErrRejected = errors.New("send rejected")

	// ErrReadOnly is returned when the session does not accept input.
	ErrReadOnly = errors.New("conversation is read-only")

	// ErrSuperseded is returned by a send whose stream was invalidated by a
	// newer action.
	ErrSuperseded = errors.New("stream superseded")
)

// ConnectionError means the stream never opened. The question is restored
// to the input.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StreamFailure means the stream reported an error or ended without
// finishing. The question is restored to the input.
type StreamFailure struct {
	Message string
}

func (e *StreamFailure) Error() string {
	return "stream failed: " + e.Message
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot is everything the presentation layer needs to draw the session.
type Snapshot struct {
	Seq      uint64            `json:"seq"`
	State    State             `json:"state"`
	Mode     model.SessionMode `json:"mode"`
	Identity *model.Identity   `json:"identity,omitempty"`
	ActiveID string            `json:"active_id,omitempty"`
	Messages []model.Message   `json:"messages"`

	// Input is text handed back to the input box after a failed send.
	Input string `json:"input,omitempty"`

	// CanSend is false in a read-only public view.
	CanSend bool `json:"can_send"`
}

// Busy reports whether a send is in flight.
func (s Snapshot) Busy() bool {
	return s.State == StateSending || s.State == StateStreaming
}

// SnapshotSink receives snapshots in order.
type SnapshotSink interface {
	PublishSnapshot(s Snapshot)
}

// SinkFunc adapts a function to SnapshotSink.
type SinkFunc func(Snapshot)

// PublishSnapshot calls f.
func (f SinkFunc) PublishSnapshot(s Snapshot) { f(s) }
