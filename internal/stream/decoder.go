// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// STREAMING: Line-oriented record parsing with split-safe buffering

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// Sentinel is the prefix that marks a record line.
const Sentinel = "data:"

// MaxLineSize bounds a single record line. Longer lines are ignored.
// SECURITY: Prevents unbounded buffering of a malformed stream.
const MaxLineSize = 1 << 20

// readBufferSize is the size of a single read from the response body.
const readBufferSize = 4096

// =============================================================================
// DECODER
// =============================================================================

// record is the wire shape of a data line.
type record struct {
	Chunk          *string        `json:"chunk"`
	Done           bool           `json:"done"`
	Sources        []model.Source `json:"sources"`
	ConversationID wireID         `json:"conversation_id"`
	Error          *string        `json:"error"`
}

// wireID accepts a conversation id sent as either a string or a number.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	if string(data) == "null" {
		*w = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

// Decoder is a push-style decoder. Feed it fragments in arrival order and call
// Finish once the stream has ended. It is not safe for concurrent use.
type Decoder struct {
	pending  strings.Builder
	skipping bool // discarding an oversized line until its newline
	finished bool // a terminal event has been produced
}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Finished reports whether a terminal event has been produced.
func (d *Decoder) Finished() bool {
	return d.finished
}

// Feed consumes one fragment and returns the events completed by it.
// After a terminal event, further input is ignored.
func (d *Decoder) Feed(fragment string) []Event {
	if d.finished {
		return nil
	}

	var events []Event
	for len(fragment) > 0 {
		nl := strings.IndexByte(fragment, '\n')
		if nl < 0 {
			d.buffer(fragment)
			break
		}

		head := fragment[:nl]
		fragment = fragment[nl+1:]

		if d.skipping {
			d.skipping = false
			continue
		}

		var line string
		if d.pending.Len() > 0 {
			d.pending.WriteString(head)
			line = d.pending.String()
			d.pending.Reset()
		} else {
			line = head
		}

		if ev, ok := parseLine(line); ok {
			events = append(events, ev)
			if ev.Terminal() {
				d.finished = true
				d.pending.Reset()
				return events
			}
		}
	}
	return events
}

// buffer keeps an incomplete tail for the next fragment.
func (d *Decoder) buffer(tail string) {
	if d.skipping {
		return
	}
	if d.pending.Len()+len(tail) > MaxLineSize {
		d.pending.Reset()
		d.skipping = true
		return
	}
	d.pending.WriteString(tail)
}

// Finish flushes a trailing unterminated line and guarantees a terminal
// event: if none was seen, a Failure is returned.
func (d *Decoder) Finish() []Event {
	if d.finished {
		return nil
	}

	var events []Event
	if !d.skipping && d.pending.Len() > 0 {
		line := d.pending.String()
		d.pending.Reset()
		if ev, ok := parseLine(line); ok {
			events = append(events, ev)
			if ev.Terminal() {
				d.finished = true
				return events
			}
		}
	}

	d.finished = true
	return append(events, Failure(IncompleteStreamMessage))
}

// Abort ends the sequence with a Failure carrying message, unless a terminal
// event was already produced.
func (d *Decoder) Abort(message string) []Event {
	if d.finished {
		return nil
	}
	d.finished = true
	d.pending.Reset()
	return []Event{Failure(message)}
}

// parseLine recognises a record line. Non-conforming lines yield ok=false.
func parseLine(line string) (Event, bool) {
	if len(line) > MaxLineSize {
		return Event{}, false
	}
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, Sentinel) {
		return Event{}, false
	}

	payload := strings.TrimSpace(line[len(Sentinel):])
	if !strings.HasPrefix(payload, "{") {
		return Event{}, false
	}

	var rec record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return Event{}, false
	}

	switch {
	case rec.Error != nil:
		return Failure(*rec.Error), true
	case rec.Done:
		sources := make([]model.Source, 0, len(rec.Sources))
		for _, s := range rec.Sources {
			sources = append(sources, s.Clamped())
		}
		return Done(sources, string(rec.ConversationID)), true
	case rec.Chunk != nil:
		return Chunk(*rec.Chunk), true
	default:
		return Event{}, false
	}
}

// =============================================================================
// LAZY SEQUENCES
// =============================================================================

// Fragments decodes an in-memory fragment sequence. Used by tests and replay.
func Fragments(fragments []string) []Event {
	d := NewDecoder()
	var events []Event
	for _, f := range fragments {
		events = append(events, d.Feed(f)...)
		if d.Finished() {
			return events
		}
	}
	return append(events, d.Finish()...)
}

// Events lazily decodes r. The sequence always ends with one terminal event:
// transport errors and cancellation surface as a Failure. Reading stops as
// soon as the consumer stops ranging.
func Events(ctx context.Context, r io.Reader) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		d := NewDecoder()
		buf := make([]byte, readBufferSize)

		emit := func(events []Event) bool {
			for _, ev := range events {
				if !yield(ev) {
					return false
				}
			}
			return true
		}

		for {
			if err := ctx.Err(); err != nil {
				emit(d.Abort(abortMessage(err)))
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				if !emit(d.Feed(string(buf[:n]))) || d.Finished() {
					return
				}
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					emit(d.Finish())
					return
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				emit(d.Abort(abortMessage(err)))
				return
			}
		}
	}
}

// abortMessage turns the error that stopped a read into the text shown in
// place of the answer.
func abortMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return CanceledMessage
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutMessage
	default:
		return err.Error()
	}
}
