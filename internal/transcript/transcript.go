// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript folds decoded stream events into message-list snapshots.
//
// Apply is a pure function: the same events over the same starting transcript
// always produce the same result, and the input slice is never modified.
package transcript

import (
	"errors"
	"fmt"
	"iter"

	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/stream"
)

// Apply folds one event into msgs and returns the new snapshot.
//
// The first event of a send appends an empty streaming agent message. Chunks
// grow its content, Done settles it with sources, and Failure replaces it with
// an error message.
func Apply(msgs []model.Message, ev stream.Event) []model.Message {
	next := model.CloneMessages(msgs)
	if n := len(next); n == 0 || !next[n-1].Streaming {
		next = append(next, model.NewStreamingMessage())
	}
	last := &next[len(next)-1]

	switch ev.Kind {
	case stream.KindChunk:
		last.Content += ev.Text
	case stream.KindDone:
		last.Streaming = false
		last.Sources = append([]model.Source{}, ev.Sources...)
	case stream.KindFailure:
		*last = model.NewErrorMessage(ev.Message)
	}
	return next
}

// Fold applies every event in order.
func Fold(start []model.Message, events []stream.Event) []model.Message {
	msgs := model.CloneMessages(start)
	for _, ev := range events {
		msgs = Apply(msgs, ev)
	}
	return msgs
}

// Snapshots lazily yields the snapshot produced after each event.
func Snapshots(start []model.Message, events iter.Seq[stream.Event]) iter.Seq2[stream.Event, []model.Message] {
	return func(yield func(stream.Event, []model.Message) bool) {
		msgs := model.CloneMessages(start)
		for ev := range events {
			msgs = Apply(msgs, ev)
			if !yield(ev, model.CloneMessages(msgs)) {
				return
			}
		}
	}
}

// ErrStreamingInvariant reports a transcript with a misplaced or duplicated
// streaming message.
var ErrStreamingInvariant = errors.New("streaming message invariant violated")

// Check verifies that at most one message is streaming and that it is last.
func Check(msgs []model.Message) error {
	for i, m := range msgs {
		if m.Streaming && i != len(msgs)-1 {
			return fmt.Errorf("%w: streaming message at %d of %d", ErrStreamingInvariant, i, len(msgs))
		}
	}
	return nil
}
