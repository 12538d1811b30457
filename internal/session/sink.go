// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/bus"
)

// BusSink publishes snapshots on bus.TopicSnapshots.
type BusSink struct {
	bus *bus.Bus
}

// NewBusSink creates a sink on b.
func NewBusSink(b *bus.Bus) *BusSink {
	return &BusSink{bus: b}
}

// PublishSnapshot implements SnapshotSink.
func (s *BusSink) PublishSnapshot(snap Snapshot) {
	if err := s.bus.Publish(bus.TopicSnapshots, snap); err != nil {
		log.Warn().Err(err).Uint64("seq", snap.Seq).Msg("snapshot dropped")
	}
}

var _ SnapshotSink = (*BusSink)(nil)
