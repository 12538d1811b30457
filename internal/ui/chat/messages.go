// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
)

// =============================================================================
// BUS MESSAGES
// =============================================================================

// SnapshotMsg carries a session snapshot.
type SnapshotMsg session.Snapshot

// ConversationsMsg carries the conversation list after a change.
type ConversationsMsg []model.Conversation

// NotificationMsg carries a toast.
type NotificationMsg bus.Notification

// ConfigReloadedMsg is sent when the config file changed on disk. Err is set
// when the new file could not be loaded.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

// toastExpiredMsg removes a toast once its TTL is over.
type toastExpiredMsg struct {
	id int
}

// actionDoneMsg reports the result of a command run off the update loop.
type actionDoneMsg struct {
	op  string
	err error
}
