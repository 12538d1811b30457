// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
)

// Attach forwards snapshots, list changes and notifications from b to send
// until ctx ends.
func Attach(ctx context.Context, b *bus.Bus, send func(tea.Msg)) error {
	if err := bus.Listen(ctx, b, bus.TopicSnapshots, func(s session.Snapshot) {
		send(SnapshotMsg(s))
	}); err != nil {
		return err
	}
	if err := bus.Listen(ctx, b, bus.TopicConversations, func(list []model.Conversation) {
		send(ConversationsMsg(list))
	}); err != nil {
		return err
	}
	return bus.Listen(ctx, b, bus.TopicNotifications, func(n bus.Notification) {
		send(NotificationMsg(n))
	})
}

// WatchConfig sends a ConfigReloadedMsg whenever the file at path changes.
func WatchConfig(ctx context.Context, path string, send func(tea.Msg)) (*config.Watcher, error) {
	w, err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		send(ConfigReloadedMsg{Config: cfg, Err: err})
	})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watch unavailable")
		return nil, err
	}
	return w, nil
}
