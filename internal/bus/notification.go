// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bus

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultNotificationTTL is how long a toast stays on screen.
const DefaultNotificationTTL = 3 * time.Second

// NotificationKind selects the toast style.
type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	TTL     time.Duration    `json:"ttl"`
}

// Notifier receives notifications. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Info builds an info notification with the default TTL.
func Info(msg string) Notification {
	return Notification{Kind: NotifyInfo, Message: msg, TTL: DefaultNotificationTTL}
}

// Success builds a success notification with the default TTL.
func Success(msg string) Notification {
	return Notification{Kind: NotifySuccess, Message: msg, TTL: DefaultNotificationTTL}
}

// Error builds an error notification with the default TTL.
func Error(msg string) Notification {
	return Notification{Kind: NotifyError, Message: msg, TTL: DefaultNotificationTTL}
}

// Notify publishes n on TopicNotifications. Failures are logged, not returned.
func (b *Bus) Notify(n Notification) {
	if n.TTL <= 0 {
		n.TTL = DefaultNotificationTTL
	}
	if err := b.Publish(TopicNotifications, n); err != nil {
		log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("notification dropped")
	}
}

var _ Notifier = (*Bus)(nil)
