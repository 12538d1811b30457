// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

func TestPublishSubscribe_PreservesOrder(t *testing.T) {
	b := New(nil)
	t.Cleanup(func() { b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan payload, 100)
	require.NoError(t, Listen(ctx, b, "test", func(p payload) { got <- p }))

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Publish("test", payload{Seq: i, Text: "x"}))
	}

	for i := 0; i < 50; i++ {
		select {
		case p := <-got:
			assert.Equal(t, i, p.Seq)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNotify_FillsDefaultTTL(t *testing.T) {
	b := New(nil)
	t.Cleanup(func() { b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Notification, 1)
	require.NoError(t, Listen(ctx, b, TopicNotifications, func(n Notification) { got <- n }))

	b.Notify(Notification{Kind: NotifyError, Message: "Rename failed"})

	select {
	case n := <-got:
		assert.Equal(t, NotifyError, n.Kind)
		assert.Equal(t, "Rename failed", n.Message)
		assert.Equal(t, DefaultNotificationTTL, n.TTL)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestPublish_AfterClose(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Error(t, b.Publish("test", payload{}))
}

func TestPublish_NoSubscribersDoesNotBlock(t *testing.T) {
	b := New(nil)
	t.Cleanup(func() { b.Close() })

	done := make(chan struct{})
	go func() {
		_ = b.Publish("nobody", payload{Seq: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked without subscribers")
	}
}

func TestNotificationBuilders(t *testing.T) {
	assert.Equal(t, NotifySuccess, Success("ok").Kind)
	assert.Equal(t, NotifyInfo, Info("fyi").Kind)
	assert.Equal(t, DefaultNotificationTTL, Error("bad").TTL)

	var seen []Notification
	NotifierFunc(func(n Notification) { seen = append(seen, n) }).Notify(Info("a"))
	require.Len(t, seen, 1)
	Discard.Notify(Info("dropped"))
}
