// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// Slot keys. The transcript key matches the web client's local storage key so
// exported state stays recognisable.
const (
	KeyTranscript  = "agent_history"
	KeySidebarOpen = "sidebar_open"
	KeyActiveTab   = "active_tab"
)

// =============================================================================
// DRAFT STORE
// =============================================================================

// DraftStore exposes the three local slots on top of a KV.
type DraftStore struct {
	kv KV
}

// NewDraftStore wraps kv.
func NewDraftStore(kv KV) *DraftStore {
	return &DraftStore{kv: kv}
}

// KV returns the underlying capability.
func (d *DraftStore) KV() KV {
	return d.kv
}

// LoadTranscript returns the anonymous transcript. A missing slot yields an
// empty transcript. Streaming flags are never restored.
func (d *DraftStore) LoadTranscript() ([]model.Message, error) {
	data, err := d.kv.Get(KeyTranscript)
	if errors.Is(err, ErrKeyNotFound) {
		return []model.Message{}, nil
	}
	if err != nil {
		return []model.Message{}, err
	}

	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return []model.Message{}, fmt.Errorf("corrupt transcript slot: %w", err)
	}
	for i := range msgs {
		msgs[i].Streaming = false
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// SaveTranscript overwrites the transcript slot wholesale. A streaming tail is
// dropped so the slot only ever holds settled messages.
func (d *DraftStore) SaveTranscript(msgs []model.Message) error {
	data, err := json.Marshal(model.Settled(msgs))
	if err != nil {
		return err
	}
	return d.kv.Set(KeyTranscript, data)
}

// ClearTranscript removes the transcript slot.
func (d *DraftStore) ClearTranscript() error {
	return d.kv.Remove(KeyTranscript)
}

// SidebarOpen returns the persisted sidebar flag, defaulting to open.
func (d *DraftStore) SidebarOpen() bool {
	data, err := d.kv.Get(KeySidebarOpen)
	if err != nil {
		return true
	}
	open, err := strconv.ParseBool(string(data))
	if err != nil {
		return true
	}
	return open
}

// SetSidebarOpen persists the sidebar flag.
func (d *DraftStore) SetSidebarOpen(open bool) error {
	return d.kv.Set(KeySidebarOpen, []byte(strconv.FormatBool(open)))
}

// ActiveTab returns the last selected tab, defaulting to All.
func (d *DraftStore) ActiveTab() model.Tab {
	data, err := d.kv.Get(KeyActiveTab)
	if err != nil {
		return model.TabAll
	}
	return model.ParseTab(string(data))
}

// SetActiveTab persists the selected tab.
func (d *DraftStore) SetActiveTab(tab model.Tab) error {
	return d.kv.Set(KeyActiveTab, []byte(tab))
}
