// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for pmassist.
//
// Persistence is expressed as a small key/value capability (KV) so the draft
// store can run against any backend. Three backends are provided.
//
// # Key Types
//
//   - KV: Get/Set/Remove capability
//   - MemoryKV: In-process map, used by tests and --storage=memory
//   - FileKV: One JSON document on disk, rewritten atomically
//   - SQLiteKV: Single-table SQLite database (pure Go driver)
//   - DraftStore: Typed slots for the anonymous transcript, sidebar flag and tab
//
// # Usage
//
//	kv, err := storage.Open("sqlite", "~/.pmassist/state.db")
//	drafts := storage.NewDraftStore(kv)
//	msgs, err := drafts.LoadTranscript()
//
// # Storage Location
//
// State is kept in ~/.pmassist/ unless the config says otherwise.
package storage
