// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives a chat session: it picks local or remote
// persistence, runs one answer stream at a time, and publishes a snapshot of
// the visible session after every change.
//
// # States
//
//	Idle ──send──▶ Sending ──opened──▶ Streaming ──done──▶ Idle
//	                  │                    │
//	              open failed           failure
//	                  ▼                    ▼
//	            ErrorDisplayed ◀───────────┘
//	                  │
//	                send ──▶ Sending
//
// NewChat returns to Idle from any state. Activating another conversation,
// starting a new chat, or signing out invalidates the in-flight stream: its
// remaining events are discarded.
//
// # Persistence
//
// The local transcript slot is written only while the session is anonymous
// and has no remote conversation id, so the local and remote stores never
// hold the same conversation at once.
package session
