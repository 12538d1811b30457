// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen Bubble Tea interface: a conversation
// sidebar next to the transcript, with the question input below.
//
// The model never calls into the session controller or the repository from
// Update directly when the call could publish on the bus. Those calls run as
// tea.Cmds, and their effects come back as snapshot, list and notification
// messages forwarded from the bus by Attach.
package chat
