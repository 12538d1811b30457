// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the signed-in user's conversation list.
//
// Every mutation is an explicit optimistic-apply / confirm-or-rollback pair.
// The in-memory list changes before the backend answers; a failed call
// restores the previous value, provided nothing else has overwritten the
// entry in the meantime, and raises a notification. A conversation that has
// vanished on the server is dropped from the list and reported to the
// OnRemoved observers exactly once.
package conversation
