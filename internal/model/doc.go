// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the session engine, the
// conversation repository and the front ends.
//
// # Key Types
//
//   - Message: One entry of a transcript (user, agent or error)
//   - Source: A ranked citation attached to an agent answer
//   - Conversation: Identity, title, useful flag and messages
//   - SessionMode: Anonymous, Authenticated or PublicReadOnly
//   - FilterState: Search term and tab used to narrow the conversation list
//
// # Usage
//
// Derive the session mode from the identity collaborator:
//
//	mode := model.DeriveMode(identity, sharedLink)
//	if !mode.CanSend(identity) {
//	    // input disabled
//	}
//
// Filter the conversation list:
//
//	f := model.FilterState{SearchTerm: "sprint", ActiveTab: model.TabUseful}
//	visible := f.Apply(conversations)
package model
