// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the opaque signed-in user handed over by the identity provider.
// A nil *Identity means nobody is signed in.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Valid reports whether the identity carries a usable id.
func (i *Identity) Valid() bool {
	return i != nil && i.ID != ""
}

// =============================================================================
// SESSION MODE
// =============================================================================

// SessionMode selects the persistence target and whether input is allowed.
type SessionMode int

const (
	// ModeAnonymous keeps the transcript in the local draft store only.
	ModeAnonymous SessionMode = iota
	// ModeAuthenticated persists conversations remotely.
	ModeAuthenticated
	// ModePublicReadOnly views a shared conversation by id.
	ModePublicReadOnly
)

// String returns the mode name.
func (m SessionMode) String() string {
	switch m {
	case ModeAuthenticated:
		return "authenticated"
	case ModePublicReadOnly:
		return "public"
	default:
		return "anonymous"
	}
}

// DeriveMode computes the session mode from the identity collaborator and the
// shared-link flag. A shared link always wins.
func DeriveMode(identity *Identity, sharedLink bool) SessionMode {
	switch {
	case sharedLink:
		return ModePublicReadOnly
	case identity.Valid():
		return ModeAuthenticated
	default:
		return ModeAnonymous
	}
}

// CanSend reports whether input is permitted. PublicReadOnly viewers may
// still send when separately signed in.
func (m SessionMode) CanSend(identity *Identity) bool {
	if m == ModePublicReadOnly {
		return identity.Valid()
	}
	return true
}

// UsesLocalDraft reports whether the transcript is persisted locally.
func (m SessionMode) UsesLocalDraft() bool {
	return m == ModeAnonymous
}
