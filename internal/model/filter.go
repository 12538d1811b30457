// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// TABS
// =============================================================================

// Tab selects which conversations the sidebar shows.
type Tab string

const (
	TabAll    Tab = "all"
	TabUseful Tab = "useful"
)

// ParseTab parses a persisted tab value, defaulting to TabAll.
func ParseTab(s string) Tab {
	if Tab(strings.ToLower(strings.TrimSpace(s))) == TabUseful {
		return TabUseful
	}
	return TabAll
}

// =============================================================================
// FILTER STATE
// =============================================================================

// FilterState is the derived view over the conversation list.
type FilterState struct {
	SearchTerm string `json:"search_term"`
	ActiveTab  Tab    `json:"active_tab"`
}

// cases.Caser keeps internal state, so a fresh one is built per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Matches reports whether a conversation passes the filter. The search term
// matches the stored title case-insensitively, including non-Latin scripts;
// an untitled conversation never matches a search.
func (f FilterState) Matches(c Conversation) bool {
	if f.ActiveTab == TabUseful && !c.IsUseful {
		return false
	}
	term := strings.TrimSpace(f.SearchTerm)
	if term == "" {
		return true
	}
	return strings.Contains(fold(c.Title), fold(term))
}

// Apply returns the conversations that pass the filter, preserving order.
func (f FilterState) Apply(list []Conversation) []Conversation {
	out := make([]Conversation, 0, len(list))
	for _, c := range list {
		if f.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}
