// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"assistant", RoleAgent},
		{"agent", RoleAgent},
		{" ERROR ", RoleError},
		{"", RoleAgent},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHistory_SkipsErrorsAndStreaming(t *testing.T) {
	msgs := []Message{
		NewUserMessage("q1"),
		{Role: RoleAgent, Content: "a1"},
		NewErrorMessage("boom"),
		NewUserMessage("q2"),
		NewStreamingMessage(),
	}

	history := History(msgs)

	require.Len(t, history, 3)
	assert.Equal(t, HistoryEntry{Role: "user", Content: "q1"}, history[0])
	assert.Equal(t, HistoryEntry{Role: "assistant", Content: "a1"}, history[1])
	assert.Equal(t, HistoryEntry{Role: "user", Content: "q2"}, history[2])
}

func TestSettled_DropsStreamingTail(t *testing.T) {
	msgs := []Message{NewUserMessage("q"), NewStreamingMessage()}
	settled := Settled(msgs)
	require.Len(t, settled, 1)
	assert.Equal(t, RoleUser, settled[0].Role)
}

func TestCloneMessages_DeepCopiesSources(t *testing.T) {
	orig := []Message{{Role: RoleAgent, Content: "a", Sources: []Source{{Title: "t", Score: 0.5}}}}
	cp := CloneMessages(orig)
	cp[0].Sources[0].Title = "changed"
	assert.Equal(t, "t", orig[0].Sources[0].Title)
}

// =============================================================================
// SOURCE TESTS
// =============================================================================

func TestSource_Tier(t *testing.T) {
	assert.Equal(t, TierHigh, Source{Score: 0.7}.Tier())
	assert.Equal(t, TierMedium, Source{Score: 0.69}.Tier())
	assert.Equal(t, TierMedium, Source{Score: 0.3}.Tier())
	assert.Equal(t, TierLow, Source{Score: 0.29}.Tier())
}

func TestSource_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, Source{Title: "x", Score: 1.7}.Clamped().Score)
	assert.Equal(t, 0.0, Source{Title: "x", Score: -0.2}.Clamped().Score)
	assert.Equal(t, "Untitled", Source{Score: 0.5}.Clamped().Title)
}

// =============================================================================
// MODE TESTS
// =============================================================================

func TestDeriveMode(t *testing.T) {
	user := &Identity{ID: "u1"}

	assert.Equal(t, ModeAnonymous, DeriveMode(nil, false))
	assert.Equal(t, ModeAnonymous, DeriveMode(&Identity{}, false))
	assert.Equal(t, ModeAuthenticated, DeriveMode(user, false))
	assert.Equal(t, ModePublicReadOnly, DeriveMode(nil, true))
	assert.Equal(t, ModePublicReadOnly, DeriveMode(user, true))
}

func TestSessionMode_CanSend(t *testing.T) {
	assert.True(t, ModeAnonymous.CanSend(nil))
	assert.False(t, ModePublicReadOnly.CanSend(nil))
	assert.True(t, ModePublicReadOnly.CanSend(&Identity{ID: "viewer"}))
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestFilterState_CyrillicSearchOnUsefulTab(t *testing.T) {
	list := []Conversation{
		{ID: "1", Title: "Первый созвон с КЛИЕНТОМ", IsUseful: true},
		{ID: "2", Title: "Клиент не хочет дизайн", IsUseful: false},
		{ID: "3", Title: "Ретроспектива спринта", IsUseful: true},
		{ID: "4", Title: "клиентский бриф", IsUseful: true},
	}

	f := FilterState{SearchTerm: "клиент", ActiveTab: TabUseful}
	got := f.Apply(list)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
}

func TestFilterState_EmptyTermAllTab(t *testing.T) {
	list := []Conversation{{ID: "1"}, {ID: "2", IsUseful: true}}
	got := FilterState{ActiveTab: TabAll}.Apply(list)
	assert.Len(t, got, 2)
}

func TestFilterState_SearchIgnoresPlaceholderTitle(t *testing.T) {
	untitled := Conversation{ID: "x"}
	require.NotEmpty(t, untitled.DisplayTitle())

	f := FilterState{SearchTerm: untitled.DisplayTitle()}
	assert.False(t, f.Matches(untitled))
	assert.True(t, FilterState{}.Matches(untitled), "no search keeps untitled rows")
	assert.True(t, f.Matches(Conversation{ID: "y", Title: untitled.DisplayTitle() + " about MVP"}))
}

func TestParseTab(t *testing.T) {
	assert.Equal(t, TabUseful, ParseTab("Useful"))
	assert.Equal(t, TabAll, ParseTab("garbage"))
	assert.Equal(t, TabAll, ParseTab(""))
}
