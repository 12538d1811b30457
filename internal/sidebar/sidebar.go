// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sidebar holds the conversation sidebar's interaction state: the
// search filter and tab, edit-in-place, the single open context menu, the
// pending delete confirmation and the open/closed flag.
//
// Sidebar state is kept apart from the repository so the list itself stays a
// plain data store. Removal of a conversation from the repository clears any
// sidebar state pointing at it.
package sidebar

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/storage"
)

// Edit is an in-progress rename.
type Edit struct {
	ID       string
	Draft    string
	Original string
}

// State is a snapshot of the sidebar.
type State struct {
	Filter model.FilterState
	Open   bool

	// MenuID is the conversation whose context menu is open, or "".
	MenuID string

	// Editing is non-nil while a title is being edited.
	Editing *Edit

	// PendingDelete is the conversation awaiting delete confirmation, or "".
	PendingDelete string
}

// Sidebar coordinates sidebar state with the repository.
type Sidebar struct {
	repo   *conversation.Repository
	drafts *storage.DraftStore

	mu    sync.Mutex
	state State
}

// New restores the persisted tab and open flag and subscribes to removals.
func New(repo *conversation.Repository, drafts *storage.DraftStore) *Sidebar {
	s := &Sidebar{
		repo:   repo,
		drafts: drafts,
		state: State{
			Filter: model.FilterState{ActiveTab: drafts.ActiveTab()},
			Open:   drafts.SidebarOpen(),
		},
	}
	repo.OnRemoved(s.forget)
	return s
}

// State returns a copy of the current state.
func (s *Sidebar) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Editing != nil {
		e := *st.Editing
		st.Editing = &e
	}
	return st
}

// Visible returns the conversations that pass the current filter.
func (s *Sidebar) Visible() []model.Conversation {
	s.mu.Lock()
	f := s.state.Filter
	s.mu.Unlock()
	return s.repo.Filter(f)
}

// =============================================================================
// FILTER AND VISIBILITY
// =============================================================================

// SetSearch updates the search term. It is never persisted.
func (s *Sidebar) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter.SearchTerm = term
}

// SetTab selects a tab and persists the choice.
func (s *Sidebar) SetTab(tab model.Tab) {
	s.mu.Lock()
	s.state.Filter.ActiveTab = tab
	s.mu.Unlock()

	if err := s.drafts.SetActiveTab(tab); err != nil {
		log.Warn().Err(err).Msg("could not persist active tab")
	}
}

// NextTab cycles between All and Useful.
func (s *Sidebar) NextTab() model.Tab {
	next := model.TabUseful
	if s.State().Filter.ActiveTab == model.TabUseful {
		next = model.TabAll
	}
	s.SetTab(next)
	return next
}

// Toggle opens or closes the sidebar and persists the flag.
func (s *Sidebar) Toggle() bool {
	s.mu.Lock()
	s.state.Open = !s.state.Open
	if !s.state.Open {
		s.state.MenuID = ""
	}
	open := s.state.Open
	s.mu.Unlock()

	if err := s.drafts.SetSidebarOpen(open); err != nil {
		log.Warn().Err(err).Msg("could not persist sidebar state")
	}
	return open
}

// =============================================================================
// CONTEXT MENU
// =============================================================================

// ToggleMenu opens the menu for id, closing any other. Toggling the open
// menu closes it.
func (s *Sidebar) ToggleMenu(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.MenuID == id {
		s.state.MenuID = ""
		return
	}
	s.state.MenuID = id
}

// CloseMenu closes the open menu, if any.
func (s *Sidebar) CloseMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MenuID = ""
}

// =============================================================================
// RENAME
// =============================================================================

// BeginRename starts editing id's title.
func (s *Sidebar) BeginRename(id string) bool {
	c, ok := s.repo.Get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MenuID = ""
	s.state.Editing = &Edit{ID: id, Draft: c.Title, Original: c.Title}
	return true
}

// SetDraft replaces the edit buffer.
func (s *Sidebar) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Editing != nil {
		s.state.Editing.Draft = text
	}
}

// CancelRename abandons the edit.
func (s *Sidebar) CancelRename() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Editing = nil
}

// CommitRename submits the edit. A blank draft is rejected locally and the
// edit closes with the previous title intact.
func (s *Sidebar) CommitRename(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	edit := s.state.Editing
	s.state.Editing = nil
	s.mu.Unlock()

	if edit == nil {
		return nil
	}
	if strings.TrimSpace(edit.Draft) == "" {
		return conversation.ErrEmptyTitle
	}
	_, err := s.repo.Rename(ctx, edit.ID, edit.Draft, identity)
	return err
}

// =============================================================================
// FAVORITE AND DELETE
// =============================================================================

// ToggleUseful flips the useful flag of id.
func (s *Sidebar) ToggleUseful(ctx context.Context, id string, identity *model.Identity) error {
	s.CloseMenu()
	c, ok := s.repo.Get(id)
	if !ok {
		return conversation.ErrUnknownConversation
	}
	_, err := s.repo.SetUseful(ctx, id, !c.IsUseful, identity)
	return err
}

// RequestDelete asks for confirmation before deleting id.
func (s *Sidebar) RequestDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MenuID = ""
	s.state.PendingDelete = id
}

// CancelDelete dismisses the confirmation.
func (s *Sidebar) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PendingDelete = ""
}

// ConfirmDelete deletes the pending conversation.
func (s *Sidebar) ConfirmDelete(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	id := s.state.PendingDelete
	s.state.PendingDelete = ""
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	return s.repo.Delete(ctx, id, identity)
}

// forget drops any state that points at a removed conversation.
func (s *Sidebar) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.MenuID == id {
		s.state.MenuID = ""
	}
	if s.state.PendingDelete == id {
		s.state.PendingDelete = ""
	}
	if s.state.Editing != nil && s.state.Editing.ID == id {
		s.state.Editing = nil
	}
}
