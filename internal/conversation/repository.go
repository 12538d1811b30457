// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/model"
)

// Backend is the subset of the HTTP client the repository needs.
type Backend interface {
	ListConversations(ctx context.Context, identity *model.Identity) ([]model.Conversation, error)
	LoadMessages(ctx context.Context, id string, identity *model.Identity) ([]model.Message, error)
	LoadPublicMessages(ctx context.Context, id string) ([]model.Message, error)
	UpdateConversation(ctx context.Context, id string, patch api.ConversationPatch, identity *model.Identity) (model.Conversation, error)
	DeleteConversation(ctx context.Context, id string, identity *model.Identity) error
}

var _ Backend = (*api.Client)(nil)

// Repository holds the canonical conversation list.
// All methods are safe for concurrent use. Network calls happen outside the
// lock, and each local state change is a single locked transition.
type Repository struct {
	backend   Backend
	notifier  bus.Notifier
	publicURL string

	mu        sync.Mutex
	items     []model.Conversation
	loaded    bool
	version   uint64
	onRemoved []func(id string)
	onChange  []func(list []model.Conversation)

	// emitMu orders change notifications; a snapshot older than the last
	// one delivered is dropped.
	emitMu  sync.Mutex
	emitted uint64
}

// NewRepository creates an empty repository.
func NewRepository(backend Backend) *Repository {
	return &Repository{
		backend:  backend,
		notifier: bus.Discard,
	}
}

// WithNotifier sets where rollback and not-found notifications go.
func (r *Repository) WithNotifier(n bus.Notifier) *Repository {
	if n != nil {
		r.notifier = n
	}
	return r
}

// WithPublicURL sets the root used by ShareLink.
func (r *Repository) WithPublicURL(u string) *Repository {
	r.publicURL = strings.TrimRight(u, "/")
	return r
}

// OnRemoved registers fn to run once for every conversation that leaves the
// list because it was deleted or found missing.
func (r *Repository) OnRemoved(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = append(r.onRemoved, fn)
}

// OnChange registers fn to receive a copy of the list after every change.
func (r *Repository) OnChange(fn func(list []model.Conversation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// =============================================================================
// READS
// =============================================================================

// List returns a copy of the current list in server order.
func (r *Repository) List() []model.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.CloneConversations(r.items)
}

// Filter returns the entries matching f.
func (r *Repository) Filter(f model.FilterState) []model.Conversation {
	return f.Apply(r.List())
}

// Get returns the entry with id.
func (r *Repository) Get(id string) (model.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := model.IndexOf(r.items, id); i >= 0 {
		return r.items[i].Clone(), true
	}
	return model.Conversation{}, false
}

// Loaded reports whether the list has been fetched since the last Reset.
func (r *Repository) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// ShareLink returns the public URL for id.
func (r *Repository) ShareLink(id string) string {
	return r.publicURL + "/" + url.PathEscape(id)
}

// Refresh replaces the list with the server's.
func (r *Repository) Refresh(ctx context.Context, identity *model.Identity) ([]model.Conversation, error) {
	if !identity.Valid() {
		return nil, api.ErrAuth
	}

	list, err := r.backend.ListConversations(ctx, identity)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.items = r.items[:0]
	for _, c := range list {
		r.items = append(r.items, c.Meta())
	}
	r.loaded = true
	ch := r.changedLocked()
	r.mu.Unlock()

	r.emit(ch)
	log.Debug().Int("count", len(ch.list)).Msg("conversation list refreshed")
	return model.CloneConversations(ch.list), nil
}

// LoadMessages fetches one of the caller's conversations.
func (r *Repository) LoadMessages(ctx context.Context, id string, identity *model.Identity) ([]model.Message, error) {
	msgs, err := r.backend.LoadMessages(ctx, id, identity)
	if errors.Is(err, api.ErrNotFound) {
		r.forget(id)
		return nil, &NotFound{ID: id}
	}
	return msgs, err
}

// LoadPublic fetches a shared conversation. The id is the capability.
func (r *Repository) LoadPublic(ctx context.Context, id string) ([]model.Message, error) {
	msgs, err := r.backend.LoadPublicMessages(ctx, id)
	if errors.Is(err, api.ErrNotFound) {
		return nil, &NotFound{ID: id}
	}
	return msgs, err
}

// Reset empties the list, for example on sign-out.
func (r *Repository) Reset() {
	r.mu.Lock()
	r.items = nil
	r.loaded = false
	ch := r.changedLocked()
	r.mu.Unlock()
	r.emit(ch)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// mutation is one optimistic field update.
type mutation struct {
	op    string
	patch api.ConversationPatch

	// apply writes the optimistic value.
	apply func(c *model.Conversation)
	// holds reports whether c still carries the optimistic value.
	holds func(c model.Conversation) bool
	// restore puts the previous value back.
	restore func(c *model.Conversation, prev model.Conversation)
	// confirm merges the server's answer.
	confirm func(c *model.Conversation, server model.Conversation)
}

// Rename sets a new title. A blank title is rejected without a network call.
func (r *Repository) Rename(ctx context.Context, id, title string, identity *model.Identity) (model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Conversation{}, ErrEmptyTitle
	}

	if cur, ok := r.Get(id); ok && cur.Title == title {
		return cur.Meta(), nil
	}

	return r.update(ctx, id, identity, mutation{
		op:      "rename",
		patch:   api.TitlePatch(title),
		apply:   func(c *model.Conversation) { c.Title = title },
		holds:   func(c model.Conversation) bool { return c.Title == title },
		restore: func(c *model.Conversation, prev model.Conversation) { c.Title = prev.Title },
		confirm: func(c *model.Conversation, server model.Conversation) {
			if server.Title != "" {
				c.Title = server.Title
			}
		},
	})
}

// SetUseful marks or unmarks a conversation as useful.
func (r *Repository) SetUseful(ctx context.Context, id string, useful bool, identity *model.Identity) (model.Conversation, error) {
	return r.update(ctx, id, identity, mutation{
		op:      "favorite",
		patch:   api.UsefulPatch(useful),
		apply:   func(c *model.Conversation) { c.IsUseful = useful },
		holds:   func(c model.Conversation) bool { return c.IsUseful == useful },
		restore: func(c *model.Conversation, prev model.Conversation) { c.IsUseful = prev.IsUseful },
		confirm: func(c *model.Conversation, server model.Conversation) { c.IsUseful = server.IsUseful },
	})
}

func (r *Repository) update(ctx context.Context, id string, identity *model.Identity, m mutation) (model.Conversation, error) {
	if !identity.Valid() {
		return model.Conversation{}, api.ErrAuth
	}

	// Optimistic apply.
	r.mu.Lock()
	idx := model.IndexOf(r.items, id)
	if idx < 0 {
		r.mu.Unlock()
		return model.Conversation{}, ErrUnknownConversation
	}
	prev := r.items[idx].Meta()
	m.apply(&r.items[idx])
	ch := r.changedLocked()
	r.mu.Unlock()
	r.emit(ch)

	server, err := r.backend.UpdateConversation(ctx, id, m.patch, identity)

	if err == nil {
		r.mu.Lock()
		result := server
		if i := model.IndexOf(r.items, id); i >= 0 {
			if m.holds(r.items[i]) {
				m.confirm(&r.items[i], server)
			}
			result = r.items[i].Meta()
		}
		ch = r.changedLocked()
		r.mu.Unlock()
		r.emit(ch)
		return result, nil
	}

	if errors.Is(err, api.ErrNotFound) {
		r.forget(id)
		return model.Conversation{}, &NotFound{ID: id}
	}

	// Rollback. Last write wins: a newer value is left alone.
	r.mu.Lock()
	if i := model.IndexOf(r.items, id); i >= 0 && m.holds(r.items[i]) {
		m.restore(&r.items[i], prev)
	}
	ch = r.changedLocked()
	r.mu.Unlock()
	r.emit(ch)

	log.Warn().Err(err).Str("op", m.op).Str("conversation_id", id).Msg("mutation rolled back")
	r.notifier.Notify(bus.Error(failureText(m.op)))
	return model.Conversation{}, &PersistenceConflict{Op: m.op, ID: id, Err: err}
}

// Delete removes a conversation. The entry leaves the list immediately and
// returns to its old position if the backend refuses.
func (r *Repository) Delete(ctx context.Context, id string, identity *model.Identity) error {
	if !identity.Valid() {
		return api.ErrAuth
	}

	r.mu.Lock()
	idx := model.IndexOf(r.items, id)
	if idx < 0 {
		r.mu.Unlock()
		return ErrUnknownConversation
	}
	removed := r.items[idx]
	r.items = slices.Delete(r.items, idx, idx+1)
	ch := r.changedLocked()
	r.mu.Unlock()
	r.emit(ch)

	err := r.backend.DeleteConversation(ctx, id, identity)

	if err == nil || errors.Is(err, api.ErrNotFound) {
		// A refresh that raced the delete may have brought the entry back.
		r.mu.Lock()
		if i := model.IndexOf(r.items, id); i >= 0 {
			r.items = slices.Delete(r.items, i, i+1)
		}
		ch = r.changedLocked()
		removedObservers := slices.Clone(r.onRemoved)
		r.mu.Unlock()

		r.emit(ch)
		for _, fn := range removedObservers {
			fn(id)
		}
		if err != nil {
			return &NotFound{ID: id}
		}
		r.notifier.Notify(bus.Success("Conversation deleted"))
		return nil
	}

	r.mu.Lock()
	if model.IndexOf(r.items, id) < 0 {
		pos := min(idx, len(r.items))
		r.items = slices.Insert(r.items, pos, removed)
	}
	ch = r.changedLocked()
	r.mu.Unlock()
	r.emit(ch)

	log.Warn().Err(err).Str("conversation_id", id).Msg("delete rolled back")
	r.notifier.Notify(bus.Error(failureText("delete")))
	return &PersistenceConflict{Op: "delete", ID: id, Err: err}
}

// forget drops id after the server reported it missing.
func (r *Repository) forget(id string) {
	r.mu.Lock()
	if i := model.IndexOf(r.items, id); i >= 0 {
		r.items = slices.Delete(r.items, i, i+1)
	}
	ch := r.changedLocked()
	removedObservers := slices.Clone(r.onRemoved)
	r.mu.Unlock()

	r.emit(ch)
	for _, fn := range removedObservers {
		fn(id)
	}
	log.Info().Str("conversation_id", id).Msg("conversation vanished on server")
	r.notifier.Notify(bus.Info("That conversation no longer exists"))
}

// change is a list snapshot waiting to be delivered to observers.
type change struct {
	version   uint64
	list      []model.Conversation
	observers []func([]model.Conversation)
}

// changedLocked bumps the version and captures a snapshot.
func (r *Repository) changedLocked() change {
	r.version++
	return change{
		version:   r.version,
		list:      model.CloneConversations(r.items),
		observers: slices.Clone(r.onChange),
	}
}

// emit delivers ch unless a newer snapshot has already gone out.
// Observers must not call back into the repository's mutating methods.
func (r *Repository) emit(ch change) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if ch.version <= r.emitted {
		return
	}
	r.emitted = ch.version
	for _, fn := range ch.observers {
		fn(model.CloneConversations(ch.list))
	}
}

func failureText(op string) string {
	switch op {
	case "rename":
		return "Could not rename the conversation"
	case "favorite":
		return "Could not update favorites"
	case "delete":
		return "Could not delete the conversation"
	default:
		return "Could not save your change"
	}
}
