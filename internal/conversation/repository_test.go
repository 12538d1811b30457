// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/model"
)

var alice = &model.Identity{ID: "user-alice"}

// fakeBackend scripts backend answers. hook, when set, runs inside the next
// mutating call before it returns, while the optimistic value is visible.
type fakeBackend struct {
	mu        sync.Mutex
	list      []model.Conversation
	messages  map[string][]model.Message
	updateErr error
	deleteErr error
	loadErr   error
	hook      func()
	calls     []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		list: []model.Conversation{
			{ID: "c-1", Title: "Sprint planning", IsUseful: true},
			{ID: "c-2", Title: "Клиентские требования", IsUseful: false},
			{ID: "c-3", Title: "Работа с клиентом", IsUseful: true},
		},
		messages: map[string][]model.Message{},
	}
}

func (f *fakeBackend) record(call string) func() {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.hook
	f.hook = nil
	f.mu.Unlock()
	if hook == nil {
		return func() {}
	}
	return hook
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListConversations(ctx context.Context, identity *model.Identity) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	return model.CloneConversations(f.list), nil
}

func (f *fakeBackend) LoadMessages(ctx context.Context, id string, identity *model.Identity) ([]model.Message, error) {
	f.record("load " + id)()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.messages[id], nil
}

func (f *fakeBackend) LoadPublicMessages(ctx context.Context, id string) ([]model.Message, error) {
	f.record("public " + id)()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.messages[id], nil
}

func (f *fakeBackend) UpdateConversation(ctx context.Context, id string, patch api.ConversationPatch, identity *model.Identity) (model.Conversation, error) {
	f.record("update " + id)()
	if f.updateErr != nil {
		return model.Conversation{}, f.updateErr
	}
	c := model.Conversation{ID: id}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.IsUseful != nil {
		c.IsUseful = *patch.IsUseful
	}
	return c, nil
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id string, identity *model.Identity) error {
	f.record("delete " + id)()
	return f.deleteErr
}

type recorder struct {
	mu    sync.Mutex
	notes []bus.Notification
}

func (r *recorder) Notify(n bus.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) All() []bus.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Notification(nil), r.notes...)
}

func newLoadedRepo(t *testing.T) (*Repository, *fakeBackend, *recorder) {
	t.Helper()
	backend := newFakeBackend()
	notes := &recorder{}
	repo := NewRepository(backend).WithNotifier(notes).WithPublicURL("https://pm.example.com/")
	_, err := repo.Refresh(context.Background(), alice)
	require.NoError(t, err)
	return repo, backend, notes
}

func title(t *testing.T, repo *Repository, id string) string {
	t.Helper()
	c, ok := repo.Get(id)
	require.True(t, ok, "conversation %s missing", id)
	return c.Title
}

// =============================================================================
// LIST
// =============================================================================

func TestRefresh(t *testing.T) {
	backend := newFakeBackend()
	repo := NewRepository(backend)

	_, err := repo.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, api.ErrAuth)
	assert.False(t, repo.Loaded())

	var seen [][]model.Conversation
	repo.OnChange(func(list []model.Conversation) { seen = append(seen, list) })

	list, err := repo.Refresh(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.True(t, repo.Loaded())
	assert.Equal(t, "c-1", repo.List()[0].ID)
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 3)

	repo.Reset()
	assert.Empty(t, repo.List())
	assert.False(t, repo.Loaded())
}

func TestFilter_UsefulTabWithCyrillicSearch(t *testing.T) {
	repo, _, _ := newLoadedRepo(t)

	got := repo.Filter(model.FilterState{SearchTerm: "клиент", ActiveTab: model.TabUseful})
	require.Len(t, got, 1)
	assert.Equal(t, "c-3", got[0].ID)

	got = repo.Filter(model.FilterState{SearchTerm: "КЛИЕНТ", ActiveTab: model.TabAll})
	assert.Len(t, got, 2)
}

func TestShareLink(t *testing.T) {
	repo, _, _ := newLoadedRepo(t)
	assert.Equal(t, "https://pm.example.com/c-1", repo.ShareLink("c-1"))
	assert.Equal(t, "https://pm.example.com/a%2Fb", repo.ShareLink("a/b"))
}

// =============================================================================
// RENAME / FAVORITE
// =============================================================================

func TestRename_AppliesOptimistically(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)

	var during string
	backend.hook = func() { during = title(t, repo, "c-1") }

	got, err := repo.Rename(context.Background(), "c-1", "  Retro notes  ", alice)
	require.NoError(t, err)
	assert.Equal(t, "Retro notes", during)
	assert.Equal(t, "Retro notes", got.Title)
	assert.Equal(t, "Retro notes", title(t, repo, "c-1"))
}

func TestRename_RollsBackOnFailure(t *testing.T) {
	repo, backend, notes := newLoadedRepo(t)
	backend.updateErr = &api.NetworkError{Op: "PUT", Err: errors.New("connection reset")}

	_, err := repo.Rename(context.Background(), "c-1", "Retro notes", alice)

	var conflict *PersistenceConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "rename", conflict.Op)
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, "Sprint planning", title(t, repo, "c-1"))

	all := notes.All()
	require.Len(t, all, 1)
	assert.Equal(t, bus.NotifyError, all[0].Kind)
}

func TestRename_RejectsBlankTitleLocally(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	before := len(backend.Calls())

	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := repo.Rename(context.Background(), "c-1", blank, alice)
		assert.ErrorIs(t, err, ErrEmptyTitle)
	}

	assert.Len(t, backend.Calls(), before)
	assert.Equal(t, "Sprint planning", title(t, repo, "c-1"))
}

func TestRename_UnchangedTitleSkipsNetwork(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	before := len(backend.Calls())

	got, err := repo.Rename(context.Background(), "c-1", "Sprint planning", alice)
	require.NoError(t, err)
	assert.Equal(t, "Sprint planning", got.Title)
	assert.Len(t, backend.Calls(), before)
}

func TestRename_RollbackKeepsNewerValue(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	backend.updateErr = errors.New("boom")

	// A refresh lands while the rename is in flight.
	backend.list[0].Title = "Renamed elsewhere"
	backend.hook = func() {
		_, err := repo.Refresh(context.Background(), alice)
		require.NoError(t, err)
	}

	_, err := repo.Rename(context.Background(), "c-1", "Mine", alice)
	require.Error(t, err)
	assert.Equal(t, "Renamed elsewhere", title(t, repo, "c-1"))
}

func TestRename_UnknownAndUnauthenticated(t *testing.T) {
	repo, _, _ := newLoadedRepo(t)

	_, err := repo.Rename(context.Background(), "nope", "x", alice)
	assert.ErrorIs(t, err, ErrUnknownConversation)

	_, err = repo.Rename(context.Background(), "c-1", "x", nil)
	assert.ErrorIs(t, err, api.ErrAuth)
	assert.Equal(t, "Sprint planning", title(t, repo, "c-1"))
}

func TestRename_NotFoundRemovesEntry(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	backend.updateErr = api.ErrNotFound

	var removed []string
	repo.OnRemoved(func(id string) { removed = append(removed, id) })

	_, err := repo.Rename(context.Background(), "c-2", "x", alice)
	var nf *NotFound
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, ok := repo.Get("c-2")
	assert.False(t, ok)
	assert.Equal(t, []string{"c-2"}, removed)
}

func TestSetUseful(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)

	got, err := repo.SetUseful(context.Background(), "c-2", true, alice)
	require.NoError(t, err)
	assert.True(t, got.IsUseful)

	backend.updateErr = errors.New("boom")
	_, err = repo.SetUseful(context.Background(), "c-2", false, alice)
	require.Error(t, err)

	c, _ := repo.Get("c-2")
	assert.True(t, c.IsUseful)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_ActiveObserverFiresExactlyOnce(t *testing.T) {
	repo, backend, notes := newLoadedRepo(t)

	active := "c-2"
	clears := 0
	repo.OnRemoved(func(id string) {
		if id == active {
			active = ""
			clears++
		}
	})

	var during int
	backend.hook = func() { during = len(repo.List()) }

	require.NoError(t, repo.Delete(context.Background(), "c-2", alice))
	assert.Equal(t, 2, during)
	assert.Equal(t, "", active)
	assert.Equal(t, 1, clears)

	err := repo.Delete(context.Background(), "c-2", alice)
	assert.ErrorIs(t, err, ErrUnknownConversation)
	assert.Equal(t, 1, clears)

	all := notes.All()
	require.Len(t, all, 1)
	assert.Equal(t, bus.NotifySuccess, all[0].Kind)
}

func TestDelete_FailureReinsertsAtOriginalIndex(t *testing.T) {
	repo, backend, notes := newLoadedRepo(t)
	backend.deleteErr = &api.APIError{Status: 500}

	removed := 0
	repo.OnRemoved(func(string) { removed++ })

	err := repo.Delete(context.Background(), "c-2", alice)
	var conflict *PersistenceConflict
	require.ErrorAs(t, err, &conflict)

	list := repo.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c-2", list[1].ID)
	assert.Zero(t, removed)
	assert.Equal(t, bus.NotifyError, notes.All()[0].Kind)
}

func TestDelete_NotFoundCountsAsRemoved(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	backend.deleteErr = api.ErrNotFound

	removed := 0
	repo.OnRemoved(func(string) { removed++ })

	err := repo.Delete(context.Background(), "c-1", alice)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Len(t, repo.List(), 2)
	assert.Equal(t, 1, removed)
}

func TestDelete_RaceWithRefreshStillRemoves(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	backend.hook = func() {
		_, err := repo.Refresh(context.Background(), alice)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Delete(context.Background(), "c-1", alice))
	_, ok := repo.Get("c-1")
	assert.False(t, ok)
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestLoadMessages(t *testing.T) {
	repo, backend, _ := newLoadedRepo(t)
	backend.messages["c-1"] = []model.Message{model.NewUserMessage("hi")}

	msgs, err := repo.LoadMessages(context.Background(), "c-1", alice)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	msgs, err = repo.LoadPublic(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Contains(t, backend.Calls(), "public c-1")
}

func TestLoadMessages_NotFoundForgetsEntry(t *testing.T) {
	repo, backend, notes := newLoadedRepo(t)
	backend.loadErr = api.ErrNotFound

	var removed []string
	repo.OnRemoved(func(id string) { removed = append(removed, id) })

	_, err := repo.LoadMessages(context.Background(), "c-3", alice)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, []string{"c-3"}, removed)
	assert.Len(t, repo.List(), 2)
	assert.Equal(t, bus.NotifyInfo, notes.All()[0].Kind)

	_, err = repo.LoadPublic(context.Background(), "shared")
	var nf *NotFound
	assert.ErrorAs(t, err, &nf)
}

func TestOnChange_NeverDeliversStaleSnapshot(t *testing.T) {
	repo, _, _ := newLoadedRepo(t)

	var mu sync.Mutex
	var lengths []int
	repo.OnChange(func(list []model.Conversation) {
		mu.Lock()
		lengths = append(lengths, len(list))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, id := range []string{"c-1", "c-2", "c-3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Delete(context.Background(), id, alice)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, lengths)
	for i := 1; i < len(lengths); i++ {
		assert.LessOrEqual(t, lengths[i], lengths[i-1])
	}
	assert.Equal(t, 0, lengths[len(lengths)-1])
}
