// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
	"github.com/jeranaias/pmassist-tui/internal/sidebar"
	"github.com/jeranaias/pmassist-tui/internal/storage"
)

// =============================================================================
// HARNESS
// =============================================================================

type backend struct {
	mu      sync.Mutex
	answer  string
	deleted []string
	patches []map[string]any
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/ask-stream":
		io.WriteString(w, b.answer)
	case r.Method == http.MethodGet && r.URL.Path == "/api/conversations":
		io.WriteString(w, `[{"id": "c-1", "title": "Sprint planning", "is_useful": true},
			{"id": "c-2", "title": "Budget review"}]`)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
		io.WriteString(w, `{"conversation_id": "c-1", "messages": [
			{"role": "user", "content": "Shared question"},
			{"role": "assistant", "content": "Shared answer"}]}`)
	case r.Method == http.MethodPut:
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		b.patches = append(b.patches, patch)
		patch["id"] = strings.TrimPrefix(r.URL.Path, "/api/conversations/")
		json.NewEncoder(w).Encode(patch)
	case r.Method == http.MethodDelete:
		b.deleted = append(b.deleted, strings.TrimPrefix(r.URL.Path, "/api/conversations/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type harness struct {
	backend *backend
	repo    *conversation.Repository
	ctrl    *session.Controller
	side    *sidebar.Sidebar
	copied  []string

	mu    sync.Mutex
	snaps []session.Snapshot
}

func newHarness(t *testing.T, identity *model.Identity, sharedID string) (*harness, Model) {
	t.Helper()
	h := &harness{backend: &backend{
		answer: "data: {\"chunk\": \"Hello \"}\n" +
			"data: {\"chunk\": \"world\"}\n" +
			"data: {\"done\": true, \"sources\": [{\"title\": \"Scrum Guide\", \"url\": \"https://scrum.org\", \"score\": 0.91}]}\n",
	}}
	server := httptest.NewServer(h.backend)
	t.Cleanup(server.Close)

	client := api.NewClient(server.URL).WithRateLimit(0)
	drafts := storage.NewDraftStore(storage.NewMemoryKV())
	h.repo = conversation.NewRepository(client).WithPublicURL("https://share.example.org/c")
	h.side = sidebar.New(h.repo, drafts)
	h.ctrl = session.New(session.Config{
		Streamer: client,
		Repo:     h.repo,
		Drafts:   drafts,
		Identity: identity,
		SharedID: sharedID,
		Sink: session.SinkFunc(func(s session.Snapshot) {
			h.mu.Lock()
			h.snaps = append(h.snaps, s)
			h.mu.Unlock()
		}),
	})

	ui := config.Default().UI
	ui.RenderMarkdown = false
	m := New(context.Background(), Deps{
		Controller: h.ctrl,
		Sidebar:    h.side,
		Repo:       h.repo,
		UI:         ui,
		Identity:   identity,
		Copy: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h, next.(Model)
}

// lastSnapshot feeds the newest published snapshot into m.
func (h *harness) lastSnapshot(m Model) Model {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.snaps) == 0 {
		return m
	}
	next, _ := m.Update(SnapshotMsg(h.snaps[len(h.snaps)-1]))
	return next.(Model)
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runAction(t *testing.T, cmd tea.Cmd) actionDoneMsg {
	t.Helper()
	require.NotNil(t, cmd)
	done, ok := cmd().(actionDoneMsg)
	require.True(t, ok)
	return done
}

var alice = &model.Identity{ID: "u-alice", Name: "Alice"}

// =============================================================================
// SEND
// =============================================================================

func TestSubmit_StreamsAnswerIntoTranscript(t *testing.T) {
	h, m := newHarness(t, nil, "")
	m.input.SetValue("What is a sprint?")

	m, cmd := press(m, "enter")
	assert.Empty(t, m.input.Value())

	done := runAction(t, cmd)
	assert.Equal(t, "send", done.op)
	require.NoError(t, done.err)

	m = h.lastSnapshot(m)
	view := m.View()
	assert.Contains(t, view, "What is a sprint?")
	assert.Contains(t, view, "Hello world")
	assert.Contains(t, view, "[0.91] Scrum Guide")
}

func TestSubmit_FailureRestoresQuestion(t *testing.T) {
	h, m := newHarness(t, nil, "")
	h.backend.answer = "data: {\"error\": \"quota exceeded\"}\n"
	m.input.SetValue("Why?")

	m, cmd := press(m, "enter")
	done := runAction(t, cmd)
	var failure *session.StreamFailure
	require.ErrorAs(t, done.err, &failure)

	m = h.lastSnapshot(m)
	assert.Equal(t, "Why?", m.input.Value())
	assert.Contains(t, m.View(), "quota exceeded")
}

func TestSubmit_ReadOnlyShowsToast(t *testing.T) {
	_, m := newHarness(t, nil, "c-1")
	require.False(t, m.snap.CanSend)
	m.input.SetValue("can I write?")

	m, cmd := press(m, "enter")
	assert.NotNil(t, cmd)
	require.Len(t, m.toasts, 1)
	assert.Contains(t, m.toasts[0].n.Message, "read-only")
	assert.Equal(t, "can I write?", m.input.Value())

	next, _ := m.Update(toastExpiredMsg{id: m.toasts[0].id})
	assert.Empty(t, next.(Model).toasts)
}

func TestApplySnapshot_IgnoresStaleSequence(t *testing.T) {
	_, m := newHarness(t, nil, "")
	fresh := session.Snapshot{Seq: m.snap.Seq + 5, Messages: []model.Message{model.NewUserMessage("new")}}
	stale := session.Snapshot{Seq: m.snap.Seq + 1, Messages: []model.Message{model.NewUserMessage("old")}}

	m = m.applySnapshot(fresh)
	m = m.applySnapshot(stale)
	require.Len(t, m.snap.Messages, 1)
	assert.Equal(t, "new", m.snap.Messages[0].Content)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func signedIn(t *testing.T) (*harness, Model) {
	t.Helper()
	h, m := newHarness(t, alice, "")
	_, err := h.repo.Refresh(context.Background(), alice)
	require.NoError(t, err)
	next, _ := m.Update(ConversationsMsg(h.repo.List()))
	m = next.(Model)
	m, _ = press(m, "tab")
	require.Equal(t, focusSidebar, m.focus)
	return h, m
}

func TestSidebar_DeleteNeedsConfirmation(t *testing.T) {
	h, m := signedIn(t)
	id, ok := m.selected()
	require.True(t, ok)

	m, cmd := press(m, "d")
	assert.Nil(t, cmd)
	assert.Equal(t, id, m.side.State().PendingDelete)
	assert.Contains(t, m.View(), "Delete? y/n")

	m, _ = press(m, "n")
	assert.Empty(t, m.side.State().PendingDelete)
	assert.Empty(t, h.backend.deleted)

	m, _ = press(m, "d")
	_, cmd = press(m, "y")
	done := runAction(t, cmd)
	require.NoError(t, done.err)
	assert.Equal(t, []string{id}, h.backend.deleted)
	_, still := h.repo.Get(id)
	assert.False(t, still)
}

func TestSidebar_RenameInPlace(t *testing.T) {
	h, m := signedIn(t)
	id, _ := m.selected()

	m, _ = press(m, "r")
	require.Equal(t, focusRename, m.focus)
	m.rename.SetValue("Q3 roadmap")

	m, cmd := press(m, "enter")
	assert.Equal(t, focusSidebar, m.focus)
	require.NoError(t, runAction(t, cmd).err)

	c, ok := h.repo.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Q3 roadmap", c.Title)
}

func TestSidebar_BlankRenameToasts(t *testing.T) {
	_, m := signedIn(t)

	m, _ = press(m, "r")
	m.rename.SetValue("   ")
	m, cmd := press(m, "enter")
	done := runAction(t, cmd)
	assert.ErrorIs(t, done.err, conversation.ErrEmptyTitle)

	next, _ := m.Update(done)
	m = next.(Model)
	require.NotEmpty(t, m.toasts)
	assert.Equal(t, bus.NotifyError, m.toasts[len(m.toasts)-1].n.Kind)
}

func TestSidebar_ShareCopiesLink(t *testing.T) {
	h, m := signedIn(t)
	id, _ := m.selected()

	m, _ = press(m, "s")
	require.Equal(t, []string{"https://share.example.org/c/" + id}, h.copied)
	require.Len(t, m.toasts, 1)
	assert.Equal(t, "Link copied", m.toasts[0].n.Message)
}

func TestSidebar_TabAndSearchFilter(t *testing.T) {
	_, m := signedIn(t)

	m, _ = press(m, "t")
	assert.Equal(t, model.TabUseful, m.side.State().Filter.ActiveTab)
	rows := m.side.Visible()
	require.Len(t, rows, 1)
	assert.Equal(t, "c-1", rows[0].ID)

	m, _ = press(m, "t")
	m, _ = press(m, "/")
	require.Equal(t, focusSearch, m.focus)
	for _, r := range "budget" {
		m, _ = press(m, string(r))
	}
	rows = m.side.Visible()
	require.Len(t, rows, 1)
	assert.Equal(t, "c-2", rows[0].ID)

	m, _ = press(m, "enter")
	assert.Equal(t, focusSidebar, m.focus)
}

func TestSidebar_OpenActivatesConversation(t *testing.T) {
	h, m := signedIn(t)
	id, _ := m.selected()

	m, cmd := press(m, "enter")
	assert.Equal(t, focusInput, m.focus)
	require.NoError(t, runAction(t, cmd).err)
	assert.Equal(t, id, h.ctrl.Snapshot().ActiveID)
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func TestConfigReload_AppliesUISettingsAndIdentity(t *testing.T) {
	h, m := newHarness(t, nil, "")
	cfg := config.Default()
	cfg.UI.ShowScores = false
	cfg.Identity.UserID = "u-bob"

	next, cmd := m.Update(ConfigReloadedMsg{Config: cfg})
	m = next.(Model)
	assert.False(t, m.ui.ShowScores)
	require.NotEmpty(t, m.toasts)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	done, ok := batch[0]().(actionDoneMsg)
	require.True(t, ok)
	assert.Equal(t, "signin", done.op)
	assert.Equal(t, model.ModeAuthenticated, h.ctrl.Snapshot().Mode)
}

func TestConfigReload_ErrorToast(t *testing.T) {
	_, m := newHarness(t, nil, "")
	next, _ := m.Update(ConfigReloadedMsg{Err: io.ErrUnexpectedEOF})
	m = next.(Model)
	require.Len(t, m.toasts, 1)
	assert.Equal(t, bus.NotifyError, m.toasts[0].n.Kind)
}

func TestIdentityChanged(t *testing.T) {
	assert.False(t, identityChanged(nil, nil))
	assert.False(t, identityChanged(nil, &model.Identity{}))
	assert.True(t, identityChanged(nil, alice))
	assert.True(t, identityChanged(alice, &model.Identity{ID: "u-alice", Name: "A."}))
	assert.False(t, identityChanged(alice, &model.Identity{ID: "u-alice", Name: "Alice"}))
}
