// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
	"github.com/jeranaias/pmassist-tui/internal/ui/styles"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		return m.applySnapshot(session.Snapshot(msg)), nil

	case ConversationsMsg:
		m.clampCursor()
		return m, nil

	case NotificationMsg:
		return m.pushToast(bus.Notification(msg))

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case ConfigReloadedMsg:
		return m.applyConfig(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snap.Busy() {
			m.refreshTranscript()
		}
		return m, cmd
	}

	return m.updateFocused(msg)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit
	case msg.Type == tea.KeyCtrlC && !m.snap.Busy() && m.focus == focusInput && m.input.Value() == "":
		return m, tea.Quit
	case key.Matches(msg, m.keys.ToggleSidebar):
		if !m.side.Toggle() && m.focus != focusInput {
			m.focusOn(focusInput)
		}
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		m.cancelMgr.cancel()
		return m, m.newChatCmd()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusRename:
		return m.handleRenameKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.snap.Busy() {
			m.cancelMgr.cancel()
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			m.input.Reset()
		}
		return m, nil
	case key.Matches(msg, m.keys.SwitchFocus):
		if m.side.State().Open {
			m.focusOn(focusSidebar)
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}
	return m.updateFocused(msg)
}

// submit sends the input. The controller rejects what it cannot take, so the
// checks here only keep the typed text from being lost.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.snap.Busy() {
		return m, nil
	}
	if !m.snap.CanSend {
		return m.pushToast(bus.Info("This shared conversation is read-only. Press Ctrl+N to start your own."))
	}
	m.input.Reset()
	return m, m.sendCmd(text)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.side.State()
	selected, hasSelection := m.selected()

	if st.PendingDelete != "" {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m, m.deleteCmd()
		case key.Matches(msg, m.keys.Decline):
			m.side.CancelDelete()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if st.MenuID != "" {
			m.side.CloseMenu()
			return m, nil
		}
		m.focusOn(focusInput)
	case key.Matches(msg, m.keys.SwitchFocus):
		m.side.CloseMenu()
		m.focusOn(focusInput)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.side.CloseMenu()
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.side.Visible())-1 {
			m.cursor++
		}
		m.side.CloseMenu()
	case key.Matches(msg, m.keys.NextTab):
		m.side.NextTab()
		m.cursor = 0
	case key.Matches(msg, m.keys.Search):
		m.search.SetValue(st.Filter.SearchTerm)
		m.focusOn(focusSearch)
	case !hasSelection:
	case key.Matches(msg, m.keys.Open):
		m.side.CloseMenu()
		m.focusOn(focusInput)
		m.cancelMgr.cancel()
		return m, m.openCmd(selected)
	case key.Matches(msg, m.keys.Menu):
		m.side.ToggleMenu(selected)
	case key.Matches(msg, m.keys.Rename):
		if m.side.BeginRename(selected) {
			m.rename.SetValue(m.side.State().Editing.Draft)
			m.rename.CursorEnd()
			m.focusOn(focusRename)
		}
	case key.Matches(msg, m.keys.Favorite):
		return m, m.favoriteCmd(selected)
	case key.Matches(msg, m.keys.Delete):
		m.side.RequestDelete(selected)
	case key.Matches(msg, m.keys.Share):
		m.side.CloseMenu()
		return m.share(selected)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.focusOn(focusSidebar)
		return m, nil
	}
	next, cmd := m.updateFocused(msg)
	nm := next.(Model)
	nm.side.SetSearch(nm.search.Value())
	nm.clampCursor()
	return nm, cmd
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.side.SetDraft(m.rename.Value())
		m.focusOn(focusSidebar)
		return m, m.renameCmd()
	case tea.KeyEsc:
		m.side.CancelRename()
		m.focusOn(focusSidebar)
		return m, nil
	}
	next, cmd := m.updateFocused(msg)
	nm := next.(Model)
	nm.side.SetDraft(nm.rename.Value())
	return nm, cmd
}

// updateFocused routes anything else to the focused text input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	case focusSearch:
		m.search, cmd = m.search.Update(msg)
	case focusRename:
		m.rename, cmd = m.rename.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusOn(f focus) {
	m.focus = f
	m.input.Blur()
	m.search.Blur()
	m.rename.Blur()
	switch f {
	case focusInput:
		m.input.Focus()
	case focusSearch:
		m.search.Focus()
	case focusRename:
		m.rename.Focus()
	}
}

// =============================================================================
// STATE UPDATES
// =============================================================================

// applySnapshot installs a newer snapshot. A failed send hands its question
// back to an empty input.
func (m Model) applySnapshot(s session.Snapshot) Model {
	if s.Seq <= m.snap.Seq {
		return m
	}
	m.snap = s
	if s.Input != "" && m.input.Value() == "" {
		m.input.SetValue(s.Input)
		m.input.CursorEnd()
	}
	m.identity = s.Identity
	m.refreshTranscript()
	return m
}

func (m Model) pushToast(n bus.Notification) (tea.Model, tea.Cmd) {
	if n.TTL <= 0 {
		n.TTL = bus.DefaultNotificationTTL
	}
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toast{id: id, n: n})
	return m, tea.Tick(n.TTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m Model) share(id string) (tea.Model, tea.Cmd) {
	link := m.repo.ShareLink(id)
	if err := m.copy(link); err != nil {
		log.Debug().Err(err).Msg("clipboard unavailable")
		return m.pushToast(bus.Info("Share link: " + link))
	}
	return m.pushToast(bus.Success("Link copied"))
}

// handleActionDone surfaces results the bus did not already report. The
// repository notifies its own failures.
func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.op == "send" {
		m.cancelMgr.cancel()
	}
	err := msg.err
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, conversation.ErrEmptyTitle):
		return m.pushToast(bus.Error("Title cannot be empty"))
	case errors.Is(err, session.ErrReadOnly):
		return m.pushToast(bus.Info("This shared conversation is read-only."))
	case errors.Is(err, api.ErrAuth) && msg.op == "open":
		return m.pushToast(bus.Info("Sign in to open saved conversations."))
	}
	log.Debug().Err(err).Str("op", msg.op).Msg("action finished with error")
	return m, nil
}

// applyConfig picks up UI settings and identity changes from the config
// file.
func (m Model) applyConfig(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m.pushToast(bus.Error("Config not reloaded: " + msg.Err.Error()))
	}
	cfg := msg.Config
	if cfg.UI.Theme != m.ui.Theme {
		m.setTheme(styles.NewTheme(cfg.UI.Theme))
	}
	m.ui = cfg.UI
	m.refreshTranscript()

	var cmds []tea.Cmd
	next := cfg.UserIdentity()
	if identityChanged(m.identity, next) {
		cmds = append(cmds, m.identityCmd(next))
	}
	nm, toastCmd := m.pushToast(bus.Info("Configuration reloaded"))
	cmds = append(cmds, toastCmd)
	return nm, tea.Batch(cmds...)
}

func identityChanged(a, b *model.Identity) bool {
	if !a.Valid() || !b.Valid() {
		return a.Valid() != b.Valid()
	}
	return a.ID != b.ID || a.Name != b.Name
}

func (m *Model) setTheme(t *styles.Theme) {
	m.theme = t
	t.StyleInput(&m.input)
	t.StyleInput(&m.search)
	t.StyleInput(&m.rename)
	m.spinner.Style = t.AgentLabel
	m.md = newMarkdownCache()
}

func (m *Model) clampCursor() {
	n := len(m.side.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selected returns the id under the cursor.
func (m Model) selected() (string, bool) {
	rows := m.side.Visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return "", false
	}
	return rows[m.cursor].ID, true
}
