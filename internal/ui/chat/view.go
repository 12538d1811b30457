// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/sidebar"
	"github.com/jeranaias/pmassist-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	inputHeight  = 2
	statusHeight = 1
)

// transcriptWidth is the width left for the transcript.
func (m Model) transcriptWidth() int {
	w := m.width
	if m.side.State().Open {
		w -= SidebarWidth
	}
	if w < minTranscriptWidth {
		w = minTranscriptWidth
	}
	return w
}

func (m *Model) layout() {
	h := m.height - headerHeight - inputHeight - statusHeight
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = h
	m.input.Width = m.transcriptWidth() - 4
	m.refreshTranscript()
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the interface.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderInput(),
	)
	body := main
	if m.side.State().Open {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	title := "pmassist"
	if c, ok := m.repo.Get(m.snap.ActiveID); ok && m.snap.ActiveID != "" {
		title += " · " + c.DisplayTitle()
	}
	right := m.snap.Mode.String()
	if m.identity.Valid() {
		right = m.identity.Name
		if right == "" {
			right = m.identity.ID
		}
	}
	gap := m.width - util.StringWidth(title) - util.StringWidth(right) - 2
	if gap < 1 {
		title = util.TruncateWidth(title, m.width-util.StringWidth(right)-3)
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) renderInput() string {
	w := m.transcriptWidth()
	if !m.snap.CanSend {
		return m.theme.Input.Width(w).Render(m.theme.InputDisabled.Render("Read-only shared conversation. Ctrl+N starts a new chat."))
	}
	line := m.input.View()
	if m.snap.Busy() {
		line = m.spinner.View() + " " + m.theme.Dim.Render("answering... Esc to cancel")
	}
	return m.theme.Input.Width(w).Render(line)
}

// renderStatus shows the newest toast, or key hints for the focused area.
func (m Model) renderStatus() string {
	if n := len(m.toasts); n > 0 {
		t := m.toasts[n-1].n
		return m.theme.StatusBar.Width(m.width).Render(m.theme.Toast(t.Kind).Render(t.Message))
	}

	bindings := m.keys.inputHelp()
	if m.focus != focusInput {
		bindings = m.keys.sidebarHelp()
	}
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(strings.Join(hints, "  "), m.width-2))
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	st := m.side.State()
	inner := SidebarWidth - 2
	height := m.height - headerHeight - statusHeight

	var b strings.Builder
	all, useful := m.theme.Tab, m.theme.Tab
	if st.Filter.ActiveTab == model.TabUseful {
		useful = m.theme.TabActive
	} else {
		all = m.theme.TabActive
	}
	b.WriteString(all.Render("All") + useful.Render("Useful") + "\n")

	switch {
	case m.focus == focusSearch:
		b.WriteString(m.search.View() + "\n")
	case st.Filter.SearchTerm != "":
		b.WriteString(m.theme.Dim.Render(util.FitWidth("search: "+st.Filter.SearchTerm, inner)) + "\n")
	}

	if !m.identity.Valid() {
		b.WriteString(m.theme.Dim.Render("Set identity.user_id to keep\nyour conversations."))
	} else {
		rows := m.side.Visible()
		if len(rows) == 0 {
			b.WriteString(m.theme.Dim.Render("No conversations"))
		}
		for i, c := range rows {
			b.WriteString(m.renderRow(i, c, st, inner))
		}
	}

	style := m.theme.Sidebar
	if m.focus != focusInput {
		style = m.theme.SidebarFocused
	}
	return style.Width(SidebarWidth - 1).Height(height).MaxHeight(height).Render(b.String())
}

func (m Model) renderRow(i int, c model.Conversation, st sidebar.State, width int) string {
	if st.Editing != nil && st.Editing.ID == c.ID && m.focus == focusRename {
		return m.rename.View() + "\n"
	}

	mark := "  "
	if c.IsUseful {
		mark = m.theme.UsefulMark.Render("★ ")
	}
	title := util.FitWidth(util.SingleLine(c.DisplayTitle()), width-2)

	style := m.theme.Row
	switch {
	case i == m.cursor && m.focus != focusInput:
		style = m.theme.RowSelected
	case c.ID == m.snap.ActiveID:
		style = m.theme.RowActive
	}
	line := mark + style.Render(title) + "\n"

	switch {
	case st.PendingDelete == c.ID:
		line += m.theme.ConfirmDelete.Render("  Delete? y/n") + "\n"
	case st.MenuID == c.ID:
		hints := []key.Binding{m.keys.Rename, m.keys.Favorite, m.keys.Delete, m.keys.Share}
		parts := make([]string, 0, len(hints))
		for _, h := range hints {
			parts = append(parts, h.Help().Key+" "+h.Help().Desc)
		}
		line += m.theme.Menu.Render(util.TruncateWidth(strings.Join(parts, " "), width-2)) + "\n"
	}
	return line
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript re-renders the messages into the viewport, following
// the tail when it was already there.
func (m *Model) refreshTranscript() {
	if m.viewport.Width <= 0 {
		return
	}
	follow := m.viewport.AtBottom() || m.snap.Busy()
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTranscript(width int) string {
	if len(m.snap.Messages) == 0 {
		return m.theme.Dim.Render(m.welcomeText())
	}

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.RoleLabel(msg.Role).Render(msg.Role.DisplayName()) + "\n")
		b.WriteString(m.renderContent(msg, width))
		b.WriteString(m.renderSources(msg.Sources))
	}
	return b.String()
}

func (m Model) renderContent(msg model.Message, width int) string {
	body := lipgloss.NewStyle().Width(width - 1)
	switch {
	case msg.Role == model.RoleError:
		return m.theme.ErrorText.Width(width-1).Render(msg.Content) + "\n"
	case msg.Streaming && msg.Content == "":
		return m.spinner.View() + "\n"
	case msg.Role == model.RoleAgent && !msg.Streaming && m.ui.RenderMarkdown:
		// PERFORMANCE: only settled answers go through glamour
		if out, ok := m.md.render(msg.Content, m.ui.Theme, width-2); ok {
			return out
		}
	}
	return body.Render(msg.Content) + "\n"
}

func (m Model) renderSources(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.Dim.Render("Sources:") + "\n")
	for _, s := range sources {
		s = s.Clamped()
		line := s.Title
		if m.ui.ShowScores {
			line = fmt.Sprintf("[%.2f] %s", s.Score, s.Title)
		}
		if s.URL != "" {
			line += "  " + m.theme.Dim.Render(s.URL)
		}
		b.WriteString(m.theme.Sources.Render(m.theme.Tier(s.Tier()).Render(line)) + "\n")
	}
	return b.String()
}

func (m Model) welcomeText() string {
	switch m.snap.Mode {
	case model.ModePublicReadOnly:
		return "Loading shared conversation..."
	case model.ModeAuthenticated:
		name := m.identity.Name
		if name == "" {
			name = m.identity.ID
		}
		return fmt.Sprintf("Hi %s. Ask a question about your project, or pick a conversation on the left.", name)
	default:
		return "Ask a question about your project. This chat is kept on this machine only."
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownCache keeps one glamour renderer per theme and width, plus the
// last rendering of each settled answer.
type markdownCache struct {
	mu        sync.Mutex
	renderers map[string]*glamour.TermRenderer
	rendered  map[string]string
}

func newMarkdownCache() *markdownCache {
	return &markdownCache{
		renderers: map[string]*glamour.TermRenderer{},
		rendered:  map[string]string{},
	}
}

const maxRenderedEntries = 256

func (c *markdownCache) render(content, theme string, width int) (string, bool) {
	if width < 10 {
		return "", false
	}
	rkey := fmt.Sprintf("%s/%d", theme, width)
	ckey := rkey + "/" + content

	c.mu.Lock()
	defer c.mu.Unlock()
	if out, ok := c.rendered[ckey]; ok {
		return out, true
	}

	r, ok := c.renderers[rkey]
	if !ok {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
		switch theme {
		case "light", "dark":
			opts = append(opts, glamour.WithStandardStyle(theme))
		default:
			opts = append(opts, glamour.WithAutoStyle())
		}
		var err error
		if r, err = glamour.NewTermRenderer(opts...); err != nil {
			return "", false
		}
		c.renderers[rkey] = r
	}

	out, err := r.Render(content)
	if err != nil {
		return "", false
	}
	out = strings.Trim(out, "\n") + "\n"
	if len(c.rendered) >= maxRenderedEntries {
		c.rendered = map[string]string{}
	}
	c.rendered[ckey] = out
	return out, true
}
