// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
	"github.com/jeranaias/pmassist-tui/internal/sidebar"
	"github.com/jeranaias/pmassist-tui/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// SidebarWidth is the sidebar's column count including its border.
	SidebarWidth = 34

	// MaxInputLength caps a single question.
	MaxInputLength = 4000

	minTranscriptWidth = 20
)

// focus is the component receiving keys.
type focus int

const (
	focusInput focus = iota
	focusSidebar
	focusSearch
	focusRename
)

// toast is a notification on screen.
type toast struct {
	id int
	n  bus.Notification
}

// =============================================================================
// MODEL
// =============================================================================

// Deps wires a Model.
type Deps struct {
	Controller *session.Controller
	Sidebar    *sidebar.Sidebar
	Repo       *conversation.Repository
	UI         config.UIConfig
	Identity   *model.Identity

	// Copy puts text on the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

// Model is the Bubble Tea model of the interface.
type Model struct {
	ctrl *session.Controller
	side *sidebar.Sidebar
	repo *conversation.Repository

	ui       config.UIConfig
	identity *model.Identity
	theme    *styles.Theme
	keys     KeyMap

	viewport viewport.Model
	input    textinput.Model
	search   textinput.Model
	rename   textinput.Model
	spinner  spinner.Model

	snap   session.Snapshot
	focus  focus
	cursor int

	toasts    []toast
	nextToast int

	width  int
	height int
	ready  bool

	md        *markdownCache
	cancelMgr *cancelManager
	ctx       context.Context
	copy      func(string) error
}

// New creates the model. ctx bounds every command the model starts.
func New(ctx context.Context, d Deps) Model {
	theme := styles.NewTheme(d.UI.Theme)

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask about your project..."
	input.CharLimit = MaxInputLength
	theme.StyleInput(&input)
	input.Focus()

	search := textinput.New()
	search.Prompt = "search: "
	search.CharLimit = 200
	theme.StyleInput(&search)

	rename := textinput.New()
	rename.Prompt = "title: "
	rename.CharLimit = 200
	theme.StyleInput(&rename)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.AgentLabel

	cp := d.Copy
	if cp == nil {
		cp = clipboard.WriteAll
	}

	return Model{
		ctrl:      d.Controller,
		side:      d.Sidebar,
		repo:      d.Repo,
		ui:        d.UI,
		identity:  d.Identity,
		theme:     theme,
		keys:      DefaultKeyMap(),
		viewport:  viewport.New(80, 20),
		input:     input,
		search:    search,
		rename:    rename,
		spinner:   sp,
		snap:      d.Controller.Snapshot(),
		md:        newMarkdownCache(),
		cancelMgr: newCancelManager(),
		ctx:       ctx,
		copy:      cp,
	}
}

// Init starts the controller and the cursor and spinner ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.startCmd(),
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) startCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: "start", err: ctrl.Start(ctx)}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	ctrl := m.ctrl
	ctx := m.cancelMgr.begin(m.ctx)
	return func() tea.Msg {
		return actionDoneMsg{op: "send", err: ctrl.Send(ctx, text)}
	}
}

func (m Model) openCmd(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: "open", err: ctrl.ActivateConversation(ctx, id)}
	}
}

func (m Model) newChatCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.NewChat()
		return actionDoneMsg{op: "new"}
	}
}

func (m Model) renameCmd() tea.Cmd {
	side, ctx, identity := m.side, m.ctx, m.identity
	return func() tea.Msg {
		return actionDoneMsg{op: "rename", err: side.CommitRename(ctx, identity)}
	}
}

func (m Model) favoriteCmd(id string) tea.Cmd {
	side, ctx, identity := m.side, m.ctx, m.identity
	return func() tea.Msg {
		return actionDoneMsg{op: "favorite", err: side.ToggleUseful(ctx, id, identity)}
	}
}

func (m Model) deleteCmd() tea.Cmd {
	side, ctx, identity := m.side, m.ctx, m.identity
	return func() tea.Msg {
		return actionDoneMsg{op: "delete", err: side.ConfirmDelete(ctx, identity)}
	}
}

func (m Model) identityCmd(identity *model.Identity) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if !identity.Valid() {
			return actionDoneMsg{op: "signout", err: ctrl.SignOut(ctx)}
		}
		return actionDoneMsg{op: "signin", err: ctrl.SignIn(ctx, identity)}
	}
}

// =============================================================================
// RUN
// =============================================================================

// Run starts the program on the alternate screen, forwards bus traffic into
// it and, when configPath is set, reloads UI settings on config changes.
func Run(ctx context.Context, d Deps, b *bus.Bus, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(New(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))
	if err := Attach(ctx, b, program.Send); err != nil {
		return err
	}
	if configPath != "" {
		w, err := WatchConfig(ctx, configPath, program.Send)
		if err == nil {
			defer w.Close()
		}
	}

	_, err := program.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
