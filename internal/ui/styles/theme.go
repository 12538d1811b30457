// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/model"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Dim       lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarFocused  lipgloss.Style
	Tab             lipgloss.Style
	TabActive       lipgloss.Style
	Row             lipgloss.Style
	RowSelected     lipgloss.Style
	RowActive       lipgloss.Style
	UsefulMark      lipgloss.Style
	Menu            lipgloss.Style
	ConfirmDelete   lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel  lipgloss.Style
	AgentLabel lipgloss.Style
	ErrorLabel lipgloss.Style
	ErrorText  lipgloss.Style
	Sources    lipgloss.Style

	// ==========================================================================
	// INPUT AND TOASTS
	// ==========================================================================

	Input         lipgloss.Style
	InputPrompt   lipgloss.Style
	InputDisabled lipgloss.Style
	ToastInfo     lipgloss.Style
	ToastSuccess  lipgloss.Style
	ToastError    lipgloss.Style
}

// NewTheme creates a theme. name is "dark", "light" or "auto"; auto asks the
// terminal.
func NewTheme(name string) *Theme {
	isDark := true
	switch name {
	case "light":
		isDark = false
	case "dark":
	default:
		name = "auto"
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Name:         name,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Dim = lipgloss.NewStyle().Foreground(TextMuted)

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		PaddingRight(1)
	t.Sidebar = border.BorderForeground(Overlay)
	t.SidebarFocused = border.BorderForeground(Purple)
	t.Tab = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.TabActive = lipgloss.NewStyle().Foreground(Purple).Bold(true).Underline(true).Padding(0, 1)
	t.Row = lipgloss.NewStyle().Foreground(TextPrimary)
	t.RowSelected = lipgloss.NewStyle().Foreground(TextPrimary).Background(SurfaceBright)
	t.RowActive = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.UsefulMark = lipgloss.NewStyle().Foreground(Amber)
	t.Menu = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)
	t.ConfirmDelete = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AgentLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.ErrorLabel = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
	t.Sources = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.InputDisabled = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	toast := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.ToastInfo = toast.Foreground(Cyan)
	t.ToastSuccess = toast.Foreground(Emerald)
	t.ToastError = toast.Foreground(Rose)
}

// RoleLabel returns the label style for a message role.
func (t *Theme) RoleLabel(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleUser:
		return t.UserLabel
	case model.RoleError:
		return t.ErrorLabel
	default:
		return t.AgentLabel
	}
}

// Toast returns the style for a notification kind.
func (t *Theme) Toast(kind bus.NotificationKind) lipgloss.Style {
	switch kind {
	case bus.NotifySuccess:
		return t.ToastSuccess
	case bus.NotifyError:
		return t.ToastError
	default:
		return t.ToastInfo
	}
}

// Tier returns the style for a source relevance tier.
func (t *Theme) Tier(tier model.ScoreTier) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(TierColor(tier))
}

// StyleInput applies the theme to a text input.
func (t *Theme) StyleInput(in *textinput.Model) {
	in.PromptStyle = t.InputPrompt
	in.TextStyle = lipgloss.NewStyle().Foreground(TextPrimary)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(Purple)
}
