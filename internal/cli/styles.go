// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for CLI output.
//
// USABILITY: Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(14)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// UserStyle prefixes the user's turns in transcripts
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")) // Blue

	// AgentStyle prefixes the assistant's turns
	AgentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("141")) // Purple

	// UsefulStyle marks conversations flagged useful
	UsefulStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")) // Gold
)

// TierStyle returns the style for a source score tier.
func TierStyle(t model.ScoreTier) lipgloss.Style {
	switch t {
	case model.TierHigh:
		return SuccessStyle
	case model.TierMedium:
		return WarningStyle
	default:
		return DimStyle
	}
}

// RoleStyle returns the label style for a message role.
func RoleStyle(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleUser:
		return UserStyle
	case model.RoleError:
		return ErrorStyle
	default:
		return AgentStyle
	}
}

// RenderSeparator renders a horizontal separator line.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// style renders text with s only when the app's output is rich.
func (a *App) style(s lipgloss.Style, text string) string {
	if !a.Rich {
		return text
	}
	return s.Render(text)
}
