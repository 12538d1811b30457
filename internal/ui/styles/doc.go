// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the pmassist TUI.

# Color System (colors.go)

Accent colors carry meaning:

  - Cyan - brand and user messages
  - Purple - agent messages and selection
  - Emerald - success and high-relevance sources
  - Amber - useful marks and medium-relevance sources
  - Rose - errors and delete confirmation

TierColor maps a source score tier onto that palette.

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	label := theme.RoleLabel(msg.Role).Render(msg.Role.DisplayName())
*/
package styles
