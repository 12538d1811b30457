// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation prompts for destructive commands.

package cli

import (
	"bufio"
	"fmt"
	"strings"
)

// RequireConfirmation asks before a destructive action.
//
// With confirmFlag set it proceeds without asking. JSON mode and
// non-interactive input never prompt and require the flag instead.
func (a *App) RequireConfirmation(confirmFlag bool, action string, jsonMode bool) error {
	if confirmFlag {
		return nil
	}
	if jsonMode {
		return &UsageError{Message: "confirmation required in JSON mode", Usage: "add --confirm"}
	}
	// USABILITY: Cron jobs and pipes cannot answer a prompt.
	if !a.Interactive {
		return &UsageError{Message: "confirmation required but stdin is not a terminal", Usage: "add --confirm"}
	}

	if !a.PromptYesNo(fmt.Sprintf("Are you sure you want to %s?", action)) {
		return ErrCancelled
	}
	return nil
}

// PromptYesNo asks a yes/no question on the app's input. Anything but an
// explicit yes is a no.
func (a *App) PromptYesNo(question string) bool {
	if !a.Interactive {
		return false
	}
	fmt.Fprintf(a.Err, "%s [y/N]: ", question)

	input, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && input == "" {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
