// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/export"
	"github.com/jeranaias/pmassist-tui/internal/session"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitUsageError     = 2
	ExitConfigError    = 3
	ExitAuthError      = 4
	ExitNetworkError   = 5
	ExitAnswerError    = 6
	ExitNotFoundError  = 7
	ExitCancelledError = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\n  Usage: %s", e.Message, e.Usage)
	}
	return e.Message
}

// ErrMissingArgument creates a usage error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: "missing required argument: " + argName, Usage: usage}
}

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format.
func (a *App) DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		writeErrorJSON(a.Out, err)
		return
	}
	fmt.Fprintf(a.Err, "%s %s\n", a.style(ErrorStyle, "[ERROR]"), err.Error())
}

func writeErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"success":    false,
		"error":      err.Error(),
		"error_type": errorType(err),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "usage_error"
	case ExitConfigError:
		return "config_error"
	case ExitAuthError:
		return "auth_error"
	case ExitNetworkError:
		return "network_error"
	case ExitAnswerError:
		return "answer_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitCancelledError:
		return "cancelled"
	default:
		return "generic_error"
	}
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var validateErrs config.ValidateErrors
	var notFound *conversation.NotFound
	var streamFailure *session.StreamFailure
	var answerErr *AnswerError

	switch {
	case errors.As(err, &usageErr), errors.Is(err, conversation.ErrEmptyTitle):
		return ExitUsageError
	case errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.Is(err, api.ErrAuth):
		return ExitAuthError
	case errors.As(err, &notFound), errors.Is(err, api.ErrNotFound), errors.Is(err, conversation.ErrUnknownConversation),
		errors.Is(err, export.ErrEmptyTranscript):
		return ExitNotFoundError
	case errors.Is(err, api.ErrNetwork):
		return ExitNetworkError
	case errors.As(err, &streamFailure), errors.As(err, &answerErr):
		return ExitAnswerError
	case errors.Is(err, ErrCancelled):
		return ExitCancelledError
	default:
		return ExitGeneralError
	}
}
