// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"fmt"

	"github.com/jeranaias/pmassist-tui/internal/api"
)

var (
	// ErrEmptyTitle is returned when a rename would leave a blank title.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrUnknownConversation is returned when the id is not in the local list.
	ErrUnknownConversation = errors.New("conversation not in list")
)

// PersistenceConflict reports a mutation that failed after it was applied
// locally. The local change has been rolled back.
type PersistenceConflict struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceConflict) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceConflict) Unwrap() error {
	return e.Err
}

// NotFound reports that the conversation no longer exists remotely. It
// matches api.ErrNotFound.
type NotFound struct {
	ID string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("conversation %s not found", e.ID)
}

func (e *NotFound) Is(target error) bool {
	return target == api.ErrNotFound
}
