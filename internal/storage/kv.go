// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// KV CAPABILITY
// =============================================================================

// KV is the injected key/value capability behind the draft store.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the stored value or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Set overwrites the value for key.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// ErrKeyNotFound is returned by Get when a key has no value.
var ErrKeyNotFound = errors.New("key not found")

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates a KV for the named backend. path is ignored for memory.
func Open(backend, path string) (KV, error) {
	path = expandHome(path)
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile, "":
		return NewFileKV(path)
	case BackendSQLite:
		return NewSQLiteKV(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Close releases backend resources when the KV holds any.
func Close(kv KV) error {
	if c, ok := kv.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
