// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across pmassist.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, FitWidth: cell-accurate fitting for terminal columns
//   - SingleLine: flattens multi-line text for one-row previews
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	row := util.FitWidth(conv.Title, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
