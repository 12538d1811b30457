// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// When stderr is a terminal the logger uses the human-friendly console
// writer. Otherwise it emits JSON lines. The TUI always logs to a file so
// log output never lands on top of the rendered screen.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Options controls Init.
type Options struct {
	// Level is a zerolog level name. Unknown names fall back to info.
	Level string

	// File, if set, receives all log output instead of stderr.
	File string

	// Quiet discards everything below error when no file is configured.
	Quiet bool
}

// Init installs the global logger and returns a closer for the log file.
func Init(opts Options) (io.Closer, error) {
	level := ParseLevel(opts.Level)
	if opts.Quiet && opts.File == "" && level < zerolog.ErrorLevel {
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer
	var closer io.Closer = nopCloser{}

	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, err
		}
		// SECURITY: Log files may contain conversation ids; owner-only access.
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		out = f
		closer = f
	case term.IsTerminal(int(os.Stderr.Fd())):
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	default:
		out = os.Stderr
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

// ParseLevel maps a level name onto a zerolog level.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
