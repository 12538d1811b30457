// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/storage"
)

// App carries the collaborators every command runs against.
type App struct {
	Config   *config.Config
	Client   *api.Client
	Repo     *conversation.Repository
	Drafts   *storage.DraftStore
	Identity *model.Identity

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive allows prompts on In.
	Interactive bool

	// Rich enables colors and markdown rendering on Out.
	Rich bool
}

// NewClient builds the backend client described by cfg.
func NewClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.Backend.URL).
		WithTimeout(cfg.Timeout()).
		WithMaxRetries(cfg.Backend.MaxRetries).
		WithRateLimit(cfg.Backend.RequestsPerSecond)
}

// NewApp wires an App for the process's standard streams.
func NewApp(cfg *config.Config, drafts *storage.DraftStore) *App {
	client := NewClient(cfg)
	app := &App{
		Config:      cfg,
		Client:      client,
		Drafts:      drafts,
		Identity:    cfg.UserIdentity(),
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: IsTTY(),
		Rich:        IsStdoutTTY() && ColorsEnabled(),
	}
	app.Repo = conversation.NewRepository(client).
		WithPublicURL(cfg.Backend.PublicURL).
		WithNotifier(bus.NotifierFunc(app.notify))
	return app
}

// ApplyArgs folds global flag overrides into the app.
func (a *App) ApplyArgs(args Args) error {
	if args.APIURL != "" {
		if err := a.Config.Set("backend.url", args.APIURL); err != nil {
			return err
		}
		a.Config.SetDefaults()
		if err := a.Config.Validate(); err != nil {
			return &UsageError{Message: err.Error(), Usage: "--api http://host:port"}
		}
		a.Client = NewClient(a.Config)
		a.Repo = conversation.NewRepository(a.Client).
			WithPublicURL(a.Config.Backend.PublicURL).
			WithNotifier(bus.NotifierFunc(a.notify))
	}
	if args.User != "" {
		a.Config.Identity.UserID = args.User
		a.Identity = a.Config.UserIdentity()
	}
	return nil
}

// notify prints repository notifications. Errors are left to the command's
// returned error so they are not reported twice.
func (a *App) notify(n bus.Notification) {
	switch n.Kind {
	case bus.NotifySuccess:
		fmt.Fprintln(a.Err, a.style(SuccessStyle, n.Message))
	case bus.NotifyInfo:
		fmt.Fprintln(a.Err, a.style(DimStyle, n.Message))
	}
}

// requireIdentity fails commands that only make sense signed in.
func (a *App) requireIdentity() error {
	if !a.Identity.Valid() {
		return &UsageError{
			Message: "this command needs a signed-in user",
			Usage:   "pmassist --user ID ... (or set PMASSIST_USER_ID)",
		}
	}
	return nil
}
