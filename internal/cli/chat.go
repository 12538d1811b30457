// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Command: chat
//
// The REPL drives the same session controller as the TUI: answers stream
// into the terminal as they arrive, anonymous transcripts survive restarts,
// and signed-in users can browse and manage their conversations with slash
// commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"

	"github.com/jeranaias/pmassist-tui/internal/config"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor wraps liner with history persisted in the config directory.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(configDir, "chat_history")}

	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadInput reads a line, adding non-empty input to history.
func (e *lineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
// SECURITY: History may hold questions about internal projects; owner-only.
func (e *lineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes the growing agent message as snapshots arrive.
// It only prints while armed, i.e. during a send started from the prompt.
type streamPrinter struct {
	out io.Writer

	mu      sync.Mutex
	armed   bool
	printed int
}

func (p *streamPrinter) PublishSnapshot(s session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.armed || len(s.Messages) == 0 {
		return
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != model.RoleAgent || len(last.Content) <= p.printed {
		return
	}
	fmt.Fprint(p.out, last.Content[p.printed:])
	p.printed = len(last.Content)
}

func (p *streamPrinter) arm() {
	p.mu.Lock()
	p.armed = true
	p.printed = 0
	p.mu.Unlock()
}

// disarm stops printing and reports how much was printed.
func (p *streamPrinter) disarm() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
	return p.printed
}

// =============================================================================
// SESSION
// =============================================================================

// ChatSession holds the REPL state around a session controller.
type ChatSession struct {
	app     *App
	ctrl    *session.Controller
	printer *streamPrinter

	// listed maps /list row numbers to conversation ids.
	listed []string

	// confirm asks a yes/no question; the REPL routes it through liner.
	confirm func(question string) bool

	// copy puts text on the clipboard.
	copy func(text string) error
}

// NewChatSession wires a controller whose snapshots print to app.Out.
func NewChatSession(app *App, sharedID string) *ChatSession {
	printer := &streamPrinter{out: app.Out}
	cs := &ChatSession{
		app:     app,
		printer: printer,
		confirm: app.PromptYesNo,
		copy:    clipboard.WriteAll,
	}
	cs.ctrl = session.New(session.Config{
		Streamer: app.Client,
		Repo:     app.Repo,
		Drafts:   app.Drafts,
		Sink:     printer,
		Identity: app.Identity,
		SharedID: sharedID,
	})
	return cs
}

// Controller exposes the underlying session controller.
func (cs *ChatSession) Controller() *session.Controller {
	return cs.ctrl
}

// RunChat starts the interactive REPL.
func RunChat(ctx context.Context, app *App, args Args) error {
	if !app.Interactive {
		return &UsageError{Message: "chat needs an interactive terminal", Usage: `pmassist ask "question"`}
	}

	cs := NewChatSession(app, args.Shared)
	defer cs.ctrl.Close()

	if err := cs.ctrl.Start(ctx); err != nil && !errors.Is(err, session.ErrSuperseded) {
		app.DisplayError(err, false)
	}

	editor := newLineEditor()
	defer editor.Close()
	cs.confirm = func(question string) bool {
		answer, err := editor.line.Prompt(question + " [y/N]: ")
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	if !args.Quiet {
		cs.printWelcome()
	}

	for {
		input, err := editor.ReadInput(cs.prompt())
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both leave the REPL.
			fmt.Fprintln(app.Out)
			return nil
		}
		if !cs.Handle(ctx, input) {
			return nil
		}
	}
}

func (cs *ChatSession) prompt() string {
	if cs.ctrl.Snapshot().CanSend {
		return "pmassist> "
	}
	return "pmassist (read-only)> "
}

// Handle processes one line of input. It returns false when the user asked
// to leave.
func (cs *ChatSession) Handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return true
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return false
	case strings.HasPrefix(input, "/"):
		keepGoing, err := cs.handleSlashCommand(ctx, input)
		if err != nil {
			cs.app.DisplayError(err, false)
		}
		return keepGoing
	default:
		cs.send(ctx, input)
		return true
	}
}

// send asks a question and prints the streamed answer. Ctrl+C cancels the
// answer in flight without leaving the REPL.
func (cs *ChatSession) send(ctx context.Context, text string) {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	out := cs.app.Out
	cs.printer.arm()
	err := cs.ctrl.Send(sctx, text)
	printed := cs.printer.disarm()

	if printed > 0 {
		fmt.Fprintln(out)
	}

	switch {
	case errors.Is(err, session.ErrRejected):
		fmt.Fprintln(cs.app.Err, cs.app.style(WarningStyle, "Still answering the previous question."))
		return
	case errors.Is(err, session.ErrReadOnly):
		fmt.Fprintln(cs.app.Err, cs.app.style(WarningStyle, "This shared conversation is read-only. Use /new to start your own."))
		return
	case sctx.Err() != nil && ctx.Err() == nil:
		fmt.Fprintln(cs.app.Err, cs.app.style(WarningStyle, "[Cancelled]"))
	}

	snap := cs.ctrl.Snapshot()
	if len(snap.Messages) == 0 {
		return
	}
	last := snap.Messages[len(snap.Messages)-1]
	switch last.Role {
	case model.RoleAgent:
		if printed == 0 {
			fmt.Fprint(out, ensureNewline(cs.app.renderMarkdown(last.Content)))
		}
		cs.app.writeSources(out, last.Sources)
	case model.RoleError:
		fmt.Fprintln(out, cs.app.style(ErrorStyle, last.Content))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (cs *ChatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		cs.printHelp()
	case "/quit", "/q", "/exit":
		return false, nil
	case "/new", "/clear":
		cs.ctrl.NewChat()
		fmt.Fprintln(cs.app.Out, cs.app.style(DimStyle, "[New conversation]"))
	case "/history":
		cs.app.writeTranscript(cs.app.Out, cs.ctrl.Snapshot().Messages)
	case "/list", "/ls":
		return true, cs.list(ctx, model.FilterState{SearchTerm: rest, ActiveTab: model.TabAll})
	case "/useful":
		return true, cs.list(ctx, model.FilterState{SearchTerm: rest, ActiveTab: model.TabUseful})
	case "/open":
		return true, cs.open(ctx, rest)
	case "/rename":
		return true, cs.rename(ctx, rest)
	case "/fav", "/favorite":
		return true, cs.toggleUseful(ctx)
	case "/delete":
		return true, cs.deleteActive(ctx)
	case "/share":
		return true, cs.share(rest)
	case "/whoami":
		cs.printIdentity()
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func (cs *ChatSession) list(ctx context.Context, filter model.FilterState) error {
	if err := cs.app.requireIdentity(); err != nil {
		return err
	}
	if _, err := cs.app.Repo.Refresh(ctx, cs.app.Identity); err != nil {
		return err
	}
	rows := cs.app.Repo.Filter(filter)
	cs.listed = cs.listed[:0]
	if len(rows) == 0 {
		fmt.Fprintln(cs.app.Out, cs.app.style(DimStyle, "No conversations."))
		return nil
	}
	now := time.Now()
	for i, c := range rows {
		cs.listed = append(cs.listed, c.ID)
		cs.app.writeConversationRow(cs.app.Out, i+1, c, now)
	}
	return nil
}

// resolve turns "#3" or "3" from the last /list, or a raw id, into an id.
func (cs *ChatSession) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && n >= 1 && n <= len(cs.listed) {
		return cs.listed[n-1]
	}
	return ref
}

func (cs *ChatSession) open(ctx context.Context, ref string) error {
	if ref == "" {
		return ErrMissingArgument("conversation", "/open <id or list number>")
	}
	id := cs.resolve(ref)
	if err := cs.ctrl.ActivateConversation(ctx, id); err != nil {
		return err
	}
	cs.app.writeTranscript(cs.app.Out, cs.ctrl.Snapshot().Messages)
	return nil
}

func (cs *ChatSession) activeID() (string, error) {
	id := cs.ctrl.Snapshot().ActiveID
	if id == "" {
		return "", &UsageError{Message: "no saved conversation is open", Usage: "/open <id>"}
	}
	return id, nil
}

func (cs *ChatSession) rename(ctx context.Context, title string) error {
	if err := cs.app.requireIdentity(); err != nil {
		return err
	}
	id, err := cs.activeID()
	if err != nil {
		return err
	}
	if err := cs.ensureListed(ctx); err != nil {
		return err
	}
	conv, err := cs.app.Repo.Rename(ctx, id, title, cs.app.Identity)
	if err != nil {
		return err
	}
	fmt.Fprintf(cs.app.Out, "Renamed to %q\n", conv.DisplayTitle())
	return nil
}

func (cs *ChatSession) toggleUseful(ctx context.Context) error {
	if err := cs.app.requireIdentity(); err != nil {
		return err
	}
	id, err := cs.activeID()
	if err != nil {
		return err
	}
	if err := cs.ensureListed(ctx); err != nil {
		return err
	}
	current, _ := cs.app.Repo.Get(id)
	conv, err := cs.app.Repo.SetUseful(ctx, id, !current.IsUseful, cs.app.Identity)
	if err != nil {
		return err
	}
	if conv.IsUseful {
		fmt.Fprintln(cs.app.Out, "Marked useful")
	} else {
		fmt.Fprintln(cs.app.Out, "No longer marked useful")
	}
	return nil
}

func (cs *ChatSession) deleteActive(ctx context.Context) error {
	if err := cs.app.requireIdentity(); err != nil {
		return err
	}
	id, err := cs.activeID()
	if err != nil {
		return err
	}
	if err := cs.ensureListed(ctx); err != nil {
		return err
	}
	if !cs.confirm("Delete this conversation?") {
		fmt.Fprintln(cs.app.Out, "Cancelled.")
		return nil
	}
	return cs.app.Repo.Delete(ctx, id, cs.app.Identity)
}

func (cs *ChatSession) share(ref string) error {
	id := cs.resolve(ref)
	if id == "" {
		var err error
		if id, err = cs.activeID(); err != nil {
			return err
		}
	}
	link := cs.app.Repo.ShareLink(id)
	fmt.Fprintln(cs.app.Out, link)
	if err := cs.copy(link); err != nil {
		fmt.Fprintln(cs.app.Err, cs.app.style(DimStyle, "(could not copy to clipboard)"))
	} else {
		fmt.Fprintln(cs.app.Err, cs.app.style(SuccessStyle, "Link copied"))
	}
	return nil
}

// ensureListed loads the list once so mutations can find their entry.
func (cs *ChatSession) ensureListed(ctx context.Context) error {
	if cs.app.Repo.Loaded() {
		return nil
	}
	_, err := cs.app.Repo.Refresh(ctx, cs.app.Identity)
	return err
}

// =============================================================================
// DISPLAY
// =============================================================================

func (cs *ChatSession) printWelcome() {
	out := cs.app.Out
	snap := cs.ctrl.Snapshot()
	fmt.Fprintln(out, cs.app.style(TitleStyle, "pmassist chat"))
	fmt.Fprintln(out, RenderSeparator(30))
	cs.printIdentity()
	if n := len(snap.Messages); n > 0 {
		fmt.Fprintln(out, cs.app.style(DimStyle, fmt.Sprintf("Restored %d messages. /history shows them, /new starts over.", n)))
	}
	fmt.Fprintln(out, cs.app.style(DimStyle, "Type a question and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(out)
}

func (cs *ChatSession) printIdentity() {
	snap := cs.ctrl.Snapshot()
	who := "anonymous (kept on this machine)"
	if snap.Identity.Valid() {
		who = snap.Identity.ID
		if snap.Identity.Name != "" {
			who = snap.Identity.Name + " (" + snap.Identity.ID + ")"
		}
	}
	fmt.Fprintf(cs.app.Out, "%s %s\n", LabelStyle.Render("Signed in:"), who)
	fmt.Fprintf(cs.app.Out, "%s %s\n", LabelStyle.Render("Mode:"), snap.Mode)
}

func (cs *ChatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/new", "Start a new conversation"},
		{"/history", "Print the current conversation"},
		{"/list [term]", "List your conversations"},
		{"/useful [term]", "List conversations marked useful"},
		{"/open <id|#n>", "Open a conversation"},
		{"/rename <title>", "Rename the open conversation"},
		{"/fav", "Toggle the useful mark"},
		{"/delete", "Delete the open conversation"},
		{"/share [id|#n]", "Print and copy a public link"},
		{"/whoami", "Show identity and mode"},
		{"/quit", "Exit chat"},
	}
	fmt.Fprintln(cs.app.Out)
	for _, c := range commands {
		fmt.Fprintf(cs.app.Out, "  %-18s %s\n", c.cmd, cs.app.style(DimStyle, c.desc))
	}
	fmt.Fprintln(cs.app.Out)
	fmt.Fprintln(cs.app.Out, cs.app.style(DimStyle, "Ctrl+C cancels an answer in flight, Ctrl+D exits"))
}
