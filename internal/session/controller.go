// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/bus"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/storage"
	"github.com/jeranaias/pmassist-tui/internal/stream"
	"github.com/jeranaias/pmassist-tui/internal/transcript"
)

// Config wires a Controller.
type Config struct {
	Streamer api.Streamer
	Repo     *conversation.Repository
	Drafts   *storage.DraftStore
	Sink     SnapshotSink
	Notifier bus.Notifier

	// Identity is the signed-in user, or nil.
	Identity *model.Identity

	// SharedID opens the session read-only on a shared conversation.
	SharedID string
}

// Controller is the session state machine. Its methods are safe for
// concurrent use; each state change is one locked transition and network
// waits happen outside the lock.
type Controller struct {
	streamer api.Streamer
	repo     *conversation.Repository
	drafts   *storage.DraftStore
	sink     SnapshotSink
	notifier bus.Notifier

	mu       sync.Mutex
	state    State
	identity *model.Identity
	sharedID string
	mode     model.SessionMode
	messages []model.Message
	activeID string
	input    string

	// epoch increases whenever in-flight work is invalidated. A stream or
	// load only applies its results while its epoch is current.
	epoch  uint64
	cancel context.CancelFunc

	seq       uint64
	pubMu     sync.Mutex
	published uint64
}

// New creates a controller. In anonymous mode the local transcript is
// restored immediately.
func New(cfg Config) *Controller {
	c := &Controller{
		streamer: cfg.Streamer,
		repo:     cfg.Repo,
		drafts:   cfg.Drafts,
		sink:     cfg.Sink,
		notifier: cfg.Notifier,
		identity: cloneIdentity(cfg.Identity),
		sharedID: cfg.SharedID,
		messages: []model.Message{},
	}
	if c.sink == nil {
		c.sink = SinkFunc(func(Snapshot) {})
	}
	if c.notifier == nil {
		c.notifier = bus.Discard
	}
	c.mode = model.DeriveMode(c.identity, c.sharedID != "")
	if c.mode == model.ModePublicReadOnly {
		c.activeID = c.sharedID
	}
	if c.mode.UsesLocalDraft() {
		c.messages = c.loadDraft()
	}
	c.repo.OnRemoved(c.conversationRemoved)
	return c
}

// Start performs the initial load for the current mode and publishes the
// first snapshot.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	identity := c.identity
	shared := c.sharedID
	c.mu.Unlock()

	c.publish()

	switch mode {
	case model.ModePublicReadOnly:
		return c.ActivateConversation(ctx, shared)
	case model.ModeAuthenticated:
		if _, err := c.repo.Refresh(ctx, identity); err != nil {
			log.Warn().Err(err).Msg("initial conversation list failed")
			c.notifier.Notify(bus.Error("Could not load your conversations"))
			return err
		}
	}
	return nil
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close invalidates any in-flight stream.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

// =============================================================================
// SEND
// =============================================================================

// Send asks a question and blocks until the answer stream ends or is
// superseded. It returns ErrRejected when text is blank or a send is already
// running, ErrReadOnly in a read-only view, *ConnectionError when the stream
// could not open and *StreamFailure when the stream failed.
func (c *Controller) Send(ctx context.Context, text string) error {
	question := strings.TrimSpace(text)

	c.mu.Lock()
	if question == "" || !c.state.acceptsSend() {
		state := c.state
		c.mu.Unlock()
		log.Debug().Str("state", state.String()).Bool("blank", question == "").Msg("send rejected")
		return ErrRejected
	}
	if !c.mode.CanSend(c.identity) {
		c.mu.Unlock()
		return ErrReadOnly
	}

	prior := c.messages
	req := api.NewAskRequest(question, prior, c.remoteID())
	identity := cloneIdentity(c.identity)

	// Ids listed before the question, so a conversation the server creates
	// for it can be recognised afterwards.
	var known map[string]bool
	if identity.Valid() && c.remoteID() == "" {
		known = make(map[string]bool)
		for _, conv := range c.repo.List() {
			known[conv.ID] = true
		}
	}

	c.invalidateLocked()
	epoch := c.epoch
	sctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.messages = append(model.CloneMessages(prior), model.NewUserMessage(question))
	c.state = StateSending
	c.input = ""
	c.persistLocked()
	c.mu.Unlock()
	c.publish()

	defer cancel()

	es, err := c.streamer.AskStream(sctx, req, identity)
	if err != nil {
		return c.openFailed(epoch, question, err)
	}
	defer es.Close()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state = StateStreaming
	c.mu.Unlock()
	c.publish()

	for ev := range es.Events(sctx) {
		done, err := c.apply(epoch, question, identity, ev)
		if done {
			if err == nil && identity.Valid() {
				list := c.refreshList(ctx, identity)
				if known != nil {
					c.adoptCreated(epoch, known, list)
				}
			}
			return err
		}
	}

	// The sequence only ends without a terminal event when the consumer
	// broke out, which apply does only for a superseded stream.
	return ErrSuperseded
}

// openFailed records a stream that never opened.
func (c *Controller) openFailed(epoch uint64, question string, err error) error {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.messages = append(c.messages, model.NewErrorMessage(ConnectionErrorMessage))
	c.state = StateErrorDisplayed
	c.input = question
	c.cancel = nil
	c.persistLocked()
	c.mu.Unlock()
	c.publish()

	log.Warn().Err(err).Msg("answer stream could not open")
	return &ConnectionError{Err: err}
}

// apply folds one event into the transcript. It reports whether the send is
// over and with which result.
func (c *Controller) apply(epoch uint64, question string, identity *model.Identity, ev stream.Event) (bool, error) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return true, ErrSuperseded
	}

	c.messages = transcript.Apply(c.messages, ev)

	var result error
	switch ev.Kind {
	case stream.KindChunk:
		c.mu.Unlock()
		c.publish()
		return false, nil

	case stream.KindDone:
		c.state = StateIdle
		c.cancel = nil
		if ev.ConversationID != "" && identity.Valid() && c.remoteID() == "" {
			c.adoptLocked(ev.ConversationID)
		}

	case stream.KindFailure:
		c.state = StateErrorDisplayed
		c.cancel = nil
		c.input = question
		result = &StreamFailure{Message: ev.Message}
	}

	c.persistLocked()
	activeID := c.activeID
	c.mu.Unlock()
	c.publish()

	log.Debug().
		Str("event", ev.Kind.String()).
		Str("conversation_id", activeID).
		Msg("answer stream finished")
	return true, result
}

// adoptLocked makes a server-assigned id the active conversation. Once the
// conversation lives remotely the local slot is no longer the source of truth.
func (c *Controller) adoptLocked(id string) {
	c.activeID = id
	if c.mode != model.ModeAuthenticated {
		return
	}
	if err := c.drafts.ClearTranscript(); err != nil {
		log.Warn().Err(err).Msg("could not clear local transcript")
	}
}

func (c *Controller) refreshList(ctx context.Context, identity *model.Identity) []model.Conversation {
	list, err := c.repo.Refresh(ctx, identity)
	if err != nil {
		log.Warn().Err(err).Msg("conversation list refresh failed")
		return nil
	}
	return list
}

// adoptCreated picks up the conversation the server created for a question
// whose Done record carried no id. The new entry is the one missing from
// known; failing that, the head of the list, which the server orders by last
// activity.
func (c *Controller) adoptCreated(epoch uint64, known map[string]bool, list []model.Conversation) {
	if len(list) == 0 {
		return
	}
	id := list[0].ID
	for _, conv := range list {
		if !known[conv.ID] {
			id = conv.ID
			break
		}
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateIdle || c.remoteID() != "" || !c.identity.Valid() {
		c.mu.Unlock()
		return
	}
	c.adoptLocked(id)
	c.mu.Unlock()

	log.Debug().Str("conversation_id", id).Msg("adopted conversation from list")
	c.publish()
}

// =============================================================================
// NAVIGATION
// =============================================================================

// NewChat clears the session from any state.
func (c *Controller) NewChat() {
	c.mu.Lock()
	c.invalidateLocked()
	c.state = StateIdle
	c.messages = []model.Message{}
	c.activeID = ""
	c.input = ""
	if c.mode == model.ModePublicReadOnly && !c.identity.Valid() {
		c.activeID = c.sharedID
	}
	if c.mode.UsesLocalDraft() {
		if err := c.drafts.ClearTranscript(); err != nil {
			log.Warn().Err(err).Msg("could not clear local transcript")
		}
	}
	c.mu.Unlock()
	c.publish()
}

// ActivateConversation switches to id and loads its messages. Any in-flight
// stream is discarded.
func (c *Controller) ActivateConversation(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.mode == model.ModeAnonymous {
		c.mu.Unlock()
		return api.ErrAuth
	}
	c.invalidateLocked()
	epoch := c.epoch
	public := c.mode == model.ModePublicReadOnly && id == c.sharedID
	identity := cloneIdentity(c.identity)
	c.state = StateIdle
	c.activeID = id
	c.messages = []model.Message{}
	c.input = ""
	c.mu.Unlock()
	c.publish()

	var msgs []model.Message
	var err error
	if public {
		msgs, err = c.repo.LoadPublic(ctx, id)
	} else {
		msgs, err = c.repo.LoadMessages(ctx, id, identity)
	}

	if errors.Is(err, api.ErrNotFound) {
		// The repository's removal hook has already cleared a listed id.
		c.mu.Lock()
		if c.activeID == id {
			if public {
				c.messages = []model.Message{model.NewErrorMessage(SharedMissingMessage)}
				c.state = StateErrorDisplayed
			} else {
				c.activeID = ""
			}
		}
		c.mu.Unlock()
		c.publish()
		log.Info().Str("conversation_id", id).Msg("conversation not found")
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err == nil {
		c.messages = model.Settled(msgs)
	} else {
		c.messages = []model.Message{model.NewErrorMessage(LoadErrorMessage)}
		c.state = StateErrorDisplayed
	}
	c.mu.Unlock()
	c.publish()

	if err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("conversation load failed")
	}
	return err
}

// conversationRemoved clears the active conversation when it is deleted or
// vanishes.
func (c *Controller) conversationRemoved(id string) {
	c.mu.Lock()
	if c.activeID != id || id == "" {
		c.mu.Unlock()
		return
	}
	c.invalidateLocked()
	c.activeID = ""
	c.messages = []model.Message{}
	c.state = StateIdle
	c.input = ""
	c.mu.Unlock()

	log.Info().Str("conversation_id", id).Msg("active conversation cleared")
	c.publish()
}

// =============================================================================
// IDENTITY
// =============================================================================

// SignIn switches to authenticated persistence. The displayed transcript is
// kept and travels as history with the next question, after which the server
// owns it.
func (c *Controller) SignIn(ctx context.Context, identity *model.Identity) error {
	if !identity.Valid() {
		return api.ErrAuth
	}

	c.mu.Lock()
	c.identity = cloneIdentity(identity)
	c.mode = model.DeriveMode(c.identity, c.sharedID != "")
	c.mu.Unlock()
	c.publish()

	_, err := c.repo.Refresh(ctx, identity)
	return err
}

// SignOut drops the identity, empties the list and restores the anonymous
// transcript. A public view returns to its shared conversation, reloading it
// when the viewer had moved to one of their own.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.invalidateLocked()
	c.identity = nil
	c.mode = model.DeriveMode(nil, c.sharedID != "")
	c.state = StateIdle
	c.input = ""
	reload := false
	if c.mode == model.ModePublicReadOnly {
		reload = c.activeID != c.sharedID
	} else {
		c.activeID = ""
		c.messages = c.loadDraft()
	}
	shared := c.sharedID
	c.mu.Unlock()

	c.repo.Reset()
	if reload {
		return c.ActivateConversation(ctx, shared)
	}
	c.publish()
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// remoteID is the conversation id sent with a question. The shared id of a
// public view is not the viewer's conversation.
func (c *Controller) remoteID() string {
	if c.mode == model.ModePublicReadOnly && c.activeID == c.sharedID {
		return ""
	}
	return c.activeID
}

// invalidateLocked discards in-flight work.
func (c *Controller) invalidateLocked() {
	c.epoch++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// persistLocked writes the local slot when this session owns it.
func (c *Controller) persistLocked() {
	if !c.mode.UsesLocalDraft() || c.activeID != "" {
		return
	}
	if err := c.drafts.SaveTranscript(c.messages); err != nil {
		log.Warn().Err(err).Msg("could not save local transcript")
	}
}

func (c *Controller) loadDraft() []model.Message {
	msgs, err := c.drafts.LoadTranscript()
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable local transcript")
	}
	return msgs
}

func (c *Controller) snapshotLocked() Snapshot {
	c.seq++
	return Snapshot{
		Seq:      c.seq,
		State:    c.state,
		Mode:     c.mode,
		Identity: cloneIdentity(c.identity),
		ActiveID: c.activeID,
		Messages: model.CloneMessages(c.messages),
		Input:    c.input,
		CanSend:  c.mode.CanSend(c.identity),
	}
}

// publish hands the current snapshot to the sink. Snapshots older than one
// already delivered are dropped.
func (c *Controller) publish() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if snap.Seq <= c.published {
		return
	}
	c.published = snap.Seq
	c.sink.PublishSnapshot(snap)
}

func cloneIdentity(id *model.Identity) *model.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
