// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pmassist-tui/internal/api"
	"github.com/jeranaias/pmassist-tui/internal/conversation"
	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/storage"
	"github.com/jeranaias/pmassist-tui/internal/stream"
	"github.com/jeranaias/pmassist-tui/internal/transcript"
)

const sprintBody = "data: {\"chunk\": \"A sprint \"}\n\n" +
	"data: {\"chunk\": \"is a time box.\"}\n\n" +
	"data: {\"done\": true, \"sources\": [{\"title\": \"Scrum Guide\", \"url\": \"https://scrumguides.org\", \"score\": 0.92}]}\n\n"

var alice = &model.Identity{ID: "user-alice", Name: "Alice"}

// =============================================================================
// FAKES
// =============================================================================

// fakeStream feeds a body through the real decoder. Cancelling the send's
// context closes the body, as net/http does.
type fakeStream struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	stop func() bool
}

func (s *fakeStream) Events(ctx context.Context) iter.Seq[stream.Event] {
	return stream.Events(ctx, s.r)
}

func (s *fakeStream) Close() error {
	s.stop()
	return s.r.Close()
}

func (s *fakeStream) write(t *testing.T, body string) {
	t.Helper()
	_, err := io.WriteString(s.w, body)
	require.NoError(t, err)
}

type fakeStreamer struct {
	mu         sync.Mutex
	bodies     []string
	openErr    error
	requests   []api.AskRequest
	identities []*model.Identity
	live       chan *fakeStream
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{live: make(chan *fakeStream, 4)}
}

// script queues complete bodies for the next sends. Sends beyond the queue
// get a live stream published on f.live.
func (f *fakeStreamer) script(bodies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, bodies...)
}

func (f *fakeStreamer) failNextOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

func (f *fakeStreamer) AskStream(ctx context.Context, req api.AskRequest, identity *model.Identity) (api.EventStream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.identities = append(f.identities, identity)
	if err := f.openErr; err != nil {
		f.openErr = nil
		f.mu.Unlock()
		return nil, err
	}
	var body string
	scripted := len(f.bodies) > 0
	if scripted {
		body, f.bodies = f.bodies[0], f.bodies[1:]
	}
	f.mu.Unlock()

	pr, pw := io.Pipe()
	s := &fakeStream{r: pr, w: pw}
	s.stop = context.AfterFunc(ctx, func() { pr.CloseWithError(ctx.Err()) })

	if scripted {
		go func() {
			io.WriteString(pw, body)
			pw.Close()
		}()
		return s, nil
	}
	f.live <- s
	return s, nil
}

func (f *fakeStreamer) lastRequest(t *testing.T) api.AskRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type fakeBackend struct {
	mu        sync.Mutex
	list      []model.Conversation
	messages  map[string][]model.Message
	listCalls int
}

func (b *fakeBackend) ListConversations(context.Context, *model.Identity) ([]model.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	return model.CloneConversations(b.list), nil
}

func (b *fakeBackend) LoadMessages(_ context.Context, id string, _ *model.Identity) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs, ok := b.messages[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return model.CloneMessages(msgs), nil
}

func (b *fakeBackend) LoadPublicMessages(ctx context.Context, id string) ([]model.Message, error) {
	return b.LoadMessages(ctx, id, nil)
}

func (b *fakeBackend) UpdateConversation(_ context.Context, id string, _ api.ConversationPatch, _ *model.Identity) (model.Conversation, error) {
	return model.Conversation{ID: id}, nil
}

func (b *fakeBackend) DeleteConversation(context.Context, string, *model.Identity) error {
	return nil
}

func (b *fakeBackend) add(conv model.Conversation, msgs ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = append(b.list, conv)
	b.messages[conv.ID] = msgs
}

func (b *fakeBackend) ListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) PublishSnapshot(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) All() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

type harness struct {
	ctrl     *Controller
	streamer *fakeStreamer
	backend  *fakeBackend
	repo     *conversation.Repository
	drafts   *storage.DraftStore
	sink     *snapshotRecorder
}

func newHarness(t *testing.T, identity *model.Identity, sharedID string) *harness {
	t.Helper()
	h := &harness{
		streamer: newFakeStreamer(),
		backend: &fakeBackend{
			list: []model.Conversation{
				{ID: "c-1", Title: "Sprint planning"},
				{ID: "c-2", Title: "Retro"},
			},
			messages: map[string][]model.Message{
				"c-1": {model.NewUserMessage("What is a sprint?"), {Role: model.RoleAgent, Content: "A time box."}},
				"c-2": {model.NewUserMessage("How do retros work?"), {Role: model.RoleAgent, Content: "Inspect and adapt."}},
			},
		},
		drafts: storage.NewDraftStore(storage.NewMemoryKV()),
		sink:   &snapshotRecorder{},
	}
	h.repo = conversation.NewRepository(h.backend)
	h.ctrl = New(Config{
		Streamer: h.streamer,
		Repo:     h.repo,
		Drafts:   h.drafts,
		Sink:     h.sink,
		Identity: identity,
		SharedID: sharedID,
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) waitForState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond, "state never became %s", want)
}

func (h *harness) liveStream(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-h.streamer.live:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

// sendAsync runs Send on its own goroutine and returns its result channel.
func (h *harness) sendAsync(text string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), text) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("send did not return")
		return nil
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestSend_AnonymousSprintQuestion(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script(sprintBody)

	require.NoError(t, h.ctrl.Send(context.Background(), "What is a sprint?"))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, model.ModeAnonymous, snap.Mode)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.NewUserMessage("What is a sprint?"), snap.Messages[0])
	assert.Equal(t, model.RoleAgent, snap.Messages[1].Role)
	assert.Equal(t, "A sprint is a time box.", snap.Messages[1].Content)
	assert.False(t, snap.Messages[1].Streaming)
	assert.Equal(t, []model.Source{{Title: "Scrum Guide", URL: "https://scrumguides.org", Score: 0.92}}, snap.Messages[1].Sources)

	// The user message shows before any answer text.
	snaps := h.sink.All()
	require.NotEmpty(t, snaps)
	assert.Equal(t, StateSending, snaps[0].State)
	require.Len(t, snaps[0].Messages, 1)
	assert.Equal(t, model.RoleUser, snaps[0].Messages[0].Role)

	// One agent message grows monotonically while streaming.
	var last string
	sawStreaming := false
	for _, s := range snaps {
		require.NoError(t, transcript.Check(s.Messages))
		if len(s.Messages) == 2 {
			content := s.Messages[1].Content
			assert.True(t, strings.HasPrefix(content, last), "content shrank from %q to %q", last, content)
			last = content
			sawStreaming = sawStreaming || s.Messages[1].Streaming
		}
	}
	assert.True(t, sawStreaming)

	// The local slot holds exactly the two settled messages.
	local, err := h.drafts.LoadTranscript()
	require.NoError(t, err)
	assert.Equal(t, snap.Messages, local)

	req := h.streamer.lastRequest(t)
	assert.Equal(t, "What is a sprint?", req.Query)
	assert.Empty(t, req.History)
	assert.Nil(t, req.ConversationID)
}

func TestSend_StreamWithoutTerminalEndsInError(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script("data: {\"chunk\": \"A sprint \"}\ndata: {\"chunk\": \"is\"}\n")

	err := h.ctrl.Send(context.Background(), "What is a sprint?")

	var failure *StreamFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, stream.IncompleteStreamMessage, failure.Message)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateErrorDisplayed, snap.State)
	assert.Equal(t, "What is a sprint?", snap.Input)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.RoleError, snap.Messages[1].Role)
	for _, m := range snap.Messages {
		assert.NotContains(t, m.Content, "A sprint is")
	}
}

func TestSend_ServerErrorEvent(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script("data: {\"chunk\": \"partial\"}\ndata: {\"error\": \"Server error\"}\n")

	err := h.ctrl.Send(context.Background(), "q")
	var failure *StreamFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Server error", failure.Message)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.NewErrorMessage("Server error"), snap.Messages[len(snap.Messages)-1])
}

func TestSend_ConnectionErrorThenRetry(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.failNextOpen(&api.NetworkError{Op: "POST", Err: errors.New("connection refused")})

	err := h.ctrl.Send(context.Background(), "What is a sprint?")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, api.ErrNetwork)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateErrorDisplayed, snap.State)
	assert.Equal(t, "What is a sprint?", snap.Input)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.NewErrorMessage(ConnectionErrorMessage), snap.Messages[1])

	h.streamer.script(sprintBody)
	require.NoError(t, h.ctrl.Send(context.Background(), snap.Input))

	snap = h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Input)
	require.Len(t, snap.Messages, 4)

	// Error messages never travel as history.
	req := h.streamer.lastRequest(t)
	assert.Equal(t, []model.HistoryEntry{{Role: "user", Content: "What is a sprint?"}}, req.History)
}

func TestSend_Rejections(t *testing.T) {
	h := newHarness(t, nil, "")

	assert.ErrorIs(t, h.ctrl.Send(context.Background(), ""), ErrRejected)
	assert.ErrorIs(t, h.ctrl.Send(context.Background(), "   \n\t"), ErrRejected)
	assert.Empty(t, h.sink.All())

	done := h.sendAsync("first")
	s := h.liveStream(t)
	h.waitForState(t, StateStreaming)

	assert.ErrorIs(t, h.ctrl.Send(context.Background(), "second"), ErrRejected)

	s.write(t, "data: {\"chunk\": \"ok\"}\ndata: {\"done\": true}\n")
	require.NoError(t, wait(t, done))

	snap := h.ctrl.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "first", snap.Messages[0].Content)
	assert.Equal(t, "ok", snap.Messages[1].Content)
}

func TestNewChat_DiscardsInFlightStream(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script(sprintBody)
	require.NoError(t, h.ctrl.Send(context.Background(), "What is a sprint?"))

	done := h.sendAsync("And a retro?")
	h.liveStream(t)
	h.waitForState(t, StateStreaming)

	h.ctrl.NewChat()
	assert.ErrorIs(t, wait(t, done), ErrSuperseded)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.ActiveID)

	local, err := h.drafts.LoadTranscript()
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestActivateConversation_CancelsInFlightStream(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.ActivateConversation(context.Background(), "c-1"))

	done := h.sendAsync("Follow-up")
	s := h.liveStream(t)
	h.waitForState(t, StateStreaming)

	require.NoError(t, h.ctrl.ActivateConversation(context.Background(), "c-2"))
	assert.ErrorIs(t, wait(t, done), ErrSuperseded)

	// Late bytes from the old stream have nowhere to go.
	_, err := io.WriteString(s.w, "data: {\"chunk\": \"stale\"}\n")
	assert.Error(t, err)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "c-2", snap.ActiveID)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, h.backend.messages["c-2"], snap.Messages)
}

func TestActivateConversation_RequiresIdentity(t *testing.T) {
	h := newHarness(t, nil, "")
	assert.ErrorIs(t, h.ctrl.ActivateConversation(context.Background(), "c-1"), api.ErrAuth)
}

func TestActivateConversation_NotFoundClearsActive(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))

	err := h.ctrl.ActivateConversation(context.Background(), "gone")
	assert.ErrorIs(t, err, api.ErrNotFound)

	snap := h.ctrl.Snapshot()
	assert.Empty(t, snap.ActiveID)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, StateIdle, snap.State)
}

// =============================================================================
// AUTHENTICATED MODE
// =============================================================================

func TestSend_AuthenticatedAdoptsServerID(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))
	listCalls := h.backend.ListCalls()

	h.streamer.script(
		"data: {\"chunk\": \"Hi\"}\ndata: {\"done\": true, \"conversation_id\": \"c-9\"}\n",
		"data: {\"done\": true, \"conversation_id\": \"c-9\"}\n",
	)
	require.NoError(t, h.ctrl.Send(context.Background(), "Hello"))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "c-9", snap.ActiveID)
	assert.Equal(t, model.ModeAuthenticated, snap.Mode)
	assert.Greater(t, h.backend.ListCalls(), listCalls)

	// Authenticated sessions never touch the local slot.
	local, err := h.drafts.LoadTranscript()
	require.NoError(t, err)
	assert.Empty(t, local)

	require.NoError(t, h.ctrl.Send(context.Background(), "Again"))
	req := h.streamer.lastRequest(t)
	require.NotNil(t, req.ConversationID)
	assert.Equal(t, "c-9", *req.ConversationID)
	assert.Equal(t, []model.HistoryEntry{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi"},
	}, req.History)

	h.streamer.mu.Lock()
	assert.Equal(t, "user-alice", h.streamer.identities[0].ID)
	h.streamer.mu.Unlock()
}

func TestSend_AdoptsCreatedConversationFromList(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))

	// The server files the new conversation after the existing ones, so the
	// head of the list is not the one to adopt.
	h.backend.add(model.Conversation{ID: "c-new", Title: "Hello"})
	h.streamer.script(
		"data: {\"done\": true, \"sources\": []}\n",
		"data: {\"done\": true, \"sources\": []}\n",
	)

	require.NoError(t, h.ctrl.Send(context.Background(), "Hello"))
	assert.Equal(t, "c-new", h.ctrl.Snapshot().ActiveID)

	require.NoError(t, h.ctrl.Send(context.Background(), "Again"))
	req := h.streamer.lastRequest(t)
	require.NotNil(t, req.ConversationID)
	assert.Equal(t, "c-new", *req.ConversationID)
}

func TestSend_AdoptsListHeadWhenNothingNew(t *testing.T) {
	h := newHarness(t, alice, "")
	h.streamer.script("data: {\"done\": true, \"sources\": []}\n")

	// Without a prior list every entry is unknown; the most recent one wins.
	require.NoError(t, h.ctrl.Send(context.Background(), "Hello"))
	assert.Equal(t, "c-1", h.ctrl.Snapshot().ActiveID)
}

func TestSend_AnonymousDoneWithoutIDStaysLocal(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script("data: {\"done\": true, \"sources\": []}\n")

	require.NoError(t, h.ctrl.Send(context.Background(), "Hello"))
	assert.Empty(t, h.ctrl.Snapshot().ActiveID)
	assert.Zero(t, h.backend.ListCalls())
}

func TestDeleteActive_ClearsExactlyOnce(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.ActivateConversation(context.Background(), "c-1"))

	require.NoError(t, h.repo.Delete(context.Background(), "c-1", alice))
	assert.ErrorIs(t, h.repo.Delete(context.Background(), "c-1", alice), conversation.ErrUnknownConversation)

	clears := 0
	prev := ""
	for _, s := range h.sink.All() {
		if prev == "c-1" && s.ActiveID == "" {
			clears++
		}
		prev = s.ActiveID
	}
	assert.Equal(t, 1, clears)

	snap := h.ctrl.Snapshot()
	assert.Empty(t, snap.ActiveID)
	assert.Empty(t, snap.Messages)
}

func TestDeleteOther_KeepsActive(t *testing.T) {
	h := newHarness(t, alice, "")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.ActivateConversation(context.Background(), "c-1"))

	require.NoError(t, h.repo.Delete(context.Background(), "c-2", alice))
	assert.Equal(t, "c-1", h.ctrl.Snapshot().ActiveID)
}

// =============================================================================
// MODE TRANSITIONS
// =============================================================================

func TestSignIn_CarriesAnonymousTranscript(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script(sprintBody, "data: {\"done\": true, \"conversation_id\": \"c-7\"}\n")
	require.NoError(t, h.ctrl.Send(context.Background(), "What is a sprint?"))

	require.NoError(t, h.ctrl.SignIn(context.Background(), alice))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ModeAuthenticated, snap.Mode)
	assert.Len(t, snap.Messages, 2)
	assert.True(t, h.repo.Loaded())

	require.NoError(t, h.ctrl.Send(context.Background(), "How long is it?"))
	req := h.streamer.lastRequest(t)
	assert.Len(t, req.History, 2)
	assert.Nil(t, req.ConversationID)
	assert.Equal(t, "c-7", h.ctrl.Snapshot().ActiveID)

	local, err := h.drafts.LoadTranscript()
	require.NoError(t, err)
	assert.Empty(t, local, "local slot is cleared once the server owns the conversation")
}

func TestSignOut_RestoresAnonymousTranscript(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script(sprintBody)
	require.NoError(t, h.ctrl.Send(context.Background(), "What is a sprint?"))

	require.NoError(t, h.ctrl.SignIn(context.Background(), alice))
	require.NoError(t, h.ctrl.ActivateConversation(context.Background(), "c-2"))

	require.NoError(t, h.ctrl.SignOut(context.Background()))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ModeAnonymous, snap.Mode)
	assert.Empty(t, snap.ActiveID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "What is a sprint?", snap.Messages[0].Content)
	assert.Empty(t, h.repo.List())
	assert.False(t, h.repo.Loaded())
}

func TestSignIn_RejectsEmptyIdentity(t *testing.T) {
	h := newHarness(t, nil, "")
	assert.ErrorIs(t, h.ctrl.SignIn(context.Background(), &model.Identity{}), api.ErrAuth)
	assert.Equal(t, model.ModeAnonymous, h.ctrl.Snapshot().Mode)
}

func TestPublicReadOnly(t *testing.T) {
	h := newHarness(t, nil, "c-1")
	require.NoError(t, h.ctrl.Start(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ModePublicReadOnly, snap.Mode)
	assert.False(t, snap.CanSend)
	assert.Equal(t, "c-1", snap.ActiveID)
	assert.Len(t, snap.Messages, 2)

	assert.ErrorIs(t, h.ctrl.Send(context.Background(), "Can I ask?"), ErrReadOnly)
}

func TestPublicReadOnly_SignedInViewerStartsOwnConversation(t *testing.T) {
	h := newHarness(t, nil, "c-1")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.SignIn(context.Background(), alice))
	assert.True(t, h.ctrl.Snapshot().CanSend)

	h.streamer.script("data: {\"done\": true, \"conversation_id\": \"mine\"}\n")
	require.NoError(t, h.ctrl.Send(context.Background(), "Can I ask?"))

	req := h.streamer.lastRequest(t)
	assert.Nil(t, req.ConversationID)
	assert.Len(t, req.History, 2)
	assert.Equal(t, "mine", h.ctrl.Snapshot().ActiveID)
}

func TestPublicReadOnly_SignOutReloadsSharedConversation(t *testing.T) {
	h := newHarness(t, nil, "c-1")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Len(t, h.ctrl.Snapshot().Messages, 2)

	require.NoError(t, h.ctrl.SignIn(context.Background(), alice))
	h.streamer.script("data: {\"done\": true, \"conversation_id\": \"mine\"}\n")
	require.NoError(t, h.ctrl.Send(context.Background(), "Can I ask?"))
	require.Equal(t, "mine", h.ctrl.Snapshot().ActiveID)

	require.NoError(t, h.ctrl.SignOut(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ModePublicReadOnly, snap.Mode)
	assert.Equal(t, "c-1", snap.ActiveID)
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.CanSend)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "What is a sprint?", snap.Messages[0].Content)
}

func TestPublicReadOnly_SignOutKeepsLoadedSharedView(t *testing.T) {
	h := newHarness(t, nil, "c-1")
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.SignIn(context.Background(), alice))

	require.NoError(t, h.ctrl.SignOut(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "c-1", snap.ActiveID)
	assert.Len(t, snap.Messages, 2)
}

func TestPublicReadOnly_MissingShare(t *testing.T) {
	h := newHarness(t, nil, "nope")
	err := h.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, api.ErrNotFound)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateErrorDisplayed, snap.State)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, SharedMissingMessage, snap.Messages[0].Content)
}

func TestNew_RestoresLocalTranscript(t *testing.T) {
	drafts := storage.NewDraftStore(storage.NewMemoryKV())
	require.NoError(t, drafts.SaveTranscript([]model.Message{
		model.NewUserMessage("earlier"),
		{Role: model.RoleAgent, Content: "answer"},
	}))

	ctrl := New(Config{
		Streamer: newFakeStreamer(),
		Repo:     conversation.NewRepository(&fakeBackend{}),
		Drafts:   drafts,
	})
	defer ctrl.Close()

	assert.Len(t, ctrl.Snapshot().Messages, 2)
}

func TestSnapshots_AreOrdered(t *testing.T) {
	h := newHarness(t, nil, "")
	h.streamer.script(sprintBody, sprintBody)
	require.NoError(t, h.ctrl.Send(context.Background(), "one"))
	require.NoError(t, h.ctrl.Send(context.Background(), "two"))

	var prev uint64
	for _, s := range h.sink.All() {
		assert.Greater(t, s.Seq, prev)
		prev = s.Seq
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "error", StateErrorDisplayed.String())
	assert.True(t, Snapshot{State: StateSending}.Busy())
	assert.False(t, Snapshot{State: StateErrorDisplayed}.Busy())
}
