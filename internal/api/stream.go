// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/pmassist-tui/internal/model"
	"github.com/jeranaias/pmassist-tui/internal/stream"
)

// Streamer opens answer streams. The session controller depends on this
// rather than on *Client so tests can script streams.
type Streamer interface {
	AskStream(ctx context.Context, req AskRequest, identity *model.Identity) (EventStream, error)
}

// EventStream is an open answer stream.
type EventStream interface {
	Events(ctx context.Context) iter.Seq[stream.Event]
	Close() error
}

// AnswerStream is an open POST /api/ask-stream response.
type AnswerStream struct {
	body      io.ReadCloser
	requestID string
	closeOnce sync.Once
}

// RequestID returns the id sent in the X-Request-Id header.
func (s *AnswerStream) RequestID() string {
	return s.requestID
}

// Events decodes the body into stream events. The sequence always ends with
// exactly one terminal event unless the consumer stops early.
func (s *AnswerStream) Events(ctx context.Context) iter.Seq[stream.Event] {
	return stream.Events(ctx, s.body)
}

// Close releases the connection. Safe to call more than once.
func (s *AnswerStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

// AskStream opens an answer stream. Opening is never retried: a retried POST
// could produce a duplicate answer on the server.
func (c *Client) AskStream(ctx context.Context, req AskRequest, identity *model.Identity) (EventStream, error) {
	if req.History == nil {
		req.History = []model.HistoryEntry{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ask request")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, requestID, err := c.newRequest(ctx, http.MethodPost, "/api/ask-stream", payload, identity)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Op: "POST /api/ask-stream", Err: err}
	}

	log.Debug().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Bool("conversation", req.ConversationID != nil).
		Int("history", len(req.History)).
		Msg("answer stream opened")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, readErr := readResponse(resp)
		if readErr != nil {
			return nil, &NetworkError{Op: "POST /api/ask-stream", Err: readErr}
		}
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	return &AnswerStream{body: resp.Body, requestID: requestID}, nil
}

// Compile-time interface check.
var _ Streamer = (*Client)(nil)
