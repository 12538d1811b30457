// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/pmassist-tui/internal/model"
)

// Configuration constants for the backend client.
const (
	// DefaultBaseURL is where the development backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries applies to idempotent reads only.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// HeaderUserID carries the signed-in identity.
	HeaderUserID = "User-Id"

	// HeaderRequestID correlates client and server logs.
	HeaderRequestID = "X-Request-Id"

	userAgent = "pmassist-tui/0.1"
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
)

// Client talks to the assistant backend.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient has no overall timeout; the caller's context ends streams.
	streamClient *http.Client

	maxRetries int
	retryBase  time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Transport: sharedTransport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: sharedTransport},
		maxRetries:   DefaultMaxRetries,
		retryBase:    retryBaseDelay,
		limiter:      rate.NewLimiter(rate.Inf, 1),
	}
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets how many times reads are retried.
func (c *Client) WithMaxRetries(n int) *Client {
	if n >= 0 {
		c.maxRetries = n
	}
	return c
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithHTTPClient replaces both underlying clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CONVERSATION ENDPOINTS
// =============================================================================

// ListConversations returns the caller's conversations, most recent activity first.
func (c *Client) ListConversations(ctx context.Context, identity *model.Identity) ([]model.Conversation, error) {
	if !identity.Valid() {
		return nil, ErrAuth
	}

	body, err := c.getWithRetry(ctx, "/api/conversations", identity)
	if err != nil {
		return nil, err
	}

	var dtos []conversationDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, errors.Wrap(err, "failed to parse conversation list")
	}

	list := make([]model.Conversation, 0, len(dtos))
	for _, d := range dtos {
		list = append(list, d.toModel())
	}
	return list, nil
}

// LoadMessages returns the ordered messages of one of the caller's conversations.
func (c *Client) LoadMessages(ctx context.Context, id string, identity *model.Identity) ([]model.Message, error) {
	if !identity.Valid() {
		return nil, ErrAuth
	}
	return c.loadMessages(ctx, "/api/conversations/"+url.PathEscape(id)+"/messages", identity)
}

// LoadPublicMessages reads a shared conversation without an identity.
func (c *Client) LoadPublicMessages(ctx context.Context, id string) ([]model.Message, error) {
	return c.loadMessages(ctx, "/api/public/conversations/"+url.PathEscape(id)+"/messages", nil)
}

func (c *Client) loadMessages(ctx context.Context, path string, identity *model.Identity) ([]model.Message, error) {
	body, err := c.getWithRetry(ctx, path, identity)
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse messages")
	}

	msgs := make([]model.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, m.toModel())
	}
	return msgs, nil
}

// UpdateConversation applies a partial update. Not retried.
func (c *Client) UpdateConversation(ctx context.Context, id string, patch ConversationPatch, identity *model.Identity) (model.Conversation, error) {
	if !identity.Valid() {
		return model.Conversation{}, ErrAuth
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return model.Conversation{}, errors.Wrap(err, "failed to marshal update")
	}

	body, err := c.do(ctx, http.MethodPut, "/api/conversations/"+url.PathEscape(id), payload, identity)
	if err != nil {
		return model.Conversation{}, err
	}

	var dto conversationDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return model.Conversation{}, errors.Wrap(err, "failed to parse updated conversation")
	}
	return dto.toModel(), nil
}

// DeleteConversation removes a conversation. Not retried.
func (c *Client) DeleteConversation(ctx context.Context, id string, identity *model.Identity) error {
	if !identity.Valid() {
		return ErrAuth
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, identity)
	return err
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// newRequest builds a request with the common headers.
// SECURITY: The identity header is set only when an identity is present.
func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, identity *model.Identity) (*http.Request, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity.Valid() {
		req.Header.Set(HeaderUserID, identity.ID)
	}
	return req, requestID, nil
}

// do performs a single request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, identity *model.Identity) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, requestID, err := c.newRequest(ctx, method, path, payload, identity)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	// Headers and bodies are not logged; they may carry the identity.
	log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	body, err := readResponse(resp)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// getWithRetry performs a GET with exponential backoff on transient errors.
// RELIABILITY: Only idempotent reads are retried.
func (c *Client) getWithRetry(ctx context.Context, path string, identity *model.Identity) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, err := c.do(ctx, http.MethodGet, path, nil, identity)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.maxRetries {
			break
		}

		delay := c.calculateBackoff(attempt)
		log.Debug().Err(err).Str("path", path).Dur("backoff", delay).Int("attempt", attempt+1).Msg("retrying backend read")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.retryBase * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readResponse reads the response body with size limits.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, errors.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
