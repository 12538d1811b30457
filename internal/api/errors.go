// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error variables for the backend contract.
var (
	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrAuth indicates an identity was required but absent or rejected.
	ErrAuth = errors.New("authentication required")

	// ErrNotFound indicates the target conversation no longer exists.
	ErrNotFound = errors.New("conversation not found")

	// ErrRateLimited indicates the backend asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
)

// NetworkError wraps a transport failure. It matches ErrNetwork.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNetwork) true.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// APIError is a non-2xx response that does not map onto a sentinel.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Retryable reports whether a retry could succeed.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

// handleErrorResponse converts an HTTP error response into an error value.
func handleErrorResponse(status int, body []byte) error {
	msg := errorMessage(body)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrap(ErrAuth, nonEmpty(msg, http.StatusText(status)))
	case http.StatusNotFound:
		return errors.Wrap(ErrNotFound, nonEmpty(msg, http.StatusText(status)))
	case http.StatusTooManyRequests:
		return errors.Wrap(ErrRateLimited, nonEmpty(msg, http.StatusText(status)))
	case http.StatusBadRequest:
		// The backend answers 400 when the User-Id header is missing.
		if msg == "User ID header is required" {
			return errors.Wrap(ErrAuth, msg)
		}
	}
	return &APIError{Status: status, Message: msg}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
