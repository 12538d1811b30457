// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the assistant backend.
//
// It covers the streaming ask endpoint and the conversation CRUD endpoints:
//
//	POST   /api/ask-stream
//	GET    /api/conversations
//	GET    /api/conversations/{id}/messages
//	GET    /api/public/conversations/{id}/messages
//	PUT    /api/conversations/{id}
//	DELETE /api/conversations/{id}
//
// Authenticated calls carry the signed-in user's id in the User-Id header.
// Public reads use the conversation id itself as the capability.
//
// # Errors
//
// Transport failures match ErrNetwork, missing or rejected identity matches
// ErrAuth, and a vanished conversation matches ErrNotFound. Any other non-2xx
// response is an *APIError.
//
// # Usage
//
//	client := api.NewClient("http://localhost:8000").WithMaxRetries(3)
//	list, err := client.ListConversations(ctx, identity)
//
//	s, err := client.AskStream(ctx, api.AskRequest{Query: "What is a sprint?"}, identity)
//	defer s.Close()
//	for ev := range s.Events(ctx) { ... }
package api
