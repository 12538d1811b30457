// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the answer stream returned by /api/ask-stream.
//
// The response body is a sequence of text lines. Lines of the form
//
//	data: {"chunk": "..."}
//	data: {"done": true, "sources": [...], "conversation_id": "..."}
//	data: {"error": "..."}
//
// become Chunk, Done and Failure events. Every other line is ignored.
// Fragments may split records anywhere, including inside a multi-byte rune;
// the decoder buffers the incomplete tail until the next fragment arrives.
//
// Every decoded sequence ends with exactly one terminal event. A stream that
// ends without Done or Failure yields a synthetic Failure.
//
// # Usage
//
//	for ev := range stream.Events(ctx, resp.Body) {
//	    switch ev.Kind {
//	    case stream.KindChunk:
//	        fmt.Print(ev.Text)
//	    case stream.KindDone:
//	        render(ev.Sources)
//	    case stream.KindFailure:
//	        fmt.Println(ev.Message)
//	    }
//	}
package stream
