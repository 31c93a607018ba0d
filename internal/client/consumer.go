// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client consumes the relay's SSE stream: it posts the full turn
// history to /api/chat and delivers content deltas to a callback, in
// arrival order, until the [DONE] sentinel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/sse"
)

// readChunkSize is the buffer size for incremental body reads.
const readChunkSize = 4096

// wireTurn is one turn on the relay wire.
type wireTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body posted to /api/chat.
type chatRequest struct {
	Messages []wireTurn `json:"messages"`
}

// deltaFrame is one relayed SSE payload.
type deltaFrame struct {
	Content string `json:"content"`
}

// completionBody is the non-streamed completion shape used by the
// full-body fallback path.
type completionBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ErrEmptyReply reports a stream that completed without delivering any
// content. Callers must not commit an assistant turn for it.
var ErrEmptyReply = errors.New("the coach didn't say anything; try again")

// RelayError is a non-success JSON response from the relay, surfaced
// before any stream content.
type RelayError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	return fmt.Sprintf("relay error (HTTP %d): %s", e.Status, e.Message)
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithoutStreaming forces the full-body fallback path. The capability is
// fixed at construction, once per environment, not per request.
func WithoutStreaming() Option {
	return func(c *Consumer) { c.supportsStreaming = false }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Consumer) { c.httpClient = hc }
}

// Consumer reads chat streams from the relay.
type Consumer struct {
	relayURL          string
	supportsStreaming bool
	httpClient        *http.Client
}

// New creates a consumer for the relay at baseURL.
func New(baseURL string, opts ...Option) *Consumer {
	c := &Consumer{
		relayURL:          strings.TrimSuffix(baseURL, "/"),
		supportsStreaming: true,
		// No client timeout: streams are long-lived, the context governs.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the turn history and streams the reply. onDelta fires for
// every non-empty content delta in order; onDone fires exactly once on
// normal completion. Malformed payloads are logged and skipped. Bytes
// after the [DONE] sentinel are discarded unread.
func (c *Consumer) Chat(ctx context.Context, turns []*model.Turn, onDelta func(string), onDone func()) error {
	payload := chatRequest{Messages: make([]wireTurn, len(turns))}
	for i, t := range turns {
		payload.Messages[i] = wireTurn{Role: t.Role.String(), Content: t.DisplayContent()}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromRelay(resp)
	}

	if !c.supportsStreaming {
		return c.consumeWholeBody(resp.Body, onDelta, onDone)
	}
	return c.consumeStream(resp.Body, onDelta, onDone)
}

// errorFromRelay decodes the relay's {"error": string} body, degrading to
// the status text.
func errorFromRelay(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &RelayError{Status: resp.StatusCode, Message: envelope.Error}
	}
	return &RelayError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

// consumeStream reads the body incrementally, re-framing chunks through
// the splitter exactly as they arrive off the wire.
func (c *Consumer) consumeStream(body io.Reader, onDelta func(string), onDone func()) error {
	var splitter sse.Splitter
	buf := make([]byte, readChunkSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, event := range splitter.Feed(string(buf[:n])) {
				for _, payload := range sse.DataLines(event) {
					if sse.IsDone(payload) {
						// Authoritative end marker; remaining bytes are
						// discarded.
						onDone()
						return nil
					}
					var frame deltaFrame
					if jsonErr := json.Unmarshal([]byte(payload), &frame); jsonErr != nil {
						log.Printf("CONSUME_PARSE | skipping malformed payload | error=%v", jsonErr)
						continue
					}
					if frame.Content != "" {
						onDelta(frame.Content)
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				// Stream closed without the sentinel; treat what arrived
				// as the complete reply.
				onDone()
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// consumeWholeBody is the fallback for transports without incremental
// reads: the entire response is read at once and parsed as a single
// non-streamed completion object.
func (c *Consumer) consumeWholeBody(body io.Reader, onDelta func(string), onDone func()) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var completion completionBody
	if err := json.Unmarshal(data, &completion); err != nil {
		log.Printf("CONSUME_PARSE | fallback body not a completion object | error=%v", err)
		onDone()
		return nil
	}
	if len(completion.Choices) > 0 && completion.Choices[0].Message.Content != "" {
		onDelta(completion.Choices[0].Message.Content)
	}
	onDone()
	return nil
}
