// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upstream is the relay's outbound leg: a streaming client for an
// OpenAI-compatible chat completions endpoint. One request per call, no
// retries; the caller's context and the configured timeout are the only
// guards against a stalled upstream.
package upstream

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

	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/sse"
)

// maxErrorBody bounds how much of an upstream error body is read.
const maxErrorBody = 1 << 20

// Message is one turn on the upstream wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat completions request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// StreamChunk is one decoded SSE payload from the upstream stream.
type StreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Content returns the first choice's delta content, or "".
func (c *StreamChunk) Content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// apiErrorBody is the error envelope upstream APIs return.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-success response from the upstream API, observed
// before any streaming byte was forwarded.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
}

// Client talks to the configured model API.
type Client struct {
	url         string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewClient builds a client from the upstream configuration. The HTTP
// client carries no timeout of its own; the per-request context enforces
// the configured limit.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		url:         cfg.URL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Stream opens one streaming chat completion and invokes onDelta for every
// non-empty content delta, in arrival order. It returns nil on the [DONE]
// sentinel, an *APIError on a non-success status, and the transport error
// otherwise. A payload that fails to decode is logged and skipped.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(string)) error {
	reqBody := Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		Stream:      true,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp)
	}

	return c.processStream(resp.Body, onDelta)
}

// errorFromResponse reads the error body synchronously. A body that fails
// to parse degrades to the raw text, then to the status text — never to a
// second request.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{Status: resp.StatusCode, Message: envelope.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// processStream reads SSE events until [DONE] or EOF.
func (c *Client) processStream(body io.Reader, onDelta func(string)) error {
	reader := sse.NewReader(body)
	for {
		payloads, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Upstream closed without the sentinel; the content
				// received so far is all there is.
				return nil
			}
			return fmt.Errorf("read upstream stream: %w", err)
		}

		for _, payload := range payloads {
			if sse.IsDone(payload) {
				return nil
			}
			var chunk StreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				// Skip-and-continue: one bad frame must not kill the pipe.
				log.Printf("UPSTREAM_PARSE | skipping malformed payload | error=%v", err)
				continue
			}
			if content := chunk.Content(); content != "" {
				onDelta(content)
			}
		}
	}
}
