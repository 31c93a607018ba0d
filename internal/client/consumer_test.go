// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jeranaias/lifecoach-tui/internal/model"
)

func turns(contents ...string) []*model.Turn {
	ts := []*model.Turn{model.NewSystemTurn("coach")}
	for _, c := range contents {
		ts = append(ts, model.NewUserTurn(c))
	}
	return ts
}

func TestChatStreamsDeltasInOrder(t *testing.T) {
	var gotRequest chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"I \"}\n\n")
		fmt.Fprint(w, "data: {\"content\":\"hear you.\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	consumer := New(srv.URL)
	var deltas []string
	done := false
	err := consumer.Chat(context.Background(), turns("I feel stuck at work"), func(d string) {
		deltas = append(deltas, d)
	}, func() { done = true })

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reflect.DeepEqual(deltas, []string{"I ", "hear you."}) {
		t.Errorf("deltas = %v", deltas)
	}
	if !done {
		t.Error("onDone never fired")
	}

	// The full history was sent, system turn first.
	if len(gotRequest.Messages) != 2 {
		t.Fatalf("messages sent = %d, want 2", len(gotRequest.Messages))
	}
	if gotRequest.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", gotRequest.Messages[0].Role)
	}
	if gotRequest.Messages[1].Content != "I feel stuck at work" {
		t.Errorf("user content = %q", gotRequest.Messages[1].Content)
	}
}

func TestChatStopsAtDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":\"early\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"content\":\"late\"}\n\n")
	}))
	defer srv.Close()

	var deltas []string
	doneCount := 0
	err := New(srv.URL).Chat(context.Background(), turns("hi"), func(d string) {
		deltas = append(deltas, d)
	}, func() { doneCount++ })

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reflect.DeepEqual(deltas, []string{"early"}) {
		t.Errorf("deltas = %v, post-sentinel content must be discarded", deltas)
	}
	if doneCount != 1 {
		t.Errorf("onDone fired %d times, want 1", doneCount)
	}
}

func TestChatSkipsMalformedPayloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":\"ok\"}\n\n")
		w.Write([]byte("data: %%%garbage%%%\n\n"))
		fmt.Fprint(w, "data: {\"content\":\"more\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var deltas []string
	err := New(srv.URL).Chat(context.Background(), turns("hi"), func(d string) {
		deltas = append(deltas, d)
	}, func() {})

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reflect.DeepEqual(deltas, []string{"ok", "more"}) {
		t.Errorf("deltas = %v", deltas)
	}
}

func TestChatEOFWithoutSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":\"all there is\"}\n\n")
	}))
	defer srv.Close()

	var deltas []string
	done := false
	err := New(srv.URL).Chat(context.Background(), turns("hi"), func(d string) {
		deltas = append(deltas, d)
	}, func() { done = true })

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reflect.DeepEqual(deltas, []string{"all there is"}) {
		t.Errorf("deltas = %v", deltas)
	}
	if !done {
		t.Error("onDone not fired on EOF completion")
	}
}

func TestChatRelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":"Upstream error (HTTP 401): invalid api key"}`)
	}))
	defer srv.Close()

	err := New(srv.URL).Chat(context.Background(), turns("hi"), func(string) {
		t.Error("delta fired on error response")
	}, func() {
		t.Error("onDone fired on error response")
	})

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("err = %v, want *RelayError", err)
	}
	if relayErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", relayErr.Status)
	}
	if relayErr.Message != "Upstream error (HTTP 401): invalid api key" {
		t.Errorf("message = %q", relayErr.Message)
	}
}

func TestChatFullBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"complete reply"}}]}`)
	}))
	defer srv.Close()

	consumer := New(srv.URL, WithoutStreaming())
	var deltas []string
	done := false
	err := consumer.Chat(context.Background(), turns("hi"), func(d string) {
		deltas = append(deltas, d)
	}, func() { done = true })

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	// The whole reply arrives as a single delta.
	if !reflect.DeepEqual(deltas, []string{"complete reply"}) {
		t.Errorf("deltas = %v", deltas)
	}
	if !done {
		t.Error("onDone not fired")
	}
}

func TestChatFullBodyFallbackEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	done := false
	err := New(srv.URL, WithoutStreaming()).Chat(context.Background(), turns("hi"), func(string) {
		t.Error("delta fired for empty completion")
	}, func() { done = true })

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	// Zero accumulated content is the controller's EmptyResponseError
	// condition; the consumer just completes.
	if !done {
		t.Error("onDone not fired")
	}
}

func TestChatContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	if err := New(srv.URL).Chat(ctx, turns("hi"), func(string) {}, func() {}); err == nil {
		t.Error("expected error from cancelled context")
	}
}
