// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// End-to-end tests over the full pipeline: relay consumer -> relay HTTP
// server -> upstream model API, with the conversation store persisting the
// result.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jeranaias/lifecoach-tui/internal/client"
	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/server"
	"github.com/jeranaias/lifecoach-tui/internal/storage"
)

// fakeUpstream mimics an OpenAI-compatible streaming completion endpoint.
func fakeUpstream(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w,
				"data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newPipeline(t *testing.T, upstreamURL string) (*client.Consumer, *storage.Store, string) {
	t.Helper()

	cfg := config.Default()
	cfg.Upstream.URL = upstreamURL
	cfg.Upstream.APIKey = "sk-test"

	relay := httptest.NewServer(server.New(cfg).Handler())
	t.Cleanup(relay.Close)

	storePath := filepath.Join(t.TempDir(), "chats.json")
	store := storage.NewStore(storePath, "You are a life coach.")
	return client.New(relay.URL), store, storePath
}

func TestFullPipelineStreamsAndPersists(t *testing.T) {
	upstream := fakeUpstream(t, []string{"I ", "hear you."})
	defer upstream.Close()

	consumer, store, storePath := newPipeline(t, upstream.URL)

	conv := store.Active()
	conv.AddUserTurn("I feel stuck at work")
	history := append([]*model.Turn(nil), conv.Turns...)
	turn := conv.BeginAssistantTurn()

	var deltas []string
	done := false
	err := consumer.Chat(context.Background(), history,
		func(d string) {
			deltas = append(deltas, d)
			turn.AppendDelta(d)
		},
		func() { done = true })
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !done {
		t.Error("onDone not called")
	}
	if len(deltas) != 2 || deltas[0] != "I " || deltas[1] != "hear you." {
		t.Fatalf("deltas = %q", deltas)
	}

	turn.Finalize()
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store sees the whole conversation.
	reloaded := storage.NewStore(storePath, "You are a life coach.")
	got := reloaded.Active()
	if len(got.Turns) != 3 {
		t.Fatalf("persisted turns = %d, want 3", len(got.Turns))
	}
	if got.Turns[2].Content != "I hear you." {
		t.Errorf("assistant turn = %q", got.Turns[2].Content)
	}
	if got.Title != "I feel stuck at work" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestFullPipelineUpstreamAuthFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer upstream.Close()

	consumer, store, _ := newPipeline(t, upstream.URL)

	conv := store.Active()
	conv.AddUserTurn("Hello?")
	history := append([]*model.Turn(nil), conv.Turns...)
	turn := conv.BeginAssistantTurn()

	err := consumer.Chat(context.Background(), history,
		func(d string) { turn.AppendDelta(d) },
		func() {})
	if err == nil {
		t.Fatal("expected error from failed upstream auth")
	}
	var relayErr *client.RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("error type = %T", err)
	}
	if relayErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", relayErr.Status)
	}

	// No assistant turn is committed for a failed stream.
	if !turn.IsEmpty() {
		t.Error("turn accumulated content from a failed stream")
	}
	conv.DropLastTurn()
	if len(conv.Turns) != 2 {
		t.Errorf("turns = %d after dropping failed reply, want 2", len(conv.Turns))
	}
}
