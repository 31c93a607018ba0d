// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/sse"
)

// newRelay builds a relay pointed at the given fake upstream URL.
func newRelay(upstreamURL string) *Server {
	cfg := config.Default()
	cfg.Upstream.URL = upstreamURL
	cfg.Upstream.APIKey = "sk-test"
	cfg.Upstream.TimeoutSecs = 5
	return New(cfg)
}

// fakeUpstream returns an httptest server that speaks the upstream SSE
// dialect: {choices:[{delta:{content}}]} chunks followed by [DONE].
func fakeUpstream(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]string{"content": d}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// relayedPayloads parses the relay's SSE response into raw payloads.
func relayedPayloads(t *testing.T, body string) []string {
	t.Helper()
	events, rest := sse.Feed("", body)
	if rest != "" {
		t.Fatalf("incomplete trailing frame: %q", rest)
	}
	var payloads []string
	for _, ev := range events {
		payloads = append(payloads, sse.DataLines(ev)...)
	}
	return payloads
}

func TestChatRelaysDeltas(t *testing.T) {
	up := fakeUpstream(t, "I ", "hear you.")
	defer up.Close()

	rec := postChat(t, newRelay(up.URL), `{"messages":[{"role":"system","content":"coach"},{"role":"user","content":"I feel stuck at work"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	payloads := relayedPayloads(t, rec.Body.String())
	if len(payloads) != 3 {
		t.Fatalf("payloads = %v, want 2 deltas + sentinel", payloads)
	}

	var frame DeltaFrame
	if err := json.Unmarshal([]byte(payloads[0]), &frame); err != nil || frame.Content != "I " {
		t.Errorf("first frame = %q", payloads[0])
	}
	if err := json.Unmarshal([]byte(payloads[1]), &frame); err != nil || frame.Content != "hear you." {
		t.Errorf("second frame = %q", payloads[1])
	}
	if !sse.IsDone(payloads[2]) {
		t.Errorf("terminal payload = %q, want [DONE]", payloads[2])
	}
}

func TestChatValidation(t *testing.T) {
	up := fakeUpstream(t)
	defer up.Close()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"not json", `{{{`},
		{"missing messages", `{}`},
		{"empty messages", `{"messages":[]}`},
		{"bad role", `{"messages":[{"role":"wizard","content":"hi"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, newRelay(up.URL), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body not JSON: %v", err)
			}
			if resp["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestChatUpstreamErrorBeforeStream(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer up.Close()

	rec := postChat(t, newRelay(up.URL), `{"messages":[{"role":"user","content":"hi"}]}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body not JSON: %v", err)
	}
	if !strings.Contains(resp["error"], "invalid api key") {
		t.Errorf("error = %q, want upstream message included", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "data:") {
		t.Error("SSE bytes emitted on pre-stream failure")
	}
}

func TestChatEmptyUpstreamStream(t *testing.T) {
	up := fakeUpstream(t) // no deltas, just [DONE]
	defer up.Close()

	rec := postChat(t, newRelay(up.URL), `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payloads := relayedPayloads(t, rec.Body.String())
	if len(payloads) != 1 || !sse.IsDone(payloads[0]) {
		t.Errorf("payloads = %v, want only [DONE]", payloads)
	}
}

func TestChatSkipsMalformedUpstreamFrames(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: not json at all\n\n")
		payload, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]string{"content": "survived"}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer up.Close()

	rec := postChat(t, newRelay(up.URL), `{"messages":[{"role":"user","content":"hi"}]}`)
	payloads := relayedPayloads(t, rec.Body.String())
	if len(payloads) != 2 {
		t.Fatalf("payloads = %v, want delta + sentinel", payloads)
	}
	var frame DeltaFrame
	if err := json.Unmarshal([]byte(payloads[0]), &frame); err != nil || frame.Content != "survived" {
		t.Errorf("frame = %q", payloads[0])
	}
}

func TestHealth(t *testing.T) {
	srv := newRelay("http://127.0.0.1:0")
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("health body not JSON: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newRelay("http://127.0.0.1:0")
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third immediate request should be limited")
	}
	// Another client has its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("distinct client should not share the bucket")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newRelay("http://127.0.0.1:0")
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
