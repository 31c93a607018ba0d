// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

const testPrompt = "You are a supportive life coach."

func TestNewConversationInvariants(t *testing.T) {
	c := NewConversation("1700000000000", testPrompt)

	if !c.Valid() {
		t.Fatal("fresh conversation should satisfy invariants")
	}
	if len(c.Turns) != 1 {
		t.Fatalf("turn count = %d, want 1", len(c.Turns))
	}
	if c.Turns[0].Role != RoleSystem {
		t.Errorf("turns[0].Role = %q, want system", c.Turns[0].Role)
	}
	if c.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", c.Title, DefaultTitle)
	}
	if c.SystemPrompt() != testPrompt {
		t.Errorf("SystemPrompt = %q, want %q", c.SystemPrompt(), testPrompt)
	}
}

func TestTitleSetOnceFromFirstUserTurn(t *testing.T) {
	c := NewConversation("1", testPrompt)

	c.AddUserTurn("I feel stuck at work")
	if c.Title != "I feel stuck at work" {
		t.Errorf("title = %q, want %q", c.Title, "I feel stuck at work")
	}

	// A second user turn must not alter the title.
	c.AddAssistantTurn("Tell me more.")
	c.AddUserTurn("This much longer message would produce a different title")
	if c.Title != "I feel stuck at work" {
		t.Errorf("title changed to %q after later turns", c.Title)
	}
}

func TestTitleTruncation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"exactly 20 runes no ellipsis", "I feel stuck at work", "I feel stuck at work"},
		{"over 20 runes gets ellipsis", "I have been feeling overwhelmed lately", "I have been feeling ..."},
		{"short message unchanged", "Hi", "Hi"},
		{"empty falls back to default", "", DefaultTitle},
		{"multibyte counted as runes", strings.Repeat("あ", 25), strings.Repeat("あ", 20) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.content); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestStreamingTurnLifecycle(t *testing.T) {
	c := NewConversation("1", testPrompt)
	c.AddUserTurn("hello")

	turn := c.BeginAssistantTurn()
	if !turn.IsStreaming {
		t.Fatal("turn should be streaming")
	}

	turn.AppendDelta("I ")
	turn.AppendDelta("hear you.")
	if got := turn.DisplayContent(); got != "I hear you." {
		t.Errorf("DisplayContent = %q, want %q", got, "I hear you.")
	}
	if turn.Content != "" {
		t.Errorf("Content = %q before finalize, want empty", turn.Content)
	}

	turn.Finalize()
	if turn.IsStreaming {
		t.Error("turn still streaming after finalize")
	}
	if turn.Content != "I hear you." {
		t.Errorf("Content = %q, want %q", turn.Content, "I hear you.")
	}

	// Deltas after finalize are ignored.
	turn.AppendDelta("extra")
	if turn.Content != "I hear you." {
		t.Errorf("Content mutated after finalize: %q", turn.Content)
	}
}

func TestDropLastTurnKeepsSystemTurn(t *testing.T) {
	c := NewConversation("1", testPrompt)
	c.AddUserTurn("hello")
	c.BeginAssistantTurn()

	c.DropLastTurn()
	if len(c.Turns) != 2 {
		t.Fatalf("turn count = %d, want 2", len(c.Turns))
	}

	c.DropLastTurn()
	c.DropLastTurn() // no-op, system turn must survive
	if len(c.Turns) != 1 || c.Turns[0].Role != RoleSystem {
		t.Errorf("system turn was removed")
	}
}

func TestReset(t *testing.T) {
	c := NewConversation("1", testPrompt)
	c.AddUserTurn("hello")
	c.AddAssistantTurn("hi there")

	c.Reset()
	if len(c.Turns) != 1 {
		t.Fatalf("turn count after reset = %d, want 1", len(c.Turns))
	}
	if c.Turns[0].Role != RoleSystem || c.Turns[0].Content != testPrompt {
		t.Error("reset did not preserve the system turn")
	}
}

func TestSnippet(t *testing.T) {
	c := NewConversation("1", testPrompt)
	if got := c.Snippet(); got != DefaultTitle {
		t.Errorf("snippet without user turn = %q, want %q", got, DefaultTitle)
	}

	long := strings.Repeat("x", 60)
	c.AddUserTurn(long)
	want := strings.Repeat("x", 50) + "..."
	if got := c.Snippet(); got != want {
		t.Errorf("snippet = %q, want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	c := NewConversation("1", testPrompt)
	c.AddUserTurn("hello")
	turn := c.BeginAssistantTurn()
	turn.AppendDelta("partial")

	clone := c.Clone()
	if clone.ID != c.ID || clone.Title != c.Title {
		t.Error("clone identity mismatch")
	}
	if len(clone.Turns) != len(c.Turns) {
		t.Fatalf("clone turn count = %d, want %d", len(clone.Turns), len(c.Turns))
	}
	// Streaming content is materialized in the clone.
	if clone.Turns[2].Content != "partial" {
		t.Errorf("clone streaming content = %q, want %q", clone.Turns[2].Content, "partial")
	}

	// Mutating the clone must not affect the original.
	clone.AddUserTurn("extra")
	if len(c.Turns) != 3 {
		t.Error("clone mutation leaked into original")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("Role %q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("unknown role accepted")
	}
}
