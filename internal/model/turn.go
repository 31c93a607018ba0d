// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Coach"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the three recognized roles.
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in a conversation. Once appended to a conversation a
// turn's role and content are immutable; the only exception is an assistant
// turn that is still streaming.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Streaming state, never persisted.
	// PERFORMANCE: strings.Builder avoids quadratic allocations while
	// deltas arrive.
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewTurn creates a turn with a generated ID.
func NewTurn(role Role, content string) *Turn {
	return &Turn{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) *Turn {
	return NewTurn(RoleUser, content)
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(content string) *Turn {
	return NewTurn(RoleSystem, content)
}

// NewStreamingTurn creates an empty assistant turn that accumulates deltas
// until Finalize is called.
func NewStreamingTurn() *Turn {
	return &Turn{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// AppendDelta appends a content delta to a streaming turn.
func (t *Turn) AppendDelta(delta string) {
	if t.IsStreaming {
		t.streamContent.WriteString(delta)
	}
}

// Finalize merges accumulated deltas into Content and ends streaming.
func (t *Turn) Finalize() {
	if !t.IsStreaming {
		return
	}
	t.Content = t.streamContent.String()
	t.streamContent.Reset()
	t.IsStreaming = false
}

// DisplayContent returns the text to render, streaming or final.
func (t *Turn) DisplayContent() string {
	if t.IsStreaming {
		return t.streamContent.String()
	}
	return t.Content
}

// IsEmpty reports whether the turn carries no content at all.
func (t *Turn) IsEmpty() bool {
	return len(t.Content) == 0 && t.streamContent.Len() == 0
}

// generateID returns a random 16-character hex identifier.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a timestamp-based ID; collisions are acceptable
		// for display-only identifiers.
		return hex.EncodeToString([]byte(time.Now().Format("150405.000000")))[:16]
	}
	return hex.EncodeToString(b)
}
