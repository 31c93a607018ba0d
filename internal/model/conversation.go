// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/util"
)

const (
	// DefaultTitle is the title of a conversation before its first user turn.
	DefaultTitle = "New conversation"

	// TitleMaxRunes is the rune limit a derived title is clamped to. The
	// ellipsis is appended on top of the limit, so a clamped title shows
	// the full first 20 characters.
	TitleMaxRunes = 20

	// SnippetMaxRunes is the rune limit for history-list snippets.
	SnippetMaxRunes = 50
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of turns. Turns[0] is always the
// system turn; a conversation never exists with zero turns.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Turns        []*Turn   `json:"turns"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewConversation creates a conversation holding only its system turn.
func NewConversation(id, systemPrompt string) *Conversation {
	return &Conversation{
		ID:           id,
		Title:        DefaultTitle,
		Turns:        []*Turn{NewSystemTurn(systemPrompt)},
		LastActivity: time.Now(),
	}
}

// AddUserTurn appends a user turn. If this is the conversation's first user
// turn, the title is derived from it; later user turns never change the
// title.
func (c *Conversation) AddUserTurn(content string) *Turn {
	first := !c.HasUserTurn()
	turn := NewUserTurn(content)
	c.Turns = append(c.Turns, turn)
	if first {
		c.Title = DeriveTitle(content)
	}
	c.touch()
	return turn
}

// AddAssistantTurn appends a completed assistant turn.
func (c *Conversation) AddAssistantTurn(content string) *Turn {
	turn := NewTurn(RoleAssistant, content)
	c.Turns = append(c.Turns, turn)
	c.touch()
	return turn
}

// BeginAssistantTurn appends an empty streaming assistant turn and returns
// it for delta accumulation.
func (c *Conversation) BeginAssistantTurn() *Turn {
	turn := NewStreamingTurn()
	c.Turns = append(c.Turns, turn)
	c.touch()
	return turn
}

// DropLastTurn removes the final turn. Used to discard a streaming
// assistant turn after a failed or empty stream. The system turn is never
// removed.
func (c *Conversation) DropLastTurn() {
	if len(c.Turns) > 1 {
		c.Turns = c.Turns[:len(c.Turns)-1]
		c.touch()
	}
}

// Reset discards every turn except the system turn. Title and identity are
// kept.
func (c *Conversation) Reset() {
	if len(c.Turns) > 1 {
		c.Turns = c.Turns[:1]
		c.touch()
	}
}

// HasUserTurn reports whether the conversation contains at least one user
// turn.
func (c *Conversation) HasUserTurn() bool {
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}

// FirstUserTurn returns the first user turn, or nil.
func (c *Conversation) FirstUserTurn() *Turn {
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			return t
		}
	}
	return nil
}

// LastTurn returns the final turn. A conversation always has at least the
// system turn.
func (c *Conversation) LastTurn() *Turn {
	return c.Turns[len(c.Turns)-1]
}

// Snippet returns a short preview for the history list: the first user
// turn clamped to SnippetMaxRunes, or the default title placeholder.
func (c *Conversation) Snippet() string {
	if t := c.FirstUserTurn(); t != nil {
		return util.ClampRunes(t.Content, SnippetMaxRunes)
	}
	return DefaultTitle
}

// SystemPrompt returns the content of the system turn.
func (c *Conversation) SystemPrompt() string {
	return c.Turns[0].Content
}

// Valid reports whether the conversation satisfies its structural
// invariants: a non-empty id, at least one turn, and a leading system turn.
func (c *Conversation) Valid() bool {
	return c.ID != "" && len(c.Turns) > 0 && c.Turns[0].Role == RoleSystem
}

// Clone returns a deep copy. Streaming state is not carried over.
func (c *Conversation) Clone() *Conversation {
	turns := make([]*Turn, len(c.Turns))
	for i, t := range c.Turns {
		copied := &Turn{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.DisplayContent(),
			Timestamp: t.Timestamp,
		}
		turns[i] = copied
	}
	return &Conversation{
		ID:           c.ID,
		Title:        c.Title,
		Turns:        turns,
		LastActivity: c.LastActivity,
	}
}

func (c *Conversation) touch() {
	c.LastActivity = time.Now()
}

// DeriveTitle produces a conversation title from the first user turn:
// the first TitleMaxRunes runes, with "..." appended only when the
// original text is longer.
func DeriveTitle(content string) string {
	if content == "" {
		return DefaultTitle
	}
	return util.ClampRunes(content, TitleMaxRunes)
}
