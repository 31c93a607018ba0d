// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation view: the send flow, live
// streaming of the coach's reply, and the history overlay with select,
// rename, and single or batch delete.
package chat

import (
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/model"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamRequestMsg asks the application root to open a stream against the
// relay with the given turn history. Emitted by the chat model on submit;
// the root owns the network side.
type StreamRequestMsg struct {
	ConversationID string
	Turns          []*model.Turn
}

// StreamTokenMsg carries one content delta from the streaming goroutine.
type StreamTokenMsg struct {
	ConversationID string
	Token          string
	IsFirst        bool
}

// StreamCompleteMsg signals normal end of stream.
type StreamCompleteMsg struct {
	ConversationID string
}

// StreamErrorMsg signals a failed stream. Message is the human-readable
// cause shown in the error bubble.
type StreamErrorMsg struct {
	ConversationID string
	Message        string
}

// CancelStreamMsg asks the root to abort the in-flight stream for a
// conversation.
type CancelStreamMsg struct {
	ConversationID string
}

// StreamTickMsg drives batched rendering while tokens arrive.
type StreamTickMsg struct {
	Time time.Time
}
