// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable widgets for the lifecoach TUI.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
	"github.com/jeranaias/lifecoach-tui/internal/util"
)

// HistoryItem is one row in the conversation history list.
type HistoryItem struct {
	ID        string
	Title     string
	Snippet   string
	When      time.Time
	TurnCount int
}

// HistoryList is a selectable, multi-markable list of conversations.
// Marked items are the working set for batch deletion.
type HistoryList struct {
	Items  []HistoryItem
	Cursor int
	Marked map[string]bool
}

// NewHistoryList creates an empty history list.
func NewHistoryList() HistoryList {
	return HistoryList{Marked: make(map[string]bool)}
}

// SetItems replaces the items, clamping the cursor and dropping marks for
// ids that no longer exist.
func (h *HistoryList) SetItems(items []HistoryItem) {
	h.Items = items
	if h.Cursor >= len(items) {
		h.Cursor = len(items) - 1
	}
	if h.Cursor < 0 {
		h.Cursor = 0
	}
	keep := make(map[string]bool)
	for _, it := range items {
		if h.Marked[it.ID] {
			keep[it.ID] = true
		}
	}
	h.Marked = keep
}

// MoveUp moves the cursor up one row.
func (h *HistoryList) MoveUp() {
	if h.Cursor > 0 {
		h.Cursor--
	}
}

// MoveDown moves the cursor down one row.
func (h *HistoryList) MoveDown() {
	if h.Cursor < len(h.Items)-1 {
		h.Cursor++
	}
}

// Selected returns the item under the cursor, or nil for an empty list.
func (h *HistoryList) Selected() *HistoryItem {
	if len(h.Items) == 0 {
		return nil
	}
	return &h.Items[h.Cursor]
}

// ToggleMark flips the mark on the item under the cursor.
func (h *HistoryList) ToggleMark() {
	if it := h.Selected(); it != nil {
		if h.Marked[it.ID] {
			delete(h.Marked, it.ID)
		} else {
			h.Marked[it.ID] = true
		}
	}
}

// MarkedIDs returns the marked ids in list order.
func (h *HistoryList) MarkedIDs() []string {
	var ids []string
	for _, it := range h.Items {
		if h.Marked[it.ID] {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// ClearMarks unmarks everything.
func (h *HistoryList) ClearMarks() {
	h.Marked = make(map[string]bool)
}

// Render draws the list within the given width.
func (h *HistoryList) Render(theme *styles.Theme, width int) string {
	if len(h.Items) == 0 {
		return theme.HistoryList.Render(theme.HistorySnippet.Render("No conversations yet"))
	}

	var b strings.Builder
	for i, it := range h.Items {
		marker := "  "
		if h.Marked[it.ID] {
			marker = "✗ "
		}

		title := util.TruncateWidth(it.Title, width-10)
		snippet := util.TruncateWidth(it.Snippet, width-10)
		meta := fmt.Sprintf("%s · %d turns", it.When.Format("Jan 2 15:04"), it.TurnCount)

		line := marker + theme.HistoryTitle.Render(title) + "\n" +
			"  " + theme.HistorySnippet.Render(snippet) + "\n" +
			"  " + theme.HistoryMeta.Render(meta)

		style := theme.HistoryItem
		switch {
		case i == h.Cursor:
			style = theme.HistoryItemSelected
		case h.Marked[it.ID]:
			style = theme.HistoryItemMarked
		}
		b.WriteString(style.Render(line))
		if i < len(h.Items)-1 {
			b.WriteString("\n")
		}
	}
	return theme.HistoryList.Width(width).Render(b.String())
}
