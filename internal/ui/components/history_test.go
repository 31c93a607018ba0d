// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
)

func sampleItems() []HistoryItem {
	now := time.Now()
	return []HistoryItem{
		{ID: "3", Title: "Career change", Snippet: "I want to switch jobs", When: now, TurnCount: 5},
		{ID: "2", Title: "Sleep habits", Snippet: "I cannot sleep", When: now, TurnCount: 3},
		{ID: "1", Title: "New conversation", Snippet: "New conversation", When: now, TurnCount: 1},
	}
}

func TestHistoryNavigation(t *testing.T) {
	h := NewHistoryList()
	h.SetItems(sampleItems())

	if h.Selected().ID != "3" {
		t.Errorf("initial selection = %q, want first item", h.Selected().ID)
	}

	h.MoveDown()
	h.MoveDown()
	h.MoveDown() // clamped at end
	if h.Selected().ID != "1" {
		t.Errorf("selection = %q, want last item", h.Selected().ID)
	}

	h.MoveUp()
	if h.Selected().ID != "2" {
		t.Errorf("selection = %q, want middle item", h.Selected().ID)
	}
}

func TestHistoryMarks(t *testing.T) {
	h := NewHistoryList()
	h.SetItems(sampleItems())

	h.ToggleMark()
	h.MoveDown()
	h.ToggleMark()

	ids := h.MarkedIDs()
	if len(ids) != 2 || ids[0] != "3" || ids[1] != "2" {
		t.Errorf("marked = %v, want [3 2]", ids)
	}

	// Toggling again unmarks.
	h.ToggleMark()
	if len(h.MarkedIDs()) != 1 {
		t.Errorf("marked = %v after unmark", h.MarkedIDs())
	}

	h.ClearMarks()
	if len(h.MarkedIDs()) != 0 {
		t.Error("marks survived ClearMarks")
	}
}

func TestSetItemsDropsStaleMarks(t *testing.T) {
	h := NewHistoryList()
	h.SetItems(sampleItems())
	h.ToggleMark() // marks "3"

	h.SetItems(sampleItems()[1:]) // "3" removed
	if len(h.MarkedIDs()) != 0 {
		t.Errorf("stale mark kept: %v", h.MarkedIDs())
	}
	if h.Selected() == nil {
		t.Fatal("cursor not clamped after shrink")
	}
}

func TestHistoryRender(t *testing.T) {
	theme := styles.NewTheme()

	h := NewHistoryList()
	if out := h.Render(theme, 60); !strings.Contains(out, "No conversations") {
		t.Error("empty list placeholder missing")
	}

	h.SetItems(sampleItems())
	out := h.Render(theme, 60)
	for _, want := range []string{"Career change", "Sleep habits", "I want to switch jobs"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
}

func TestRenderWelcome(t *testing.T) {
	theme := styles.NewTheme()
	out := RenderWelcome(theme, 60)
	if !strings.Contains(out, "life coach") {
		t.Error("welcome text missing")
	}
}
