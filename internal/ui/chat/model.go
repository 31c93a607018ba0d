// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/storage"
	"github.com/jeranaias/lifecoach-tui/internal/ui/components"
	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
)

// =============================================================================
// VIEW MODES
// =============================================================================

// viewMode selects which screen the chat model is showing.
type viewMode int

const (
	modeChat viewMode = iota
	modeHistory
	modeRename
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// RenderFunc turns final assistant markdown into styled terminal output.
// Injected so the markdown stack stays out of this package and tests can
// pass identity.
type RenderFunc func(string) string

// Model is the conversation screen: input, transcript viewport, streaming
// state, and the history overlay.
type Model struct {
	theme  *styles.Theme
	store  *storage.Store
	render RenderFunc

	keys     KeyMap
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	history  components.HistoryList
	rename   textinput.Model

	mode     viewMode
	showHelp bool

	// Per-conversation streaming state. A conversation with an entry in
	// sendInFlight rejects further sends until its stream settles.
	sendInFlight   map[string]bool
	streamingTurns map[string]*model.Turn
	streamBufs     map[string]*StreamingBuffer
	streamErr      map[string]string

	status string
	width  int
	height int
	ready  bool
}

// New creates the chat model. render may be nil, in which case assistant
// turns are shown as plain text.
func New(theme *styles.Theme, store *storage.Store, render RenderFunc) Model {
	if render == nil {
		render = func(s string) string { return s }
	}

	input := textinput.New()
	input.Placeholder = "What's on your mind?"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	rename := textinput.New()
	rename.Prompt = "> "
	rename.CharLimit = model.TitleMaxRunes * 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		theme:          theme,
		store:          store,
		render:         render,
		keys:           DefaultKeyMap(),
		input:          input,
		rename:         rename,
		spin:           sp,
		history:        components.NewHistoryList(),
		sendInFlight:   make(map[string]bool),
		streamingTurns: make(map[string]*model.Turn),
		streamBufs:     make(map[string]*StreamingBuffer),
		streamErr:      make(map[string]string),
	}
}

// Init returns the startup commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// active returns the active conversation. The store guarantees one always
// exists.
func (m *Model) active() *model.Conversation {
	return m.store.Active()
}

// streaming reports whether the given conversation has a reply in flight.
func (m *Model) streaming(conversationID string) bool {
	return m.sendInFlight[conversationID]
}

// anyStreaming reports whether any conversation has a reply in flight.
func (m *Model) anyStreaming() bool {
	return len(m.sendInFlight) > 0
}

// settleStream tears down the in-flight bookkeeping for a conversation and
// returns its streaming turn after draining any buffered tokens into it.
func (m *Model) settleStream(conversationID string) *model.Turn {
	turn := m.streamingTurns[conversationID]
	if buf := m.streamBufs[conversationID]; buf != nil && turn != nil {
		if content, ok := buf.ForceFlush(); ok {
			turn.AppendDelta(content)
		}
	}
	delete(m.sendInFlight, conversationID)
	delete(m.streamingTurns, conversationID)
	delete(m.streamBufs, conversationID)
	return turn
}

// historyItems builds the history list rows from the store, most recent
// first.
func (m *Model) historyItems() []components.HistoryItem {
	convs := m.store.List()
	items := make([]components.HistoryItem, len(convs))
	for i, c := range convs {
		items[i] = components.HistoryItem{
			ID:        c.ID,
			Title:     c.Title,
			Snippet:   c.Snippet(),
			When:      c.LastActivity,
			TurnCount: len(c.Turns) - 1, // system turn is not user-visible
		}
	}
	return items
}

// openHistory switches to the history overlay with fresh items.
func (m *Model) openHistory() {
	m.history.SetItems(m.historyItems())
	m.history.ClearMarks()
	m.mode = modeHistory
	m.input.Blur()
}

// closeHistory returns to the chat view.
func (m *Model) closeHistory() {
	m.mode = modeChat
	m.input.Focus()
	m.refreshViewport()
}

// notice sets the transient status-bar message.
func (m *Model) notice(text string) {
	m.status = text
}

// submitText validates and consumes the input field's current value.
// Returns "" when there is nothing to send. On rejection the text stays in
// the field so nothing the user typed is lost.
func (m *Model) submitText() string {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return ""
	}
	if m.streaming(m.active().ID) {
		m.notice("The coach is still replying — wait for the answer.")
		return ""
	}
	m.input.Reset()
	return text
}
