// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lifecoach-tui/internal/model"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update advances the model for one message. It returns the concrete type
// so the application root can wrap it without type assertions.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		switch m.mode {
		case modeHistory:
			return m.handleHistoryKey(msg)
		case modeRename:
			return m.handleRenameKey(msg)
		default:
			return m.handleChatKey(msg)
		}

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header, input box, and status bar take fixed rows; the viewport
	// gets the rest.
	chrome := 7
	vh := msg.Height - chrome
	if vh < 3 {
		vh = 3
	}
	if !m.ready {
		m.viewport = newViewport(msg.Width, vh)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
	}
	m.input.Width = msg.Width - 8
	m.rename.Width = msg.Width - 8

	m.refreshViewport()
	return m, nil
}

// =============================================================================
// CHAT MODE KEYS
// =============================================================================

func (m Model) handleChatKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.store.Persist()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.Cancel):
		if id := m.active().ID; m.streaming(id) {
			return m, cancelStreamCmd(id)
		}
		m.status = ""
		m.showHelp = false
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		if m.streaming(m.active().ID) {
			m.notice("Wait for the current reply before starting a new conversation.")
			return m, nil
		}
		conv := m.store.Create()
		_ = m.store.SetActive(conv.ID)
		m.status = ""
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.History):
		m.openHistory()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		conv := m.active()
		if m.streaming(conv.ID) {
			m.notice("Wait for the current reply before clearing.")
			return m, nil
		}
		conv.Reset()
		delete(m.streamErr, conv.ID)
		m.store.Persist()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		// Only toggle help when the input is empty, so "?" is still
		// typable mid-sentence.
		if strings.TrimSpace(m.input.Value()) == "" {
			m.showHelp = !m.showHelp
			return m, nil
		}

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit commits the user turn, opens the assistant's streaming turn,
// and asks the application root to start the network leg.
func (m Model) handleSubmit() (Model, tea.Cmd) {
	text := m.submitText()
	if text == "" {
		return m, nil
	}

	conv := m.active()
	delete(m.streamErr, conv.ID)
	m.status = ""

	conv.AddUserTurn(text)

	// Snapshot the history before the empty assistant turn is appended;
	// the upstream request must not include it.
	turns := make([]*model.Turn, len(conv.Turns))
	copy(turns, conv.Turns)

	turn := conv.BeginAssistantTurn()
	m.sendInFlight[conv.ID] = true
	m.streamingTurns[conv.ID] = turn
	m.streamBufs[conv.ID] = NewStreamingBuffer()

	m.store.Persist()
	m.refreshViewport()

	id := conv.ID
	request := func() tea.Msg {
		return StreamRequestMsg{ConversationID: id, Turns: turns}
	}
	return m, tea.Batch(request, m.spin.Tick, streamTickCmd())
}

func cancelStreamCmd(conversationID string) tea.Cmd {
	return func() tea.Msg {
		return CancelStreamMsg{ConversationID: conversationID}
	}
}

// =============================================================================
// HISTORY MODE KEYS
// =============================================================================

func (m Model) handleHistoryKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.store.Persist()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.History):
		m.closeHistory()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.history.MoveUp()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.history.MoveDown()
		return m, nil

	case key.Matches(msg, m.keys.Mark):
		m.history.ToggleMark()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if it := m.history.Selected(); it != nil {
			_ = m.store.SetActive(it.ID)
		}
		m.closeHistory()
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if it := m.history.Selected(); it != nil {
			m.rename.SetValue(it.Title)
			m.rename.CursorEnd()
			m.rename.Focus()
			m.mode = modeRename
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		return m.handleHistoryDelete()

	case key.Matches(msg, m.keys.NewChat):
		conv := m.store.Create()
		_ = m.store.SetActive(conv.ID)
		m.closeHistory()
		return m, nil
	}
	return m, nil
}

// handleHistoryDelete removes the marked conversations, or the selected one
// when nothing is marked. The store re-points the active conversation and
// recreates a default when the last one goes.
func (m Model) handleHistoryDelete() (Model, tea.Cmd) {
	ids := m.history.MarkedIDs()
	if len(ids) == 0 {
		if it := m.history.Selected(); it != nil {
			ids = []string{it.ID}
		}
	}
	for _, id := range ids {
		if m.streaming(id) {
			m.notice("A conversation with a reply in flight can't be deleted.")
			return m, nil
		}
	}
	if len(ids) == 1 {
		_ = m.store.Delete(ids[0])
	} else if len(ids) > 1 {
		m.store.DeleteMany(ids)
	}
	for _, id := range ids {
		delete(m.streamErr, id)
	}
	m.history.SetItems(m.historyItems())
	m.history.ClearMarks()
	return m, nil
}

// =============================================================================
// RENAME MODE KEYS
// =============================================================================

func (m Model) handleRenameKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.rename.Blur()
		m.mode = modeHistory
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		title := strings.TrimSpace(m.rename.Value())
		if it := m.history.Selected(); it != nil && title != "" {
			_ = m.store.Rename(it.ID, title)
			m.store.Persist()
		}
		m.rename.Blur()
		m.history.SetItems(m.historyItems())
		m.mode = modeHistory
		return m, nil
	}

	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

// =============================================================================
// STREAM MESSAGES
// =============================================================================

func (m Model) handleStreamToken(msg StreamTokenMsg) (Model, tea.Cmd) {
	buf := m.streamBufs[msg.ConversationID]
	turn := m.streamingTurns[msg.ConversationID]
	if buf == nil || turn == nil {
		// Stream already settled (cancelled or errored); drop the token.
		return m, nil
	}
	buf.Write(msg.Token)
	if content, ok := buf.Flush(); ok {
		turn.AppendDelta(content)
		if msg.ConversationID == m.store.ActiveID() {
			m.refreshViewport()
		}
	}
	return m, nil
}

func (m Model) handleStreamTick() (Model, tea.Cmd) {
	activeDirty := false
	for id, buf := range m.streamBufs {
		turn := m.streamingTurns[id]
		if turn == nil {
			continue
		}
		if content, ok := buf.Flush(); ok {
			turn.AppendDelta(content)
			if id == m.store.ActiveID() {
				activeDirty = true
			}
		}
	}
	if activeDirty {
		m.refreshViewport()
	}
	if m.anyStreaming() {
		return m, streamTickCmd()
	}
	return m, nil
}

// handleStreamComplete finalizes the assistant turn. A stream that ended
// without producing any text leaves no assistant turn behind; the user sees
// an error bubble instead.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (Model, tea.Cmd) {
	turn := m.settleStream(msg.ConversationID)
	if turn == nil {
		return m, nil
	}
	conv, err := m.store.Get(msg.ConversationID)
	if err != nil {
		// Conversation was deleted mid-stream; nothing to commit.
		return m, nil
	}

	if turn.IsEmpty() {
		conv.DropLastTurn()
		m.streamErr[conv.ID] = "The coach didn't say anything. Please try again."
	} else {
		turn.Finalize()
	}
	m.store.Persist()

	if msg.ConversationID == m.store.ActiveID() {
		m.refreshViewport()
	}
	return m, nil
}

// handleStreamError settles a failed stream. Partial text that already
// arrived is kept as a finished turn; an empty turn is dropped and replaced
// by an error bubble.
func (m Model) handleStreamError(msg StreamErrorMsg) (Model, tea.Cmd) {
	turn := m.settleStream(msg.ConversationID)
	if turn == nil {
		return m, nil
	}
	conv, err := m.store.Get(msg.ConversationID)
	if err != nil {
		return m, nil
	}

	if turn.IsEmpty() {
		conv.DropLastTurn()
		m.streamErr[conv.ID] = msg.Message
	} else {
		turn.Finalize()
		m.notice("Reply interrupted: " + msg.Message)
	}
	m.store.Persist()

	if msg.ConversationID == m.store.ActiveID() {
		m.refreshViewport()
	}
	return m, nil
}
