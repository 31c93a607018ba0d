// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/ui/components"
)

// streamCursor marks the growing edge of a streaming reply.
const streamCursor = "▌"

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// =============================================================================
// VIEW
// =============================================================================

// View implements the render side of the Elm loop.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	switch m.mode {
	case modeHistory:
		return m.viewHistory()
	case modeRename:
		return m.viewRename()
	default:
		return m.viewChat()
	}
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.viewInput())
	b.WriteString("\n")
	b.WriteString(m.viewStatusBar())
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.viewHelp())
	}
	return b.String()
}

func (m Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("Life Coach")
	conv := m.theme.HeaderSubtitle.Render(m.active().Title)
	return m.theme.Header.Width(m.width).Render(title + "  " + conv)
}

func (m Model) viewInput() string {
	prompt := m.input.View()
	if id := m.active().ID; m.streaming(id) {
		thinking := m.spin.View() + " " + m.theme.ThinkingText.Render("Coach is thinking...")
		return m.theme.InputContainer.Width(m.width - 2).Render(thinking)
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(prompt)
}

func (m Model) viewStatusBar() string {
	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.theme.StatusNotice.Render(m.status))
	}

	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) viewHelp() string {
	var b strings.Builder
	for _, group := range m.keys.FullHelp() {
		var parts []string
		for _, binding := range group {
			h := binding.Help()
			parts = append(parts,
				m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
	}
	return m.theme.Container.Render(strings.TrimRight(b.String(), "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the transcript content and pins the view to the
// bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// renderConversation draws the active conversation's turns as bubbles.
func (m *Model) renderConversation() string {
	conv := m.active()
	width := m.contentWidth()

	var b strings.Builder

	if !conv.HasUserTurn() {
		b.WriteString(components.RenderWelcome(m.theme, width))
		b.WriteString("\n")
	}

	for _, turn := range conv.Turns {
		if turn.Role == model.RoleSystem {
			continue
		}
		b.WriteString(m.renderTurn(turn, width))
		b.WriteString("\n")
	}

	if errText := m.streamErr[conv.ID]; errText != "" {
		label := m.theme.RoleLabel.Render("Coach")
		bubble := m.theme.ErrorBubble.MaxWidth(width).Render(errText)
		b.WriteString(label + "\n" + bubble + "\n")
	}

	return b.String()
}

// renderTurn draws one turn. Streaming assistant text is rendered plain
// with a cursor; finished assistant text goes through the markdown
// renderer.
func (m *Model) renderTurn(turn *model.Turn, width int) string {
	label := m.theme.RoleLabel.Render(turn.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(turn.Timestamp.Format("15:04"))

	switch {
	case turn.Role == model.RoleUser:
		bubble := m.theme.UserBubble.MaxWidth(width).Render(turn.Content)
		return lipgloss.JoinVertical(lipgloss.Right, label, bubble)

	case turn.IsStreaming:
		text := turn.DisplayContent()
		if text == "" {
			text = m.spin.View()
		} else {
			text += streamCursor
		}
		bubble := m.theme.CoachBubble.MaxWidth(width).Render(text)
		return label + "\n" + bubble

	default:
		bubble := m.theme.CoachBubble.MaxWidth(width).Render(m.render(turn.Content))
		return label + "\n" + bubble
	}
}

func (m *Model) contentWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// HISTORY AND RENAME SCREENS
// =============================================================================

func (m Model) viewHistory() string {
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.history.Render(m.theme, m.contentWidth()))
	b.WriteString("\n")

	hints := []string{
		m.theme.ShortcutKey.Render("Enter") + " " + m.theme.ShortcutDesc.Render("open"),
		m.theme.ShortcutKey.Render("Space") + " " + m.theme.ShortcutDesc.Render("mark"),
		m.theme.ShortcutKey.Render("d") + " " + m.theme.ShortcutDesc.Render("delete"),
		m.theme.ShortcutKey.Render("r") + " " + m.theme.ShortcutDesc.Render("rename"),
		m.theme.ShortcutKey.Render("Esc") + " " + m.theme.ShortcutDesc.Render("back"),
	}
	b.WriteString(m.theme.StatusBar.Width(m.width).Render(strings.Join(hints, "  ")))
	return b.String()
}

func (m Model) viewRename() string {
	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(m.theme.Container.Render("Rename conversation:"))
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.rename.View()))
	b.WriteString("\n")
	hints := []string{
		m.theme.ShortcutKey.Render("Enter") + " " + m.theme.ShortcutDesc.Render("save"),
		m.theme.ShortcutKey.Render("Esc") + " " + m.theme.ShortcutDesc.Render("cancel"),
	}
	b.WriteString(m.theme.StatusBar.Width(m.width).Render(strings.Join(hints, "  ")))
	return b.String()
}
