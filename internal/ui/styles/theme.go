// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// LayoutMode selects between narrow and wide arrangements.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota
	LayoutWide
)

// wideLayoutMinWidth is the terminal width at which the history sidebar
// appears next to the chat instead of as a separate screen.
const wideLayoutMinWidth = 100

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Containers
	App       lipgloss.Style
	Container lipgloss.Style

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Message bubbles
	UserBubble  lipgloss.Style
	CoachBubble lipgloss.Style
	ErrorBubble lipgloss.Style
	RoleLabel   lipgloss.Style
	Timestamp   lipgloss.Style

	// Input
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusNotice lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Streaming indicator
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// History list
	HistoryList         lipgloss.Style
	HistoryItem         lipgloss.Style
	HistoryItemSelected lipgloss.Style
	HistoryItemMarked   lipgloss.Style
	HistoryTitle        lipgloss.Style
	HistorySnippet      lipgloss.Style
	HistoryMeta         lipgloss.Style

	// Welcome screen
	WelcomeBox   lipgloss.Style
	WelcomeTitle lipgloss.Style
	WelcomeInfo  lipgloss.Style
}

// NewTheme creates a theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 2)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 2).
		MarginLeft(4)
	t.CoachBubble = lipgloss.NewStyle().
		Foreground(CoachBubbleFg).
		Background(CoachBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(CoachBubbleBorder).
		Padding(0, 2).
		MarginRight(4)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		Background(ErrorBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ErrorBubbleBorder).
		Padding(0, 2).
		MarginRight(4)
	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusNotice = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.HistoryList = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HistoryItem = lipgloss.NewStyle().
		Padding(0, 1)
	t.HistoryItemSelected = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(Cyan).
		Background(Overlay)
	t.HistoryItemMarked = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(Rose)
	t.HistoryTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)
	t.HistorySnippet = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.HistoryMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.WelcomeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3).
		Align(lipgloss.Center)
	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.WelcomeInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)
}

// SetSize records the current terminal dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the layout for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width >= wideLayoutMinWidth {
		return LayoutWide
	}
	return LayoutNarrow
}
