// styles.go - Terminal styling for CLI output.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	coachLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Rose)
)

// errorLabel renders the stderr error prefix, plain when colors are off.
func errorLabel() string {
	if !ColorEnabled() {
		return "[Error]"
	}
	return errorStyle.Render("[Error]")
}
