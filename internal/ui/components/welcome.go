// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
)

// WelcomeText is the canned greeting shown in a conversation before its
// first user turn. It is display-only and never stored as a turn.
const WelcomeText = "Hi, I'm your life coach. What's on your mind today?"

// RenderWelcome draws the greeting banner for a fresh conversation.
func RenderWelcome(theme *styles.Theme, width int) string {
	var b strings.Builder
	b.WriteString(theme.WelcomeTitle.Render("Life Coach"))
	b.WriteString("\n\n")
	b.WriteString(theme.WelcomeInfo.Render(WelcomeText))
	b.WriteString("\n\n")
	b.WriteString(theme.WelcomeInfo.Render("Type below and press Enter to start."))

	box := theme.WelcomeBox
	if width > 8 {
		box = box.Width(width - 4)
	}
	return box.Render(b.String())
}
