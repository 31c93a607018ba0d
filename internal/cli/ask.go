// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for the lifecoach CLI.
//
// Handles "lifecoach ask", which sends one question through the relay and
// streams the coach's reply to stdout.
//
// Examples:
//   lifecoach ask "I feel stuck at work"
//   lifecoach ask --plain "Give me a journaling prompt"
//   echo "How do I say no more often?" | lifecoach ask
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/lifecoach-tui/internal/client"
	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for CLI output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Plain text fallback when the renderer cannot initialize.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, returning the
// original content if rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand handles the "ask" command: one question, one reply.
func HandleAskCommand(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.Model != "" {
		cfg.Upstream.Model = args.Model
	}

	question := strings.TrimSpace(args.Query)
	if question == "" {
		question = readStdinQuestion(args.Quiet)
	}
	if question == "" {
		return fmt.Errorf("no question provided. Usage: lifecoach ask \"your question\"")
	}

	if !args.Quiet && !cfg.Upstream.HasAPIKey() {
		fmt.Fprintf(os.Stderr, "%s no API key configured; set API_KEY in the environment or .env\n",
			warningStyle.Render("[!]"))
	}

	relay, err := StartEmbeddedRelay(cfg)
	if err != nil {
		return err
	}
	defer relay.Close()

	consumer := client.New(relay.URL)

	turns := []*model.Turn{
		model.NewSystemTurn(cfg.Client.SystemPrompt),
		model.NewUserTurn(question),
	}

	useMarkdown := IsStdoutTTY() && !args.Plain

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout())
	defer cancel()

	var reply strings.Builder
	err = consumer.Chat(ctx, turns,
		func(delta string) {
			reply.WriteString(delta)
			if !useMarkdown {
				fmt.Print(delta)
			}
		},
		func() {})
	if err != nil {
		return err
	}

	if reply.Len() == 0 {
		return client.ErrEmptyReply
	}

	if useMarkdown {
		fmt.Print(renderMarkdown(reply.String()))
	}
	fmt.Println()
	return nil
}

// readStdinQuestion reads a piped question from stdin. Returns "" when
// stdin is an interactive terminal.
func readStdinQuestion(quiet bool) string {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil || len(data) == 0 {
		return ""
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "%s Read question from stdin (%d bytes)\n",
			infoStyle.Render("[+]"), len(data))
	}
	return strings.TrimSpace(string(data))
}
