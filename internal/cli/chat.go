// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain-terminal interactive chat for the lifecoach CLI.
//
// Handles "lifecoach chat": a readline-style REPL for terminals where the
// full TUI is unwanted (ssh sessions, minimal terminals, scripting around
// a conversation). Conversations share the same store as the TUI.
//
// Slash commands:
//   /new       Start a new conversation
//   /list      List saved conversations
//   /clear     Clear the current conversation
//   /help      Show commands
//   /quit      Exit
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/lifecoach-tui/internal/client"
	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatInput wraps liner with persistent input history.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &chatInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *chatInput) read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

func (in *chatInput) close() {
	if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		in.line.WriteHistory(f)
		f.Close()
	}
	in.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive plain-terminal chat loop.
func HandleChatCommand(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("chat needs an interactive terminal; use `lifecoach ask` for piped input")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.Model != "" {
		cfg.Upstream.Model = args.Model
	}

	storePath, err := storage.DefaultPath()
	if err != nil {
		return fmt.Errorf("cannot resolve store path: %w", err)
	}
	store := storage.NewStore(storePath, cfg.Client.SystemPrompt)

	relay, err := StartEmbeddedRelay(cfg)
	if err != nil {
		return err
	}
	defer relay.Close()
	consumer := client.New(relay.URL)

	input := newChatInput()
	defer input.close()

	if !args.Quiet {
		fmt.Printf("%s model=%s\n", infoStyle.Render("lifecoach chat"), cfg.Upstream.Model)
		fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
		if !cfg.Upstream.HasAPIKey() {
			fmt.Fprintf(os.Stderr, "%s no API key configured; replies will fail authorization\n",
				warningStyle.Render("[!]"))
		}
		fmt.Println()
	}

	for {
		text, err := input.read(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C or Ctrl+D ends the session.
			fmt.Println()
			store.Persist()
			return nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if done := handleSlashCommand(text, store); done {
				store.Persist()
				return nil
			}
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			store.Persist()
			return nil
		}

		sendREPLMessage(cfg, consumer, store, text, args)
	}
}

// handleSlashCommand executes one slash command; returns true to exit.
func handleSlashCommand(text string, store *storage.Store) bool {
	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/quit", "/exit":
		return true
	case "/new":
		conv := store.Create()
		_ = store.SetActive(conv.ID)
		fmt.Println(infoStyle.Render("Started a new conversation."))
	case "/clear":
		store.Active().Reset()
		store.Persist()
		fmt.Println(infoStyle.Render("Conversation cleared."))
	case "/list":
		for _, conv := range store.List() {
			marker := "  "
			if conv.ID == store.ActiveID() {
				marker = "* "
			}
			fmt.Printf("%s%s  %s\n", marker, conv.Title,
				infoStyle.Render(conv.LastActivity.Format("Jan 2 15:04")))
		}
	case "/help":
		fmt.Println(infoStyle.Render("/new  /list  /clear  /quit"))
	default:
		fmt.Fprintf(os.Stderr, "%s unknown command %s\n", errorLabel(), text)
	}
	return false
}

// sendREPLMessage runs one send-and-stream round trip.
func sendREPLMessage(cfg *config.Config, consumer *client.Consumer, store *storage.Store, text string, args Args) {
	conv := store.Active()
	conv.AddUserTurn(text)

	turns := make([]*model.Turn, len(conv.Turns))
	copy(turns, conv.Turns)
	turn := conv.BeginAssistantTurn()

	fmt.Println()
	fmt.Println(coachLabelStyle.Render("coach"))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout())
	defer cancel()

	err := consumer.Chat(ctx, turns,
		func(delta string) {
			turn.AppendDelta(delta)
			fmt.Print(delta)
		},
		func() {})

	fmt.Println()
	fmt.Println()

	switch {
	case err != nil && turn.IsEmpty():
		conv.DropLastTurn()
		fmt.Fprintf(os.Stderr, "%s %v\n\n", errorLabel(), err)
	case err != nil:
		// Keep the partial reply; the transcript stays useful.
		turn.Finalize()
		fmt.Fprintf(os.Stderr, "%s reply interrupted: %v\n\n", warningStyle.Render("[!]"), err)
	case turn.IsEmpty():
		conv.DropLastTurn()
		fmt.Fprintf(os.Stderr, "%s %v\n\n", errorLabel(), client.ErrEmptyReply)
	default:
		turn.Finalize()
	}
	store.Persist()
}
