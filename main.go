// lifecoach - a life-coach chat for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/lifecoach-tui/internal/cli"
	"github.com/jeranaias/lifecoach-tui/internal/client"
	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/storage"
	"github.com/jeranaias/lifecoach-tui/internal/ui/chat"
	"github.com/jeranaias/lifecoach-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async streaming
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.ParseArgs(os.Args[1:])

	if cmd == cli.CmdTUI {
		runTUI(args)
		return
	}
	os.Exit(cli.Run(cmd, args))
}

// =============================================================================
// TUI STARTUP
// =============================================================================

// runTUI starts the full-screen chat interface with the relay embedded in
// the same process.
func runTUI(args cli.Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args.Model != "" {
		cfg.Upstream.Model = args.Model
	}

	// The TUI owns stdout; route the relay's logs to a file instead.
	redirectLogs()

	storePath, err := storage.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve store path: %v\n", err)
		os.Exit(1)
	}
	store := storage.NewStore(storePath, cfg.Client.SystemPrompt)

	relay, err := cli.StartEmbeddedRelay(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer relay.Close()

	theme := styles.NewTheme()
	m := appModel{
		chat:     chat.New(theme, store, newMarkdownRenderer()),
		consumer: client.New(relay.URL),
		streams:  newStreamManager(),
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running lifecoach: %v\n", err)
		os.Exit(1)
	}
}

// redirectLogs sends the standard logger to ~/.lifecoach/lifecoach.log so
// relay output never corrupts the alternate screen.
func redirectLogs() {
	dir, err := config.Dir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.SetOutput(os.Stderr)
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "lifecoach.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(f)
}

// newMarkdownRenderer builds the glamour renderer injected into the chat
// view. Returns nil on failure; the view falls back to plain text.
func newMarkdownRenderer() chat.RenderFunc {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		return nil
	}
	return func(content string) string {
		rendered, err := renderer.Render(content)
		if err != nil {
			return content
		}
		return rendered
	}
}

// =============================================================================
// STREAM MANAGER
// =============================================================================

// streamManager tracks the cancel function of each in-flight stream. The
// network goroutines and the update loop both touch it.
type streamManager struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newStreamManager() *streamManager {
	return &streamManager{cancels: make(map[string]context.CancelFunc)}
}

func (sm *streamManager) add(conversationID string, cancel context.CancelFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancels[conversationID] = cancel
}

func (sm *streamManager) cancel(conversationID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if cancel, ok := sm.cancels[conversationID]; ok {
		cancel()
		delete(sm.cancels, conversationID)
	}
}

func (sm *streamManager) remove(conversationID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.cancels, conversationID)
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// appModel wraps the chat view and owns the network side of streaming: it
// intercepts stream requests from the view, runs the relay consumer in a
// goroutine, and feeds tokens back through the program.
type appModel struct {
	chat     chat.Model
	consumer *client.Consumer
	streams  *streamManager
}

func (m appModel) Init() tea.Cmd {
	return m.chat.Init()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chat.StreamRequestMsg:
		m.startStream(msg)
		return m, nil

	case chat.CancelStreamMsg:
		m.streams.cancel(msg.ConversationID)
		return m, nil
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

func (m appModel) View() string {
	return m.chat.View()
}

// startStream opens one relay stream in the background and translates its
// callbacks into chat messages.
func (m appModel) startStream(req chat.StreamRequestMsg) {
	ctx, cancel := context.WithCancel(context.Background())
	m.streams.add(req.ConversationID, cancel)

	go func() {
		defer cancel()
		defer m.streams.remove(req.ConversationID)

		send := func(msg tea.Msg) {
			programMu.Lock()
			p := programRef
			programMu.Unlock()
			if p != nil {
				p.Send(msg)
			}
		}

		isFirst := true
		err := m.consumer.Chat(ctx, req.Turns,
			func(delta string) {
				send(chat.StreamTokenMsg{
					ConversationID: req.ConversationID,
					Token:          delta,
					IsFirst:        isFirst,
				})
				isFirst = false
			},
			func() {})

		if err != nil {
			message := err.Error()
			if ctx.Err() == context.Canceled {
				message = "Reply cancelled"
			}
			send(chat.StreamErrorMsg{
				ConversationID: req.ConversationID,
				Message:        message,
			})
			return
		}
		send(chat.StreamCompleteMsg{ConversationID: req.ConversationID})
	}()
}
