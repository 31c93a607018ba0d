// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for lifecoach.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdServe
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Quiet bool   // Suppress informational stderr output
	Plain bool   // Disable markdown rendering even on a TTY
	Model string // Override the configured model

	// Command-specific
	Query string // Joined positional args for ask

	// Raw args after the command word
	Raw []string
}

const usageText = `lifecoach - a life-coach chat for the terminal

It provides:
  - A full-screen chat TUI with conversation history
  - One-shot questions from the command line
  - An HTTP relay that streams model replies as server-sent events

Usage:
  lifecoach                   Start the chat TUI (default)
  lifecoach ask "question"    Ask a single question and exit
  lifecoach chat              Interactive chat in plain terminal mode
  lifecoach serve             Run the HTTP relay on its own
  lifecoach version           Show version information
  lifecoach help              Show this help

Flags:
  -m, --model NAME   Use a specific model (overrides config)
  --plain            Plain text output, no markdown rendering
  -q, --quiet        Suppress informational output

Configuration:
  ~/.lifecoach/config.toml    Settings file (created on first save)
  .env / environment          API_URL, API_KEY, MODEL, REQUEST_TIMEOUT,
                              TEMPERATURE, PORT, RELAY_URL

Examples:
  lifecoach
  lifecoach ask "I feel stuck at work"
  echo "How do I say no more often?" | lifecoach ask
  API_KEY=sk-... lifecoach serve
`

// ParseArgs parses os.Args style arguments into a command and its options.
func ParseArgs(argv []string) (Command, Args) {
	if len(argv) == 0 {
		return CmdTUI, Args{}
	}

	cmd := CmdTUI
	rest := argv
	switch argv[0] {
	case "ask":
		cmd, rest = CmdAsk, argv[1:]
	case "chat":
		cmd, rest = CmdChat, argv[1:]
	case "serve":
		cmd, rest = CmdServe, argv[1:]
	case "version", "--version", "-V":
		return CmdVersion, Args{}
	case "help", "--help", "-h":
		return CmdHelp, Args{}
	}

	parser := NewArgParser(rest)
	args := Args{
		Quiet: parser.BoolFlag("quiet") || parser.BoolFlag("q"),
		Plain: parser.BoolFlag("plain"),
		Model: parser.FlagOrDefault("model", parser.Flag("m")),
		Query: strings.Join(parser.Positional(), " "),
		Raw:   rest,
	}
	return cmd, args
}

// Run dispatches a parsed command and returns a process exit code.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdAsk:
		err = HandleAskCommand(args)
	case CmdChat:
		err = HandleChatCommand(args)
	case CmdServe:
		err = HandleServeCommand(args)
	case CmdVersion:
		printVersion()
	case CmdHelp:
		fmt.Print(usageText)
	default:
		// The TUI is launched from main so the Bubble Tea program owns
		// the terminal; reaching here is a programming error.
		err = fmt.Errorf("unknown command")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel(), err)
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("lifecoach %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
