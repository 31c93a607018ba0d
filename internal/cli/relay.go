// relay.go - In-process relay for commands that talk to the model.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/server"
)

// EmbeddedRelay is a relay server bound to an ephemeral localhost port.
// The TUI and the CLI chat commands run one inside their own process so
// they work without a separately started `lifecoach serve`.
type EmbeddedRelay struct {
	URL string

	srv *server.Server
}

// StartEmbeddedRelay binds the relay to 127.0.0.1:0 and serves it in the
// background.
func StartEmbeddedRelay(cfg *config.Config) (*EmbeddedRelay, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("cannot bind relay listener: %w", err)
	}

	srv := server.New(cfg)
	go func() {
		// Serve returns http.ErrServerClosed on shutdown; anything else
		// surfaces on the first request instead.
		_ = srv.Serve(ln)
	}()

	return &EmbeddedRelay{
		URL: fmt.Sprintf("http://%s", ln.Addr().String()),
		srv: srv,
	}, nil
}

// Close drains the relay.
func (r *EmbeddedRelay) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = r.srv.Shutdown(ctx)
}
