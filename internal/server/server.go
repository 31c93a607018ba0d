// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the relay: it accepts a conversation from the
// client on POST /api/chat, forwards it to the upstream model API as one
// streaming request, and re-emits each content delta as a minimal SSE
// frame `data: {"content": ...}` terminated by `data: [DONE]`.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/jeranaias/lifecoach-tui/internal/config"
	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/upstream"
)

// MaxRequestBodySize bounds an inbound chat request.
const MaxRequestBodySize = 1 << 20 // 1MB

// ChatRequest is the inbound body on /api/chat.
type ChatRequest struct {
	Messages []upstream.Message `json:"messages"`
}

// DeltaFrame is the payload of one relayed SSE frame.
type DeltaFrame struct {
	Content string `json:"content"`
}

// Server is the relay HTTP server.
type Server struct {
	cfg    *config.Config
	client *upstream.Client
	mux    *http.ServeMux
	server *http.Server
}

// New creates a relay server for the given configuration.
func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:    cfg,
		client: upstream.NewClient(cfg.Upstream),
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns the full middleware-wrapped handler. The relay accepts
// any origin, as the original deployment served browsers from anywhere.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(DefaultRateLimiter()),
	)(c.Handler(s.mux))
}

// Start runs the relay until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	if !s.cfg.Upstream.HasAPIKey() {
		log.Printf("WARNING | no API key configured, set API_KEY in the environment or .env; upstream requests will fail authorization")
	}

	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays zero: SSE responses outlive any fixed limit.
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s model=%s", s.cfg.Server.Addr(), s.cfg.Upstream.Model)
	return s.server.ListenAndServe()
}

// Serve runs the relay on an existing listener. Used when the relay is
// embedded in the TUI process on an ephemeral port.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | draining connections")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleChat relays one conversation to the upstream API and streams the
// reply back. Validation failures and pre-stream upstream errors are
// plain JSON; once the SSE headers are sent, failures can only end the
// stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()[:8]

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("CHAT_INVALID | id=%s error=%v", requestID, err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "Messages array is required")
		return
	}
	for i, m := range req.Messages {
		if !model.Role(m.Role).Valid() {
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Message %d has invalid role %q", i, m.Role))
			return
		}
	}

	log.Printf("CHAT_REQUEST | id=%s turns=%d", requestID, len(req.Messages))

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// The configured timeout is the only guard against a stalled
	// upstream; a client disconnect cancels r.Context() and aborts the
	// upstream request with it.
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upstream.Timeout())
	defer cancel()

	headersSent := false
	deltas := 0
	err := s.client.Stream(ctx, req.Messages, func(delta string) {
		if !headersSent {
			writeSSEHeaders(w)
			headersSent = true
		}
		frame, err := json.Marshal(DeltaFrame{Content: delta})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
		deltas++
	})

	if err != nil {
		if !headersSent {
			// Nothing committed yet, fail the whole request.
			status := http.StatusInternalServerError
			msg := "Failed to get AI response"
			if apiErr, ok := err.(*upstream.APIError); ok {
				status = http.StatusBadGateway
				msg = fmt.Sprintf("Upstream error (HTTP %d): %s", apiErr.Status, apiErr.Message)
			}
			log.Printf("CHAT_ERROR | id=%s error=%v", requestID, err)
			s.writeError(w, status, msg)
			return
		}
		// Headers are committed; an abrupt close is all that is left.
		log.Printf("CHAT_STREAM_ABORT | id=%s deltas=%d error=%v", requestID, deltas, err)
		return
	}

	if !headersSent {
		// Upstream completed without a single delta; still a well-formed
		// (empty) stream from the relay's point of view.
		writeSSEHeaders(w)
	}
	fmt.Fprintf(w, "data: %s\n\n", "[DONE]")
	flusher.Flush()
	log.Printf("CHAT_COMPLETE | id=%s deltas=%d", requestID, deltas)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  s.cfg.Upstream.Model,
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response shaped {"error": message}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
