// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse implements server-sent-events framing: splitting a raw byte
// stream into discrete events, and extracting data payloads from them.
// Both legs of the relay pipeline use it — the server against the upstream
// model API, the client against the relay.
package sse

import "strings"

// Delimiter terminates a complete SSE event.
const Delimiter = "\n\n"

// DataPrefix marks a payload-carrying line inside an event.
const DataPrefix = "data: "

// DoneSentinel is the reserved payload signaling end of stream. It is
// never valid content.
const DoneSentinel = "[DONE]"

// Feed appends chunk to buffer and extracts every complete event. The
// trailing segment after the last delimiter may still be a fragment, so it
// is returned as the new remainder and never emitted. Feed holds no hidden
// state: feeding the same bytes in any chunking yields the same events.
func Feed(buffer, chunk string) (events []string, remainder string) {
	combined := buffer + chunk
	parts := strings.Split(combined, Delimiter)
	remainder = parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		if p != "" {
			events = append(events, p)
		}
	}
	return events, remainder
}

// DataLines returns the trimmed payload of every "data: " line in a raw
// event, in order. Lines without the prefix (comments, event names) carry
// no payload and are skipped.
func DataLines(event string) []string {
	var payloads []string
	for _, line := range strings.Split(event, "\n") {
		if strings.HasPrefix(line, DataPrefix) {
			payloads = append(payloads, strings.TrimSpace(line[len(DataPrefix):]))
		}
	}
	return payloads
}

// IsDone reports whether payload is the termination sentinel.
func IsDone(payload string) bool {
	return payload == DoneSentinel
}

// Splitter carries the remainder between successive reads of one stream.
type Splitter struct {
	buf string
}

// Feed consumes a chunk and returns the complete events it unlocked.
func (s *Splitter) Feed(chunk string) []string {
	events, rest := Feed(s.buf, chunk)
	s.buf = rest
	return events
}

// Remainder returns the unconsumed trailing fragment.
func (s *Splitter) Remainder() string {
	return s.buf
}
