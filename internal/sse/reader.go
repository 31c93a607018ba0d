// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bufio"
	"bytes"
	"io"
)

// Reader parses SSE events line-by-line from an io.Reader. It is the
// push-driven counterpart of Splitter: use Reader when a blocking stream
// is available, Splitter when chunks arrive by hand.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for event-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next blocks until one complete event has been read and returns its data
// payloads in order. Events without any data line are skipped. Returns
// io.EOF when the stream ends; a final unterminated event before EOF is
// returned first if it carries data.
func (r *Reader) Next() ([]string, error) {
	var payloads []string

	for {
		line, err := r.r.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) == 0 {
				// Blank line ends the event.
				if len(payloads) > 0 {
					return payloads, nil
				}
				continue
			}
			if bytes.HasPrefix(line, []byte(DataPrefix)) {
				payload := bytes.TrimSpace(line[len(DataPrefix):])
				payloads = append(payloads, string(payload))
			}
		}
		if err != nil {
			if err == io.EOF && len(payloads) > 0 {
				return payloads, nil
			}
			return nil, err
		}
	}
}
