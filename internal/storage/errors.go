// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// ErrConversationNotFound indicates the requested conversation id does not
// exist in the store.
var ErrConversationNotFound = errors.New("conversation not found")

// StoreError wraps a store operation failure with its context.
type StoreError struct {
	Op  string // operation: "load", "save", "delete", "rename"
	ID  string // conversation id, when relevant
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is matching against sentinel errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
