// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations to a single JSON file slot.
//
// The on-disk format is the bare map of conversation id to conversation;
// the active id is not persisted — it is recomputed on load as the
// greatest id, which is the most recent because ids are millisecond
// timestamps. A structurally incompatible file is treated as corrupt and
// discarded wholesale.
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jeranaias/lifecoach-tui/internal/model"
	"github.com/jeranaias/lifecoach-tui/internal/util"
)

const (
	storeFileName = "chats.json"
	storeDirName  = ".lifecoach"

	filePerm = 0600
	dirPerm  = 0700
)

// Store owns the id-to-conversation map and the active pointer. It is a
// plain object handed to the UI controller at construction; it is not
// safe for concurrent use and expects a single owning goroutine.
type Store struct {
	path          string
	systemPrompt  string
	conversations map[string]*model.Conversation
	activeID      string
}

// DefaultPath returns the standard location of the chats file,
// ~/.lifecoach/chats.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, storeDirName, storeFileName), nil
}

// NewStore loads the store from path, falling back to a single default
// conversation when the file is missing or corrupt. The returned store is
// never empty and always has an active conversation.
func NewStore(path, systemPrompt string) *Store {
	s := &Store{
		path:          path,
		systemPrompt:  systemPrompt,
		conversations: make(map[string]*model.Conversation),
	}
	s.load()
	return s
}

// load reads the persisted slot. Any failure mode — missing file,
// malformed JSON, invariant-violating records — resolves to the
// single-default-conversation state.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("STORE_LOAD | error=%v", err)
		}
		s.createDefault()
		return
	}

	var loaded map[string]*model.Conversation
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("STORE_LOAD | corrupt chats file, starting fresh | error=%v", err)
		s.createDefault()
		return
	}

	// Structural validation: one bad record condemns the whole slot.
	// There is no schema versioning to migrate through.
	for id, conv := range loaded {
		if conv == nil || conv.ID != id || !conv.Valid() {
			log.Printf("STORE_LOAD | corrupt conversation %q, starting fresh", id)
			s.createDefault()
			return
		}
	}

	if len(loaded) == 0 {
		s.createDefault()
		return
	}

	s.conversations = loaded
	s.activeID = s.greatestID()
}

// createDefault resets to exactly one fresh conversation and makes it
// active. The store is never left durably empty.
func (s *Store) createDefault() {
	s.conversations = make(map[string]*model.Conversation)
	conv := model.NewConversation(s.newID(), s.systemPrompt)
	s.conversations[conv.ID] = conv
	s.activeID = conv.ID
	s.persist()
}

// newID returns a fresh millisecond-timestamp id, bumped past any
// collision so rapid creation stays unique and ordering stays monotonic.
func (s *Store) newID() string {
	id := time.Now().UnixMilli()
	for {
		candidate := strconv.FormatInt(id, 10)
		if _, exists := s.conversations[candidate]; !exists {
			return candidate
		}
		id++
	}
}

// greatestID returns the numerically greatest conversation id, the
// deterministic stand-in for "most recent".
func (s *Store) greatestID() string {
	var best string
	for id := range s.conversations {
		if best == "" || idLess(best, id) {
			best = id
		}
	}
	return best
}

// idLess orders ids numerically when both parse, lexically otherwise.
func idLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Save serializes the conversation map to the slot. Streaming turns are
// materialized via Clone so partial content is never lost.
func (s *Store) Save() error {
	snapshot := make(map[string]*model.Conversation, len(s.conversations))
	for id, conv := range s.conversations {
		snapshot[id] = conv.Clone()
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	if err := util.AtomicWriteFile(s.path, data, filePerm, dirPerm); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

// persist saves best-effort: a write failure is logged and the in-memory
// mutation stands.
func (s *Store) persist() {
	if err := s.Save(); err != nil {
		log.Printf("STORE_SAVE | error=%v", err)
	}
}

// Persist exposes the best-effort save for callers that mutate
// conversations directly (turn appends).
func (s *Store) Persist() {
	s.persist()
}

// Create adds a fresh conversation, makes it active, and persists.
func (s *Store) Create() *model.Conversation {
	conv := model.NewConversation(s.newID(), s.systemPrompt)
	s.conversations[conv.ID] = conv
	s.activeID = conv.ID
	s.persist()
	return conv
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (*model.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, &StoreError{Op: "get", ID: id, Err: ErrConversationNotFound}
	}
	return conv, nil
}

// Active returns the active conversation. The invariants guarantee it
// exists.
func (s *Store) Active() *model.Conversation {
	return s.conversations[s.activeID]
}

// ActiveID returns the id of the active conversation.
func (s *Store) ActiveID() string {
	return s.activeID
}

// SetActive switches the active pointer to an existing conversation.
func (s *Store) SetActive(id string) error {
	if _, ok := s.conversations[id]; !ok {
		return &StoreError{Op: "activate", ID: id, Err: ErrConversationNotFound}
	}
	s.activeID = id
	return nil
}

// Delete removes one conversation. Deleting the active conversation
// reassigns the pointer to the greatest remaining id; deleting the last
// conversation recreates a default so the store is never empty. Deleting
// a non-active conversation never moves the pointer.
func (s *Store) Delete(id string) error {
	if _, ok := s.conversations[id]; !ok {
		return &StoreError{Op: "delete", ID: id, Err: ErrConversationNotFound}
	}
	delete(s.conversations, id)

	if len(s.conversations) == 0 {
		// createDefault persists.
		s.createDefault()
		return nil
	}
	if s.activeID == id {
		s.activeID = s.greatestID()
	}
	s.persist()
	return nil
}

// DeleteMany removes a batch of conversations in one mutation, applying
// the same active-reassignment rule once at the end. Unknown ids are
// skipped.
func (s *Store) DeleteMany(ids []string) {
	activeDeleted := false
	for _, id := range ids {
		if _, ok := s.conversations[id]; !ok {
			continue
		}
		delete(s.conversations, id)
		if id == s.activeID {
			activeDeleted = true
		}
	}

	if len(s.conversations) == 0 {
		s.createDefault()
		return
	}
	if activeDeleted {
		s.activeID = s.greatestID()
	}
	s.persist()
}

// Rename sets a conversation's title directly.
func (s *Store) Rename(id, title string) error {
	conv, ok := s.conversations[id]
	if !ok {
		return &StoreError{Op: "rename", ID: id, Err: ErrConversationNotFound}
	}
	conv.Title = title
	s.persist()
	return nil
}

// List returns all conversations sorted most-recent-first by id.
func (s *Store) List() []*model.Conversation {
	list := make([]*model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		list = append(list, conv)
	}
	sort.Slice(list, func(i, j int) bool {
		return idLess(list[j].ID, list[i].ID)
	})
	return list
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	return len(s.conversations)
}
