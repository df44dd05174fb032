// Package session provides the ConversationStore implementations: an
// in-memory store for tests and demos, an embedded SQLite store for
// single-instance deployments and a Redis store for multi-instance
// deployments with bounded retention.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erni-gruppe/building-agents/core"
)

// MemoryStore keeps conversations in a mutex-guarded map. Loads return
// clones so callers can never mutate stored state in place.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*core.Conversation)}
}

// Create implements core.ConversationStore.
func (s *MemoryStore) Create(_ context.Context, conv *core.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}
	s.conversations[conv.ID] = conv.Clone()
	return nil
}

// Load implements core.ConversationStore.
func (s *MemoryStore) Load(_ context.Context, id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, core.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// AppendTurns implements core.ConversationStore.
func (s *MemoryStore) AppendTurns(_ context.Context, id string, turns ...core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return core.ErrConversationNotFound
	}
	conv.Turns = append(conv.Turns, turns...)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateState implements core.ConversationStore.
func (s *MemoryStore) UpdateState(_ context.Context, id string, activeSpecialist string, pc *core.ProjectContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return core.ErrConversationNotFound
	}
	conv.ActiveSpecialist = activeSpecialist
	conv.Context = pc.Clone()
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// Compile-time interface assertion.
var _ core.ConversationStore = (*MemoryStore)(nil)
