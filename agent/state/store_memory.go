package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps checkpoints in process memory. States are copied on the way in
// and out so callers never share a mutable value with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte, 16)}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}

	s.mu.RLock()
	raw, ok := s.states[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeState(raw)
}

func (s *MemoryStore) Save(ctx context.Context, st *ConversationState) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.states[st.ConversationID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}

	s.mu.Lock()
	delete(s.states, conversationID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
