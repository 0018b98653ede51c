package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConversationState is the checkpoint kept per conversation key.
// - History: utterances seen so far, oldest first
// - PendingPause: set iff a handler is waiting for clarifying input
type ConversationState struct {
	ConversationID string `json:"conversation_id"`

	History        []string          `json:"history,omitempty"`
	LastIntent     Intent            `json:"last_intent,omitempty"`
	ResultByIntent map[Intent]string `json:"result_by_intent,omitempty"`
	PendingPause   *PauseRecord      `json:"pending_pause,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PauseRecord describes a handler suspended until the user supplies MissingFields.
type PauseRecord struct {
	Intent         Intent         `json:"intent"`
	Prompt         string         `json:"prompt"`
	MissingFields  []string       `json:"missing_fields"`
	PartialContext map[string]any `json:"partial_context,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

var (
	ErrNilState            = errors.New("conversation state is nil")
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrInvalidPause        = errors.New("invalid pause record")
)

func NewConversationState(conversationID string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		ResultByIntent: make(map[Intent]string, len(Intents)),
		UpdatedAt:      now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureResultsMap makes sure s.ResultByIntent is initialized.
func (s *ConversationState) EnsureResultsMap() {
	if s.ResultByIntent == nil {
		s.ResultByIntent = make(map[Intent]string, len(Intents))
	}
}

// IsPaused reports whether the conversation waits for clarifying input.
func (s *ConversationState) IsPaused() bool {
	return s != nil && s.PendingPause != nil
}

// AppendHistory appends an utterance and drops the oldest entries beyond limit.
// A limit <= 0 keeps everything.
func (s *ConversationState) AppendHistory(utterance string, limit int) {
	s.History = append(s.History, utterance)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]string(nil), s.History[len(s.History)-limit:]...)
	}
}

// SetPause installs a new pause. The previous one must have been cleared first.
func (s *ConversationState) SetPause(p *PauseRecord) error {
	if s == nil {
		return ErrNilState
	}
	if s.PendingPause != nil {
		return fmt.Errorf("%w: conversation %s already has a pending pause", ErrInvalidPause, s.ConversationID)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.PendingPause = p
	return nil
}

// ClearPause drops the pending pause, returning it.
func (s *ConversationState) ClearPause() *PauseRecord {
	if s == nil {
		return nil
	}
	prev := s.PendingPause
	s.PendingPause = nil
	return prev
}

// RecordResult stores the latest completion of intent.
func (s *ConversationState) RecordResult(intent Intent, result string) {
	s.EnsureResultsMap()
	s.LastIntent = intent
	s.ResultByIntent[intent] = result
}

func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if strings.TrimSpace(s.ConversationID) == "" {
		return ErrInvalidConversation
	}
	if s.LastIntent != "" {
		if _, ok := ParseIntent(string(s.LastIntent)); !ok {
			return fmt.Errorf("invalid last_intent=%q", s.LastIntent)
		}
	}
	if s.PendingPause != nil {
		if err := s.PendingPause.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy that shares nothing with s.
func (s *ConversationState) Clone() (*ConversationState, error) {
	if s == nil {
		return nil, ErrNilState
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation state: %w", err)
	}
	var out ConversationState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	out.EnsureResultsMap()
	return &out, nil
}

func (p *PauseRecord) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: pause is nil", ErrInvalidPause)
	}
	if !p.Intent.Actionable() {
		return fmt.Errorf("%w: intent=%q cannot pause", ErrInvalidPause, p.Intent)
	}
	if len(p.MissingFields) == 0 {
		return fmt.Errorf("%w: missing_fields is empty", ErrInvalidPause)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidPause)
	}
	return nil
}
