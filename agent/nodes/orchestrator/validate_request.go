package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/tanpawarit/chative-intent-router/agent/interrupt"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrInvalidConversation = statex.ErrInvalidConversation
)

// Node names of the handle_message graph.
const (
	NodeValidateRequest      = "validate_request"
	NodeLoadOrCreateState    = "load_or_create_state"
	NodeReadTranscript       = "read_transcript"
	NodeResolveInterrupt     = "resolve_interrupt"
	NodeClassifyIntent       = "classify_intent"
	NodeDispatchHandler      = "dispatch_handler"
	NodeApplyOutcome         = "apply_outcome"
	NodeValidateAndSaveState = "validate_and_save_state"
	NodeFinalizeReply        = "finalize_reply"
)

type GraphInput struct {
	ConversationID string
	Text           string
}

type GraphOutput struct {
	Reply  string
	Intent statex.Intent
	Paused bool
}

type GraphState struct {
	ConversationID string
	Text           string
	Now            time.Time

	Conversation *statex.ConversationState
	Transcript   []string
	Decision     interrupt.Decision
	Intent       statex.Intent

	// Handled is false when no handler ran (NONE intent).
	Handled bool
	Outcome contractx.Outcome
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID: conversationID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
