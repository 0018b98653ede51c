// Package interrupt decides whether an utterance answers a pending pause or starts
// a new request.
package interrupt

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

type DecisionKind string

const (
	DecisionNewRequest DecisionKind = "new_request"
	DecisionResume     DecisionKind = "resume"
)

// Decision is the outcome of Resolve. Intent and Partial are set only on resume.
type Decision struct {
	Kind    DecisionKind
	Intent  statex.Intent
	Partial map[string]any

	// Superseded is the pause a NewRequest discards, if any.
	Superseded *statex.PauseRecord
	// CheckFailed is true when the continuation check errored and fell back to NewRequest.
	CheckFailed bool
}

func (d Decision) IsResume() bool {
	return d.Kind == DecisionResume
}

type Controller struct {
	oracle contractx.Oracle
}

func NewController(oracle contractx.Oracle) (*Controller, error) {
	if oracle == nil {
		return nil, errors.New("classification oracle is required")
	}
	return &Controller{oracle: oracle}, nil
}

// Resolve never mutates st and never fails: an oracle error means NewRequest.
func (c *Controller) Resolve(ctx context.Context, st *statex.ConversationState, utterance string) Decision {
	if !st.IsPaused() {
		return Decision{Kind: DecisionNewRequest}
	}
	pause := st.PendingPause

	ok, err := c.oracle.IsContinuation(ctx, pause.Prompt, utterance)
	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", st.ConversationID).
			Str("paused_intent", pause.Intent.String()).
			Msg("continuation check failed, treating utterance as a new request")
		return Decision{Kind: DecisionNewRequest, Superseded: pause, CheckFailed: true}
	}
	if !ok {
		return Decision{Kind: DecisionNewRequest, Superseded: pause}
	}

	return Decision{
		Kind:    DecisionResume,
		Intent:  pause.Intent,
		Partial: MergeContext(pause.PartialContext, utterance),
	}
}

// MergeContext returns a copy of partial with utterance appended to its replies.
func MergeContext(partial map[string]any, utterance string) map[string]any {
	merged := make(map[string]any, len(partial)+1)
	for k, v := range partial {
		merged[k] = v
	}
	replies := contractx.PartialReplies(partial)
	merged[contractx.PartialKeyReplies] = append(replies, utterance)
	return merged
}
