package contract

import (
	"strings"

	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

type Role string

const (
	RoleClassifier  Role = "classifier"
	RoleSummarizer  Role = "summarizer"
	RoleActionItems Role = "action_items"
	RoleScheduler   Role = "scheduler"
)

// Keys the orchestrator reserves inside PauseRecord.PartialContext.
const (
	PartialKeyReplies = "replies"
)

// HandlerContext is everything a handler sees for one step.
type HandlerContext struct {
	ConversationID string         `json:"conversation_id"`
	Intent         statex.Intent  `json:"intent"`
	History        []string       `json:"history,omitempty"`
	Utterance      string         `json:"utterance"`
	Transcript     []string       `json:"transcript,omitempty"`
	Partial        map[string]any `json:"partial,omitempty"` // nil unless resuming
}

// Resumed reports whether the step continues a paused flow.
func (hc HandlerContext) Resumed() bool {
	return hc.Partial != nil
}

// Replies returns the answers merged into the partial context, oldest first.
func (hc HandlerContext) Replies() []string {
	return PartialReplies(hc.Partial)
}

func PartialReplies(partial map[string]any) []string {
	raw, ok := partial[PartialKeyReplies]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomePaused    OutcomeKind = "paused"
)

// Outcome is the tagged result of a handler step.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Completed
	Result string `json:"result,omitempty"`

	// Paused
	Prompt         string         `json:"prompt,omitempty"`
	MissingFields  []string       `json:"missing_fields,omitempty"`
	PartialContext map[string]any `json:"partial_context,omitempty"`
}

func Completed(result string) Outcome {
	return Outcome{Kind: OutcomeCompleted, Result: result}
}

func Paused(prompt string, missingFields []string, partialContext map[string]any) Outcome {
	return Outcome{
		Kind:           OutcomePaused,
		Prompt:         strings.TrimSpace(prompt),
		MissingFields:  append([]string(nil), missingFields...),
		PartialContext: partialContext,
	}
}

func (o Outcome) IsPaused() bool {
	return o.Kind == OutcomePaused
}

func (o Outcome) IsCompleted() bool {
	return o.Kind == OutcomeCompleted
}
