package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/tanpawarit/chative-intent-router/agent/interrupt"
)

// ResolveInterrupt decides resume vs new request and clears the pending pause either
// way: tentatively on resume, for good on a new request. Nothing is persisted unless
// the later steps succeed.
func ResolveInterrupt(
	ctx context.Context,
	in *GraphState,
	controller *interrupt.Controller,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	decision := controller.Resolve(ctx, in.Conversation, in.Text)
	in.Decision = decision
	if decision.IsResume() {
		in.Intent = decision.Intent
	}

	if prev := in.Conversation.ClearPause(); prev != nil && !decision.IsResume() {
		log.Debug().
			Str("conversation_id", in.ConversationID).
			Str("paused_intent", prev.Intent.String()).
			Msg("pending pause superseded by a new request")
	}
	return in, nil
}

// RouteAfterResolve skips classification when resuming.
func RouteAfterResolve(ctx context.Context, in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Decision.IsResume() {
		return NodeDispatchHandler, nil
	}
	return NodeClassifyIntent, nil
}
