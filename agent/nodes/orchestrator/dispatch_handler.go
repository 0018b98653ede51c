package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

func DispatchHandler(
	ctx context.Context,
	in *GraphState,
	handlers contractx.Registry,
	maxHistory int,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	hc := contractx.HandlerContext{
		ConversationID: in.ConversationID,
		Intent:         in.Intent,
		History:        append([]string(nil), in.Conversation.History...),
		Utterance:      in.Text,
		Transcript:     in.Transcript,
		Partial:        in.Decision.Partial,
	}
	in.Conversation.AppendHistory(in.Text, maxHistory)

	if !in.Intent.Actionable() {
		in.Intent = statex.IntentNone
		in.Handled = false
		return in, nil
	}

	outcome, err := dispatchToHandler(ctx, hc, handlers)
	if err != nil {
		return nil, err
	}
	in.Outcome = outcome
	in.Handled = true
	return in, nil
}

func dispatchToHandler(
	ctx context.Context,
	hc contractx.HandlerContext,
	handlers contractx.Registry,
) (contractx.Outcome, error) {
	handler, ok := handlers.Handler(hc.Intent)
	if !ok || handler == nil {
		return contractx.Outcome{}, fmt.Errorf("%w: %w: intent=%s", contractx.ErrHandlerFailure, contractx.ErrHandlerNotFound, hc.Intent)
	}

	outcome, err := handler.Handle(ctx, hc)
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: intent=%s: %w", contractx.ErrHandlerFailure, hc.Intent, err)
	}

	return repairOutcome(hc, outcome)
}

// repairOutcome enforces the pause invariants on whatever the handler returned.
// A pause without missing fields could never be resolved, so it completes empty.
func repairOutcome(hc contractx.HandlerContext, outcome contractx.Outcome) (contractx.Outcome, error) {
	switch outcome.Kind {
	case contractx.OutcomeCompleted:
		return outcome, nil
	case contractx.OutcomePaused:
		if len(outcome.MissingFields) == 0 {
			log.Warn().
				Str("conversation_id", hc.ConversationID).
				Str("intent", hc.Intent.String()).
				Msg("handler paused without missing fields, treating as completed")
			return contractx.Completed(""), nil
		}
		if strings.TrimSpace(outcome.Prompt) == "" {
			outcome.Prompt = MissingFieldsPrompt(outcome.MissingFields)
		}
		return outcome, nil
	default:
		return contractx.Outcome{}, fmt.Errorf("%w: intent=%s: %w: unknown outcome kind %q",
			contractx.ErrHandlerFailure, hc.Intent, contractx.ErrSchemaViolation, outcome.Kind)
	}
}

// MissingFieldsPrompt is the default clarification prompt for missing slots.
func MissingFieldsPrompt(missing []string) string {
	return "Please also include: " + strings.Join(missing, ", ")
}
