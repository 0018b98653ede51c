package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	oracle contractx.Oracle,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	in.Intent = classify(ctx, oracle, in.ConversationID, in.Conversation.History, in.Text)
	return in, nil
}

// classify maps every oracle failure and out-of-taxonomy answer to NONE.
func classify(
	ctx context.Context,
	oracle contractx.Oracle,
	conversationID string,
	history []string,
	text string,
) statex.Intent {
	utterances := make([]string, 0, len(history)+1)
	utterances = append(utterances, history...)
	utterances = append(utterances, text)

	raw, err := oracle.Classify(ctx, utterances)
	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("intent classification failed, falling back to NONE")
		return statex.IntentNone
	}

	intent, ok := statex.ParseIntent(string(raw))
	if !ok {
		log.Warn().
			Str("conversation_id", conversationID).
			Str("raw_intent", string(raw)).
			Msg("oracle answered outside the intent taxonomy, falling back to NONE")
	}
	return intent
}
