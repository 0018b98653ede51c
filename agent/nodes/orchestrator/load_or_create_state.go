package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := loadOrCreateState(ctx, store, in.ConversationID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Conversation = st
	return in, nil
}

func loadOrCreateState(
	ctx context.Context,
	store statex.Store,
	conversationID string,
	now time.Time,
) (*statex.ConversationState, error) {
	st, err := store.Load(ctx, conversationID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	return statex.NewConversationState(conversationID, now), nil
}
