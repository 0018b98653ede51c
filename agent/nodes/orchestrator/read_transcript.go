package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// ReadTranscript never fails the request: a transport that cannot supply the
// channel transcript leaves handlers with the checkpointed history only.
func ReadTranscript(
	ctx context.Context,
	in *GraphState,
	transcripts contractx.TranscriptSource,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	lines, err := transcripts.ReadTranscript(ctx, in.ConversationID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", in.ConversationID).
			Msg("transcript unavailable, continuing without it")
		lines = nil
	}
	in.Transcript = lines
	return in, nil
}
