package contract

import (
	"context"

	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

// Oracle is the external classification service. Both calls may fail; callers
// apply the fail-safe defaults (NONE, not a continuation).
type Oracle interface {
	Classify(ctx context.Context, utterances []string) (statex.Intent, error)
	IsContinuation(ctx context.Context, pendingPrompt string, utterance string) (bool, error)
}

// Handler performs one action. A Paused outcome is a normal result, not an error.
type Handler interface {
	Handle(ctx context.Context, hc HandlerContext) (Outcome, error)
}

type HandlerFunc func(ctx context.Context, hc HandlerContext) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, hc HandlerContext) (Outcome, error) {
	return f(ctx, hc)
}

type Registry interface {
	Handler(intent statex.Intent) (Handler, bool)
}

// TranscriptSource supplies the surrounding channel transcript owned by the transport.
type TranscriptSource interface {
	ReadTranscript(ctx context.Context, conversationID string) ([]string, error)
}
