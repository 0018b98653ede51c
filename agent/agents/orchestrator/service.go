package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/tanpawarit/chative-intent-router/agent/interrupt"
	nodex "github.com/tanpawarit/chative-intent-router/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

const defaultMaxHistory = 50

type Config struct {
	// MaxHistory bounds ConversationState.History; 0 uses the default, < 0 keeps everything.
	MaxHistory int
	// HandleTimeout bounds one Handle call including oracle and handler I/O; 0 disables it.
	HandleTimeout time.Duration
}

// Reply is what the transport sends back to the user.
type Reply struct {
	Text   string
	Intent statex.Intent
	Paused bool
}

type Orchestrator struct {
	store       statex.Store
	oracle      contractx.Oracle
	handlers    contractx.Registry
	transcripts contractx.TranscriptSource
	interrupts  *interrupt.Controller

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	locks       *keyLocks

	maxHistory    int
	handleTimeout time.Duration

	now func() time.Time
}

func New(
	store statex.Store,
	oracle contractx.Oracle,
	handlers contractx.Registry,
	transcripts contractx.TranscriptSource,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if oracle == nil {
		return nil, errors.New("classification oracle is required")
	}
	if handlers == nil {
		return nil, errors.New("handler registry is required")
	}
	if transcripts == nil {
		transcripts = noopTranscriptSource{}
	}

	interrupts, err := interrupt.NewController(oracle)
	if err != nil {
		return nil, err
	}

	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = defaultMaxHistory
	}

	o := &Orchestrator{
		store:         store,
		oracle:        oracle,
		handlers:      handlers,
		transcripts:   transcripts,
		interrupts:    interrupts,
		locks:         newKeyLocks(),
		maxHistory:    maxHistory,
		handleTimeout: cfg.HandleTimeout,
		now:           time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle routes one utterance. Calls for the same conversation run one at a time;
// different conversations run in parallel. On a handler or store fault the returned
// Reply carries the generic apology alongside the error and nothing is persisted.
func (o *Orchestrator) Handle(ctx context.Context, conversationID string, utterance string) (Reply, error) {
	key := strings.TrimSpace(conversationID)
	if key == "" {
		return Reply{}, ErrInvalidConversation
	}
	if strings.TrimSpace(utterance) == "" {
		return Reply{}, ErrInvalidMessage
	}

	if o.handleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.handleTimeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	started := time.Now()

	unlock := o.locks.Lock(key)
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID: key,
		Text:           utterance,
	})
	unlock()

	if err != nil {
		if errors.Is(err, ErrInvalidMessage) || errors.Is(err, ErrInvalidConversation) {
			return Reply{}, err
		}
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("conversation_id", key).
			Bool("handler_failure", errors.Is(err, contractx.ErrHandlerFailure)).
			Msg("handle message failed, checkpoint left unchanged")
		return Reply{Text: nodex.FailureReply}, err
	}

	log.Debug().
		Str("request_id", requestID).
		Str("conversation_id", key).
		Str("intent", out.Intent.String()).
		Bool("paused", out.Paused).
		Dur("elapsed", time.Since(started)).
		Msg("handled message")

	return Reply{Text: out.Reply, Intent: out.Intent, Paused: out.Paused}, nil
}

// Reset deletes the checkpoint of a conversation.
func (o *Orchestrator) Reset(ctx context.Context, conversationID string) error {
	key := strings.TrimSpace(conversationID)
	if key == "" {
		return ErrInvalidConversation
	}

	unlock := o.locks.Lock(key)
	defer unlock()
	return o.store.Delete(ctx, key)
}

type noopTranscriptSource struct{}

func (noopTranscriptSource) ReadTranscript(context.Context, string) ([]string, error) {
	return nil, nil
}
