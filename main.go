package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	classifierx "github.com/tanpawarit/chative-intent-router/agent/agents/classifier"
	handlerx "github.com/tanpawarit/chative-intent-router/agent/agents/handler"
	orchestratorx "github.com/tanpawarit/chative-intent-router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	llmx "github.com/tanpawarit/chative-intent-router/agent/llm"
	promptx "github.com/tanpawarit/chative-intent-router/agent/prompt"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
	configx "github.com/tanpawarit/chative-intent-router/pkg/config"
	_ "github.com/tanpawarit/chative-intent-router/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/chative-intent-router/pkg/qstash"
)

type AppConfig struct {
	StoreDriver    string        `envconfig:"STORE_DRIVER" default:"memory"`
	ConversationID string        `envconfig:"CONVERSATION_ID" default:"console"`
	MaxHistory     int           `envconfig:"MAX_HISTORY" default:"50"`
	HandleTimeout  time.Duration `envconfig:"HANDLE_TIMEOUT" default:"60s"`
	CalendarSink   string        `envconfig:"CALENDAR_SINK" default:"log"`
}

const resetCommand = "/reset"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	store, closeStore, err := openStore(ctx, appCfg.StoreDriver)
	if err != nil {
		log.Fatal().Err(err).Str("driver", appCfg.StoreDriver).Msg("open checkpoint store")
	}
	defer closeStore()

	oracle, err := classifierx.New(llmCfg.OpenRouterFor(contractx.RoleClassifier), promptx.LoadPromptSet())
	if err != nil {
		log.Fatal().Err(err).Msg("create classification oracle")
	}

	registry, err := handlerx.NewRegistry(ctx, *llmCfg, newCalendarSink(appCfg.CalendarSink))
	if err != nil {
		log.Fatal().Err(err).Msg("create handler registry")
	}

	orchestrator, err := orchestratorx.New(store, oracle, registry, nil, orchestratorx.Config{
		MaxHistory:    appCfg.MaxHistory,
		HandleTimeout: appCfg.HandleTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	log.Info().
		Str("driver", appCfg.StoreDriver).
		Str("conversation_id", appCfg.ConversationID).
		Msg("console ready, type a message or /reset")

	if err := runConsole(ctx, orchestrator, appCfg.ConversationID, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
}

func runConsole(ctx context.Context, o *orchestratorx.Orchestrator, conversationID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == resetCommand:
			if err := o.Reset(ctx, conversationID); err != nil {
				log.Error().Err(err).Msg("reset conversation")
				continue
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		reply, err := o.Handle(ctx, conversationID, line)
		if err != nil && reply.Text == "" {
			log.Warn().Err(err).Msg("message rejected")
			continue
		}
		fmt.Fprintln(out, reply.Text)
	}
}

func openStore(ctx context.Context, driver string) (statex.Store, func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return statex.NewMemoryStore(), noop, nil
	case "bolt":
		cfg, err := configx.New[statex.BoltConfig]("BOLT")
		if err != nil {
			return nil, noop, err
		}
		store, err := statex.NewBoltStore(*cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		cfg, err := configx.New[statex.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, noop, err
		}
		store, err := statex.OpenPostgresStore(ctx, *cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	case "upstash":
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, noop, err
		}
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		return nil, noop, errors.New("unknown store driver " + driver)
	}
}

func newCalendarSink(kind string) handlerx.EventSink {
	if !strings.EqualFold(strings.TrimSpace(kind), "qstash") {
		return handlerx.LogSink{}
	}

	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	if strings.TrimSpace(qstashCfg.Destination) == "" {
		log.Fatal().Msg("QSTASH_DESTINATION is required for the qstash calendar sink")
	}
	return handlerx.NewQStashSink(qstashx.MustNew(*qstashCfg), qstashCfg.Destination)
}
