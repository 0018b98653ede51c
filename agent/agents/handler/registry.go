package handler

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	llmx "github.com/tanpawarit/chative-intent-router/agent/llm"
	promptx "github.com/tanpawarit/chative-intent-router/agent/prompt"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

// Registry maps actionable intents to their handlers. It is read-only after construction.
type Registry map[statex.Intent]contractx.Handler

var _ contractx.Registry = Registry(nil)

func (r Registry) Handler(intent statex.Intent) (contractx.Handler, bool) {
	h, ok := r[intent]
	return h, ok
}

// NewRegistry builds the SUMMARIZE, ACTION_ITEM and SCHEDULE handlers on per-role models.
// A nil sink only logs created events.
func NewRegistry(ctx context.Context, cfg llmx.Config, sink EventSink) (Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	summarizerModelCfg := cfg.OpenRouterFor(contractx.RoleSummarizer)
	summarizerModel, err := summarizerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create summarizer model: %v", contractx.ErrModelInvoke, err)
	}
	actionItemsModelCfg := cfg.OpenRouterFor(contractx.RoleActionItems)
	actionItemsModel, err := actionItemsModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create action items model: %v", contractx.ErrModelInvoke, err)
	}
	schedulerModelCfg := cfg.OpenRouterFor(contractx.RoleScheduler)
	schedulerModel, err := schedulerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create scheduler model: %v", contractx.ErrModelInvoke, err)
	}

	summarize, err := newSummarizer(ctx, summarizerModel, prompts.Summarize)
	if err != nil {
		return nil, err
	}
	actionItems, err := newActionItemLister(ctx, actionItemsModel, prompts.ActionItems)
	if err != nil {
		return nil, err
	}
	schedule, err := newScheduler(ctx, schedulerModel, prompts.Schedule, sink)
	if err != nil {
		return nil, err
	}

	return Registry{
		statex.IntentSummarize:  summarize,
		statex.IntentActionItem: actionItems,
		statex.IntentSchedule:   schedule,
	}, nil
}
