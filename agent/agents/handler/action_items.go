package handler

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

const noActionItems = "No action items found."

type actionItemLister struct {
	runner compose.Runnable[map[string]any, actionItemsLLMOutput]
}

type actionItemsLLMOutput struct {
	ActionItems []string `json:"action_items"`
}

func newActionItemLister(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*actionItemLister, error) {
	runner, err := compileStructuredLLMGraph[actionItemsLLMOutput](ctx, chatModel, systemPrompt, "handler.action_items_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile action items graph: %v", contractx.ErrModelInvoke, err)
	}
	return &actionItemLister{runner: runner}, nil
}

func (a *actionItemLister) Handle(ctx context.Context, hc contractx.HandlerContext) (contractx.Outcome, error) {
	input, err := conversationInput(hc)
	if err != nil {
		return contractx.Outcome{}, err
	}

	out, err := a.runner.Invoke(ctx, input)
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: action items invoke: %v", contractx.ErrModelInvoke, err)
	}
	return contractx.Completed(renderActionItems(out.ActionItems)), nil
}

// renderActionItems formats items as a bullet list, skipping blanks.
func renderActionItems(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "-*•"))
		if item == "" {
			continue
		}
		lines = append(lines, "- "+item)
	}
	if len(lines) == 0 {
		return noActionItems
	}
	return strings.Join(lines, "\n")
}
