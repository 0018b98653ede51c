package handler

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

type summarizer struct {
	runner compose.Runnable[map[string]any, summaryLLMOutput]
}

type summaryLLMOutput struct {
	Summary string `json:"summary"`
}

func newSummarizer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*summarizer, error) {
	runner, err := compileStructuredLLMGraph[summaryLLMOutput](ctx, chatModel, systemPrompt, "handler.summarize_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summarizer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &summarizer{runner: runner}, nil
}

func (s *summarizer) Handle(ctx context.Context, hc contractx.HandlerContext) (contractx.Outcome, error) {
	input, err := conversationInput(hc)
	if err != nil {
		return contractx.Outcome{}, err
	}

	out, err := s.runner.Invoke(ctx, input)
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: summarizer invoke: %v", contractx.ErrModelInvoke, err)
	}

	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return contractx.Outcome{}, fmt.Errorf("%w: summary is empty", contractx.ErrSchemaViolation)
	}
	return contractx.Completed(summary), nil
}
