package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

func trimFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// conversationInput is the JSON handed to the summarizer and action item prompts.
func conversationInput(hc contractx.HandlerContext) (map[string]any, error) {
	payload := map[string]any{
		"transcript": nonNil(hc.Transcript),
		"history":    nonNil(hc.History),
		"request":    hc.Utterance,
	}
	return graphInput(payload)
}

func graphInput(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal handler payload: %v", contractx.ErrValidation, err)
	}
	return map[string]any{"input": string(raw)}, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
