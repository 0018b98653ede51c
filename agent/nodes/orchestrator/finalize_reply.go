package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

const (
	FallbackReply = "I am an assistant for summarizing conversations and listing actionable items. " +
		"I do not have the capability to understand your query. Please try again with a valid query."
	FailureReply = "Sorry, an error occurred while handling your request. Please try again."
)

var completionHeaders = map[statex.Intent]string{
	statex.IntentSummarize:  "Here's the summary:",
	statex.IntentActionItem: "Here are the action items:",
	statex.IntentSchedule:   "Calendar event created successfully!",
}

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	switch {
	case !in.Handled:
		return GraphOutput{Reply: FallbackReply, Intent: statex.IntentNone}, nil
	case in.Outcome.IsPaused():
		return GraphOutput{Reply: in.Outcome.Prompt, Intent: in.Intent, Paused: true}, nil
	default:
		return GraphOutput{Reply: RenderCompletion(in.Intent, in.Outcome.Result), Intent: in.Intent}, nil
	}
}

// RenderCompletion fills the per-intent template; an empty result renders the header alone.
func RenderCompletion(intent statex.Intent, result string) string {
	header, ok := completionHeaders[intent]
	if !ok {
		return FallbackReply
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return header
	}
	return header + "\n\n" + result
}
