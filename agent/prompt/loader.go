package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

var (
	//go:embed template/classify.txt
	classifyRaw string

	//go:embed template/continuation.txt
	continuationRaw string

	//go:embed template/summarize.txt
	summarizeRaw string

	//go:embed template/action_items.txt
	actionItemsRaw string

	//go:embed template/schedule.txt
	scheduleRaw string
)

// PromptSet holds loaded prompt content. Handler prompts are FString templates, so
// literal braces in them are doubled.
type PromptSet struct {
	Classify     string
	Continuation string
	Summarize    string
	ActionItems  string
	Schedule     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classify:     strings.TrimSpace(classifyRaw),
		Continuation: strings.TrimSpace(continuationRaw),
		Summarize:    strings.TrimSpace(summarizeRaw),
		ActionItems:  strings.TrimSpace(actionItemsRaw),
		Schedule:     strings.TrimSpace(scheduleRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, body := range map[string]string{
		"classify":     p.Classify,
		"continuation": p.Continuation,
		"summarize":    p.Summarize,
		"action_items": p.ActionItems,
		"schedule":     p.Schedule,
	} {
		if body == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
