package state

import "strings"

// Intent is one of the fixed user goals a conversation can be routed to.
type Intent string

const (
	IntentSummarize  Intent = "SUMMARIZE"
	IntentActionItem Intent = "ACTION_ITEM"
	IntentSchedule   Intent = "SCHEDULE"
	IntentNone       Intent = "NONE"
)

// Intents lists the actionable taxonomy, NONE excluded.
var Intents = []Intent{IntentSummarize, IntentActionItem, IntentSchedule}

// ParseIntent normalizes raw oracle output. Anything outside the taxonomy maps to
// IntentNone with ok=false.
func ParseIntent(raw string) (Intent, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch Intent(normalized) {
	case IntentSummarize, IntentActionItem, IntentSchedule, IntentNone:
		return Intent(normalized), true
	default:
		return IntentNone, false
	}
}

func (i Intent) Actionable() bool {
	switch i {
	case IntentSummarize, IntentActionItem, IntentSchedule:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	return string(i)
}
