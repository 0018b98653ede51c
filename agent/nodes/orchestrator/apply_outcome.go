package orchestratornode

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

func ApplyOutcome(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	if err := applyOutcome(in.Conversation, in.Intent, in.Handled, in.Outcome, in.Now); err != nil {
		return nil, err
	}
	return in, nil
}

func applyOutcome(
	st *statex.ConversationState,
	intent statex.Intent,
	handled bool,
	outcome contractx.Outcome,
	now time.Time,
) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", contractx.ErrValidation)
	}

	switch {
	case !handled:
		st.LastIntent = statex.IntentNone
		st.ClearPause()
	case outcome.IsCompleted():
		st.RecordResult(intent, outcome.Result)
		st.ClearPause()
	case outcome.IsPaused():
		// Earlier steps cleared any prior pause, so a second one cannot coexist.
		err := st.SetPause(&statex.PauseRecord{
			Intent:         intent,
			Prompt:         outcome.Prompt,
			MissingFields:  outcome.MissingFields,
			PartialContext: outcome.PartialContext,
			CreatedAt:      now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("%w: intent=%s: %w", contractx.ErrHandlerFailure, intent, err)
		}
	default:
		return fmt.Errorf("%w: unknown outcome kind %q", contractx.ErrValidation, outcome.Kind)
	}

	st.Touch(now)
	return nil
}
