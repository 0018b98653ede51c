package interrupt

import (
	"context"
	"errors"
	"testing"
	"time"

	statex "github.com/tanpawarit/chative-intent-router/agent/state"
)

type fakeOracle struct {
	continuation bool
	err          error
	calls        int
	lastPrompt   string
	lastText     string
}

func (f *fakeOracle) Classify(ctx context.Context, utterances []string) (statex.Intent, error) {
	return statex.IntentNone, nil
}

func (f *fakeOracle) IsContinuation(ctx context.Context, pendingPrompt string, utterance string) (bool, error) {
	f.calls++
	f.lastPrompt = pendingPrompt
	f.lastText = utterance
	return f.continuation, f.err
}

func pausedState(t *testing.T) *statex.ConversationState {
	t.Helper()
	st := statex.NewConversationState("c1", time.Now())
	if err := st.SetPause(&statex.PauseRecord{
		Intent:         statex.IntentSchedule,
		Prompt:         "Please also include: date, time",
		MissingFields:  []string{"date", "time"},
		PartialContext: map[string]any{"event_title": "Meeting with Bob"},
	}); err != nil {
		t.Fatalf("SetPause() error = %v", err)
	}
	return st
}

func TestResolveWithoutPauseIsNewRequest(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{continuation: true}
	c, err := NewController(oracle)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	d := c.Resolve(context.Background(), statex.NewConversationState("c1", time.Now()), "hello")
	if d.IsResume() {
		t.Fatal("expected NewRequest without a pending pause")
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle must not be consulted without a pause, got %d calls", oracle.calls)
	}
}

func TestResolveContinuationMergesUtterance(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{continuation: true}
	c, _ := NewController(oracle)
	st := pausedState(t)

	d := c.Resolve(context.Background(), st, "tomorrow at 3pm")
	if !d.IsResume() {
		t.Fatalf("expected resume, got %s", d.Kind)
	}
	if d.Intent != statex.IntentSchedule {
		t.Fatalf("unexpected intent: %s", d.Intent)
	}
	if oracle.lastPrompt != "Please also include: date, time" || oracle.lastText != "tomorrow at 3pm" {
		t.Fatalf("unexpected oracle args: %q / %q", oracle.lastPrompt, oracle.lastText)
	}
	if d.Partial["event_title"] != "Meeting with Bob" {
		t.Fatalf("partial context lost: %#v", d.Partial)
	}
	replies, _ := d.Partial["replies"].([]string)
	if len(replies) != 1 || replies[0] != "tomorrow at 3pm" {
		t.Fatalf("unexpected replies: %#v", d.Partial["replies"])
	}
	if !st.IsPaused() {
		t.Fatal("Resolve must not mutate state")
	}
	if _, ok := st.PendingPause.PartialContext["replies"]; ok {
		t.Fatal("Resolve must not mutate the stored partial context")
	}
}

func TestResolveUnrelatedSupersedesPause(t *testing.T) {
	t.Parallel()

	c, _ := NewController(&fakeOracle{continuation: false})
	st := pausedState(t)

	d := c.Resolve(context.Background(), st, "actually, summarize the last meeting")
	if d.IsResume() {
		t.Fatal("expected NewRequest")
	}
	if d.Superseded == nil || d.Superseded.Intent != statex.IntentSchedule {
		t.Fatalf("expected superseded schedule pause, got %#v", d.Superseded)
	}
	if d.Partial != nil {
		t.Fatalf("new request must not carry partial context: %#v", d.Partial)
	}
	if d.CheckFailed {
		t.Fatal("CheckFailed must be false on a clean verdict")
	}
}

func TestResolveOracleFailureFallsBackToNewRequest(t *testing.T) {
	t.Parallel()

	c, _ := NewController(&fakeOracle{continuation: true, err: errors.New("timeout")})

	d := c.Resolve(context.Background(), pausedState(t), "tomorrow")
	if d.IsResume() {
		t.Fatal("oracle failure must never resume")
	}
	if !d.CheckFailed {
		t.Fatal("expected CheckFailed")
	}
}

func TestMergeContextAccumulatesReplies(t *testing.T) {
	t.Parallel()

	first := MergeContext(map[string]any{"date": "2026-01-02"}, "at 3pm")
	second := MergeContext(first, "with Bob")

	replies, _ := second["replies"].([]string)
	if len(replies) != 2 || replies[0] != "at 3pm" || replies[1] != "with Bob" {
		t.Fatalf("unexpected replies: %#v", second["replies"])
	}
	if firstReplies, _ := first["replies"].([]string); len(firstReplies) != 1 {
		t.Fatalf("merge mutated its input: %#v", first["replies"])
	}
	if MergeContext(nil, "x")["replies"] == nil {
		t.Fatal("merge of nil partial must still record the reply")
	}
}

func TestNewControllerRequiresOracle(t *testing.T) {
	t.Parallel()

	if _, err := NewController(nil); err == nil {
		t.Fatal("expected error for nil oracle")
	}
}
