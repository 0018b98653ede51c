package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/tanpawarit/chative-intent-router/agent/interrupt"
	promptx "github.com/tanpawarit/chative-intent-router/agent/prompt"
)

type fakeChatModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no fake response left")
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return schema.AssistantMessage(content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

// lastUserInput decodes the JSON payload of the newest user message.
func (f *fakeChatModel) lastUserInput(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		t.Fatal("model was never called")
	}
	msgs := f.inputs[len(f.inputs)-1]
	last := msgs[len(msgs)-1]
	if last.Role != schema.User {
		t.Fatalf("expected user message last, got %s", last.Role)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(last.Content), &out); err != nil {
		t.Fatalf("user message is not JSON: %v", err)
	}
	return out
}

type fakeSink struct {
	mu     sync.Mutex
	err    error
	events []CalendarEvent
}

func (f *fakeSink) PublishEvent(ctx context.Context, event CalendarEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestSummarizerCompletes(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []string{"```json\n{\"summary\":\"Ship on Friday.\"}\n```"}}
	h, err := newSummarizer(context.Background(), model, promptx.LoadPromptSet().Summarize)
	if err != nil {
		t.Fatalf("newSummarizer() error = %v", err)
	}

	out, err := h.Handle(context.Background(), contractx.HandlerContext{
		ConversationID: "c1",
		Utterance:      "summarize",
		Transcript:     []string{"alice: ship friday?", "bob: yes"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !out.IsCompleted() || out.Result != "Ship on Friday." {
		t.Fatalf("unexpected outcome %+v", out)
	}

	input := model.lastUserInput(t)
	if input["request"] != "summarize" {
		t.Fatalf("unexpected request %v", input["request"])
	}
	if transcript, _ := input["transcript"].([]any); len(transcript) != 2 {
		t.Fatalf("transcript not forwarded: %v", input["transcript"])
	}
}

func TestSummarizerErrors(t *testing.T) {
	t.Parallel()

	prompt := promptx.LoadPromptSet().Summarize

	empty := &fakeChatModel{responses: []string{`{"summary":"  "}`}}
	h, err := newSummarizer(context.Background(), empty, prompt)
	if err != nil {
		t.Fatalf("newSummarizer() error = %v", err)
	}
	if _, err := h.Handle(context.Background(), contractx.HandlerContext{Utterance: "summarize"}); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}

	failing := &fakeChatModel{err: errors.New("rate limited")}
	h, err = newSummarizer(context.Background(), failing, prompt)
	if err != nil {
		t.Fatalf("newSummarizer() error = %v", err)
	}
	if _, err := h.Handle(context.Background(), contractx.HandlerContext{Utterance: "summarize"}); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestActionItemsRendersBullets(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []string{
		`{"action_items":["Bob: write release notes","- Alice: book the room"," "]}`,
		`{"action_items":[]}`,
	}}
	h, err := newActionItemLister(context.Background(), model, promptx.LoadPromptSet().ActionItems)
	if err != nil {
		t.Fatalf("newActionItemLister() error = %v", err)
	}

	out, err := h.Handle(context.Background(), contractx.HandlerContext{Utterance: "list action items"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want := "- Bob: write release notes\n- Alice: book the room"
	if out.Result != want {
		t.Fatalf("Result = %q, want %q", out.Result, want)
	}

	out, err = h.Handle(context.Background(), contractx.HandlerContext{Utterance: "any tasks?"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if out.Result != noActionItems {
		t.Fatalf("expected empty-list message, got %q", out.Result)
	}
}

func TestSchedulerPausesThenPublishes(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []string{
		`{"event_title":"Design review","date":"","time":"","attendees":["alice"]}`,
		`{"event_title":"","date":"2024-05-02","time":"15:00","attendees":[]}`,
	}}
	sink := &fakeSink{}
	h, err := newScheduler(context.Background(), model, promptx.LoadPromptSet().Schedule, sink)
	if err != nil {
		t.Fatalf("newScheduler() error = %v", err)
	}

	first, err := h.Handle(context.Background(), contractx.HandlerContext{
		ConversationID: "c1",
		Utterance:      "schedule a design review with alice",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !first.IsPaused() {
		t.Fatalf("expected pause, got %+v", first)
	}
	if got := strings.Join(first.MissingFields, ","); got != "date,time" {
		t.Fatalf("unexpected missing fields %q", got)
	}
	if first.Prompt != "Please also include: date, time" {
		t.Fatalf("unexpected prompt %q", first.Prompt)
	}

	// Round-trip the partial through JSON the way a checkpoint store does.
	raw, err := json.Marshal(first.PartialContext)
	if err != nil {
		t.Fatalf("marshal partial: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal partial: %v", err)
	}

	second, err := h.Handle(context.Background(), contractx.HandlerContext{
		ConversationID: "c1",
		Utterance:      "May 2nd at 3pm",
		Partial:        interrupt.MergeContext(stored, "May 2nd at 3pm"),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !second.IsCompleted() {
		t.Fatalf("expected completion, got %+v", second)
	}

	input := model.lastUserInput(t)
	if input["request"] != "schedule a design review with alice" {
		t.Fatalf("resume must keep the original request, got %v", input["request"])
	}
	if replies, _ := input["replies"].([]any); len(replies) != 1 || replies[0] != "May 2nd at 3pm" {
		t.Fatalf("unexpected replies %v", input["replies"])
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.Title != "Design review" || event.Date != "2024-05-02" || event.Time != "15:00" {
		t.Fatalf("unexpected event %+v", event)
	}
	if len(event.Attendees) != 1 || event.Attendees[0] != "alice" {
		t.Fatalf("known attendees must survive an empty extraction, got %v", event.Attendees)
	}
	if !strings.Contains(second.Result, "Title: Design review") {
		t.Fatalf("unexpected result %q", second.Result)
	}
}

func TestSchedulerPublishFailure(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{responses: []string{
		`{"event_title":"Sync","date":"today","time":"5pm","attendees":["bob"]}`,
	}}
	sinkErr := errors.New("qstash unavailable")
	h, err := newScheduler(context.Background(), model, promptx.LoadPromptSet().Schedule, &fakeSink{err: sinkErr})
	if err != nil {
		t.Fatalf("newScheduler() error = %v", err)
	}

	if _, err := h.Handle(context.Background(), contractx.HandlerContext{Utterance: "schedule a sync"}); !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestCalendarEventDedupIDStable(t *testing.T) {
	t.Parallel()

	a := CalendarEvent{ConversationID: "c1", Title: "Sync", Date: "today", Time: "5pm", Attendees: []string{"bob"}}
	b := a
	if a.DedupID() != b.DedupID() {
		t.Fatal("same event must yield the same dedup id")
	}
	b.Time = "6pm"
	if a.DedupID() == b.DedupID() {
		t.Fatal("different events must yield different dedup ids")
	}
}

func TestRegistryHandler(t *testing.T) {
	t.Parallel()

	h := contractx.HandlerFunc(func(context.Context, contractx.HandlerContext) (contractx.Outcome, error) {
		return contractx.Completed("ok"), nil
	})
	r := Registry{"SUMMARIZE": h}
	if _, ok := r.Handler("SUMMARIZE"); !ok {
		t.Fatal("expected registered handler")
	}
	if _, ok := r.Handler("SCHEDULE"); ok {
		t.Fatal("unexpected handler for unregistered intent")
	}
}

func TestTrimFence(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"a":1}`:                   `{"a":1}`,
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\n{\"a\":1}```":         `{"a":1}`,
		"  ```json\n{\"a\":1}\n``` ": `{"a":1}`,
	}
	for in, want := range cases {
		if got := trimFence(in); got != want {
			t.Fatalf("trimFence(%q) = %q, want %q", in, got, want)
		}
	}
}
