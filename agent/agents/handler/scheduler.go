package handler

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// Slots every calendar event needs, in prompt order.
const (
	SlotEventTitle = "event_title"
	SlotDate       = "date"
	SlotTime       = "time"
	SlotAttendees  = "attendees"
)

var RequiredSlots = []string{SlotEventTitle, SlotDate, SlotTime, SlotAttendees}

// Keys the scheduler keeps in the partial context between rounds.
const (
	partialKeyRequest = "request"
	partialKeyEvent   = "event"
)

type scheduler struct {
	runner compose.Runnable[map[string]any, eventLLMOutput]
	sink   EventSink
}

type eventLLMOutput struct {
	EventTitle string   `json:"event_title"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Attendees  []string `json:"attendees"`
}

func newScheduler(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, sink EventSink) (*scheduler, error) {
	if sink == nil {
		sink = LogSink{}
	}
	runner, err := compileStructuredLLMGraph[eventLLMOutput](ctx, chatModel, systemPrompt, "handler.schedule_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile scheduler graph: %v", contractx.ErrModelInvoke, err)
	}
	return &scheduler{runner: runner, sink: sink}, nil
}

// Handle extracts event details, merging them over what earlier rounds found. It pauses
// while any required slot is missing and publishes the event once all are known.
func (s *scheduler) Handle(ctx context.Context, hc contractx.HandlerContext) (contractx.Outcome, error) {
	request := hc.Utterance
	known := eventLLMOutput{}
	if hc.Resumed() {
		if v, ok := hc.Partial[partialKeyRequest].(string); ok && strings.TrimSpace(v) != "" {
			request = v
		}
		known = eventFromPartial(hc.Partial[partialKeyEvent])
	}

	input, err := graphInput(map[string]any{
		"request": request,
		"replies": nonNil(hc.Replies()),
		"known":   known,
	})
	if err != nil {
		return contractx.Outcome{}, err
	}

	out, err := s.runner.Invoke(ctx, input)
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: scheduler invoke: %v", contractx.ErrModelInvoke, err)
	}

	event := mergeEvent(known, out)
	if missing := missingSlots(event); len(missing) > 0 {
		partial := make(map[string]any, len(hc.Partial)+2)
		for k, v := range hc.Partial {
			partial[k] = v
		}
		partial[partialKeyRequest] = request
		partial[partialKeyEvent] = eventToPartial(event)
		return contractx.Paused(missingPrompt(missing), missing, partial), nil
	}

	calendarEvent := CalendarEvent{
		ConversationID: hc.ConversationID,
		Title:          event.EventTitle,
		Date:           event.Date,
		Time:           event.Time,
		Attendees:      event.Attendees,
	}
	if err := s.sink.PublishEvent(ctx, calendarEvent); err != nil {
		return contractx.Outcome{}, fmt.Errorf("publish calendar event: %w", err)
	}
	return contractx.Completed(renderEvent(event)), nil
}

func missingPrompt(missing []string) string {
	return "Please also include: " + strings.Join(missing, ", ")
}

// mergeEvent keeps known values unless the newer extraction states one.
func mergeEvent(known, fresh eventLLMOutput) eventLLMOutput {
	pick := func(old, next string) string {
		if v := strings.TrimSpace(next); v != "" {
			return v
		}
		return strings.TrimSpace(old)
	}

	merged := eventLLMOutput{
		EventTitle: pick(known.EventTitle, fresh.EventTitle),
		Date:       pick(known.Date, fresh.Date),
		Time:       pick(known.Time, fresh.Time),
		Attendees:  cleanAttendees(known.Attendees),
	}
	if next := cleanAttendees(fresh.Attendees); len(next) > 0 {
		merged.Attendees = next
	}
	return merged
}

func cleanAttendees(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func missingSlots(e eventLLMOutput) []string {
	present := map[string]bool{
		SlotEventTitle: e.EventTitle != "",
		SlotDate:       e.Date != "",
		SlotTime:       e.Time != "",
		SlotAttendees:  len(e.Attendees) > 0,
	}
	var missing []string
	for _, slot := range RequiredSlots {
		if !present[slot] {
			missing = append(missing, slot)
		}
	}
	return missing
}

func eventToPartial(e eventLLMOutput) map[string]any {
	return map[string]any{
		SlotEventTitle: e.EventTitle,
		SlotDate:       e.Date,
		SlotTime:       e.Time,
		SlotAttendees:  append([]string(nil), e.Attendees...),
	}
}

// eventFromPartial accepts both the in-memory form and the JSON-decoded one.
func eventFromPartial(raw any) eventLLMOutput {
	m, ok := raw.(map[string]any)
	if !ok {
		return eventLLMOutput{}
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}

	var attendees []string
	switch v := m[SlotAttendees].(type) {
	case []string:
		attendees = append(attendees, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				attendees = append(attendees, s)
			}
		}
	}

	return eventLLMOutput{
		EventTitle: str(SlotEventTitle),
		Date:       str(SlotDate),
		Time:       str(SlotTime),
		Attendees:  cleanAttendees(attendees),
	}
}

func renderEvent(e eventLLMOutput) string {
	return strings.Join([]string{
		"Title: " + e.EventTitle,
		"Date: " + e.Date,
		"Time: " + e.Time,
		"Attendees: " + strings.Join(e.Attendees, ", "),
	}, "\n")
}
