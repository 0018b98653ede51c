package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	qstashx "github.com/tanpawarit/chative-intent-router/pkg/qstash"
)

// CalendarEvent is what the scheduler hands to the calendar integration.
type CalendarEvent struct {
	ConversationID string   `json:"conversation_id"`
	Title          string   `json:"event_title"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Attendees      []string `json:"attendees"`
}

// DedupID is stable for the same event in the same conversation.
func (e CalendarEvent) DedupID() string {
	key := strings.Join([]string{
		e.ConversationID,
		e.Title,
		e.Date,
		e.Time,
		strings.Join(e.Attendees, ","),
	}, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

type EventSink interface {
	PublishEvent(ctx context.Context, event CalendarEvent) error
}

type publisher interface {
	Publish(ctx context.Context, destination string, payload any, dedupID string) (string, error)
}

// QStashSink delivers events to a QStash destination that creates the calendar entry.
type QStashSink struct {
	client      publisher
	destination string
}

var _ publisher = (*qstashx.Client)(nil)

func NewQStashSink(client *qstashx.Client, destination string) *QStashSink {
	return &QStashSink{client: client, destination: strings.TrimSpace(destination)}
}

func (s *QStashSink) PublishEvent(ctx context.Context, event CalendarEvent) error {
	messageID, err := s.client.Publish(ctx, s.destination, event, event.DedupID())
	if err != nil {
		return err
	}
	log.Debug().
		Str("conversation_id", event.ConversationID).
		Str("message_id", messageID).
		Msg("calendar event published")
	return nil
}

// LogSink only logs events; used when no delivery target is configured.
type LogSink struct{}

func (LogSink) PublishEvent(ctx context.Context, event CalendarEvent) error {
	log.Info().
		Str("conversation_id", event.ConversationID).
		Str("event_title", event.Title).
		Str("date", event.Date).
		Str("time", event.Time).
		Strs("attendees", event.Attendees).
		Msg("calendar event accepted without delivery target")
	return nil
}
