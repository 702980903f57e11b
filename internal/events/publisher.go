// Package events carries committed reservation changes onto the Kafka stream
// and back off it.
package events

import (
	"context"
	"errors"
	"time"

	"roombook/internal/booking"
	"roombook/pkg/kafka"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "roombook"
)

// Envelope is the JSON value of every reservation event record.
type Envelope struct {
	Type        booking.EventType  `json:"type"`
	Reservation *model.Reservation `json:"reservation"`
	Previous    *model.Reservation `json:"previous,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

type BatchPublisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
}

// KafkaPublisher implements booking.EventPublisher. Records are keyed by room
// id so that events for one room stay ordered within a partition.
type KafkaPublisher struct {
	producer BatchPublisher
}

func NewKafkaPublisher(producer BatchPublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

var _ booking.EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...booking.Event) error {
	if len(evts) == 0 {
		return nil
	}

	correlationID := middleware.RequestIDFromContext(ctx)
	messages := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		if e.Reservation == nil {
			return errors.New("event without reservation")
		}
		messages = append(messages, kafka.NewMessage().
			WithKey(e.Reservation.RoomID).
			WithValue(Envelope{
				Type:        e.Type,
				Reservation: e.Reservation,
				Previous:    e.Previous,
				Reason:      e.Reason,
				OccurredAt:  e.OccurredAt.UTC(),
			}).
			WithEventType(string(e.Type)).
			WithCorrelationID(correlationID).
			WithSchemaVersion(SchemaVersion).
			WithSource(Source).
			WithTimestamp(e.OccurredAt).
			Build())
	}

	return p.producer.PublishBatch(ctx, messages)
}
