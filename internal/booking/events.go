package booking

import (
	"context"
	"time"

	"roombook/pkg/model"
)

type EventType string

const (
	EventReservationCreated     EventType = "reservation.created"
	EventReservationRescheduled EventType = "reservation.rescheduled"
	EventReservationCancelled   EventType = "reservation.cancelled"
)

const (
	ReasonCancelled       = "cancelled"
	ReasonResourceRemoved = "resource_removed"
	ReasonPartyRemoved    = "party_removed"
)

// Event describes a committed reservation change. Previous is set for reschedules.
type Event struct {
	Type        EventType
	Reservation *model.Reservation
	Previous    *model.Reservation
	Reason      string
	OccurredAt  time.Time
}

// EventPublisher receives events only after their atomic unit committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...Event) error { return nil }
