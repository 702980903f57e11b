package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/pkg/kafka"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

type mockBatchPublisher struct {
	publishBatchFunc func(ctx context.Context, messages []kafka.Message) error
	got              []kafka.Message
}

func (m *mockBatchPublisher) PublishBatch(ctx context.Context, messages []kafka.Message) error {
	m.got = append(m.got, messages...)
	if m.publishBatchFunc != nil {
		return m.publishBatchFunc(ctx, messages)
	}
	return nil
}

func reservation(id, room string, start time.Time) *model.Reservation {
	return &model.Reservation{
		ID:         id,
		RoomID:     room,
		CustomerID: "c1",
		StartUTC:   start,
		EndUTC:     start.Add(time.Hour),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	mock := &mockBatchPublisher{}
	p := NewKafkaPublisher(mock)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	err := p.Publish(ctx,
		booking.Event{
			Type:        booking.EventReservationRescheduled,
			Reservation: reservation("r1", "room-b", start.Add(time.Hour)),
			Previous:    reservation("r1", "room-a", start),
			OccurredAt:  start,
		},
		booking.Event{
			Type:        booking.EventReservationCancelled,
			Reservation: reservation("r2", "room-a", start),
			Reason:      booking.ReasonResourceRemoved,
			OccurredAt:  start,
		},
	)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(mock.got) != 2 {
		t.Fatalf("messages = %d, want 2", len(mock.got))
	}

	first := mock.got[0]
	if first.Key != "room-b" {
		t.Errorf("key = %q, want the new room", first.Key)
	}
	if first.GetEventType() != string(booking.EventReservationRescheduled) {
		t.Errorf("event type = %q", first.GetEventType())
	}
	if first.GetCorrelationID() != "req-42" {
		t.Errorf("correlation id = %q", first.GetCorrelationID())
	}
	if first.Headers[kafka.HeaderSchemaVersion] != SchemaVersion {
		t.Errorf("schema version = %q", first.Headers[kafka.HeaderSchemaVersion])
	}

	var env Envelope
	if err := first.DecodeValue(&env); err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if env.Previous == nil || env.Previous.RoomID != "room-a" {
		t.Errorf("previous = %+v", env.Previous)
	}

	var second Envelope
	if err := json.Unmarshal(mock.got[1].Value, &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if second.Reason != booking.ReasonResourceRemoved {
		t.Errorf("reason = %q", second.Reason)
	}
}

func TestKafkaPublisher_Errors(t *testing.T) {
	tests := []struct {
		name     string
		events   []booking.Event
		sendErr  error
		wantErr  bool
		wantSent int
	}{
		{name: "no events", events: nil, wantSent: 0},
		{name: "missing reservation", events: []booking.Event{{Type: booking.EventReservationCreated}}, wantErr: true},
		{
			name:     "producer failure",
			events:   []booking.Event{{Type: booking.EventReservationCreated, Reservation: reservation("r1", "room", time.Now())}},
			sendErr:  errors.New("broker down"),
			wantErr:  true,
			wantSent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockBatchPublisher{
				publishBatchFunc: func(context.Context, []kafka.Message) error { return tt.sendErr },
			}
			err := NewKafkaPublisher(mock).Publish(context.Background(), tt.events...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(mock.got) != tt.wantSent {
				t.Errorf("sent = %d, want %d", len(mock.got), tt.wantSent)
			}
		})
	}
}

func TestTailHandler(t *testing.T) {
	var buf bytes.Buffer
	handle := TailHandler(&buf)

	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	value, _ := json.Marshal(Envelope{
		Type:        booking.EventReservationCreated,
		Reservation: reservation("r1", "room-a", start),
		OccurredAt:  start,
	})
	msg := kafka.Message{
		Key:     "room-a",
		Value:   value,
		Offset:  12,
		Headers: map[string]string{kafka.HeaderEventID: "e1"},
	}

	if err := handle(context.Background(), msg); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"offset":12`, `"event_id":"e1"`, `"type":"reservation.created"`, `"room_id":"room-a"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}

	bad := kafka.Message{Value: []byte("{not json"), Headers: map[string]string{}}
	err := handle(context.Background(), bad)
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("bad record error = %v, want permanent", err)
	}

	empty := kafka.Message{Value: []byte(`{}`), Headers: map[string]string{}}
	if err := handle(context.Background(), empty); err == nil {
		t.Error("incomplete envelope should fail")
	}
}
