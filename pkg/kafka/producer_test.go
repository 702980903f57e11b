package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafka_config "roombook/pkg/kafka/config"
	"roombook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr != nil {
		return w.writeErr
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewProducer_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *kafka_config.Config
		topic string
	}{
		{name: "nil config", cfg: nil, topic: "t"},
		{name: "no brokers", cfg: &kafka_config.Config{}, topic: "t"},
		{name: "empty topic", cfg: &kafka_config.Config{Brokers: []string{"localhost:9092"}}, topic: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProducer(tt.cfg, tt.topic, "", testLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriters(w, nil, "reservations", "", testLogger())

	msg := NewMessage().
		WithKey("room-1").
		WithValue(map[string]string{"id": "r1"}).
		WithEventType("reservation.created").
		WithCorrelationID("req-1").
		Build()

	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.written) != 1 {
		t.Fatalf("written = %d, want 1", len(w.written))
	}
	got := w.written[0]
	if string(got.Key) != "room-1" {
		t.Errorf("key = %q, want room-1", got.Key)
	}
	if string(got.Value) != `{"id":"r1"}` {
		t.Errorf("value = %s", got.Value)
	}
	if header(got, HeaderEventType) != "reservation.created" {
		t.Errorf("event type header = %q", header(got, HeaderEventType))
	}
	if header(got, HeaderCorrelationID) != "req-1" {
		t.Errorf("correlation header = %q", header(got, HeaderCorrelationID))
	}
	if header(got, HeaderEventID) == "" {
		t.Error("event id header missing")
	}
}

func TestProducer_PublishRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{name: "empty key", msg: Message{Value: []byte("x")}, want: ErrEmptyKey},
		{name: "empty value", msg: Message{Key: "k"}, want: ErrEmptyValue},
		{name: "unencodable value", msg: NewMessage().WithKey("k").WithValue(make(chan int)).Build(), want: ErrEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			p := NewProducerWithWriters(w, nil, "reservations", "", testLogger())
			if err := p.Publish(context.Background(), tt.msg); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
			if len(w.written) != 0 {
				t.Error("invalid message reached the writer")
			}
		})
	}
}

func TestProducer_PublishBatchIsAllOrNothing(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriters(w, nil, "reservations", "", testLogger())

	good := NewMessage().WithKey("room-1").WithValue("a").Build()
	bad := Message{Key: "room-1"}

	if err := p.PublishBatch(context.Background(), []Message{good, bad}); !errors.Is(err, ErrEmptyValue) {
		t.Fatalf("PublishBatch() error = %v, want ErrEmptyValue", err)
	}
	if len(w.written) != 0 {
		t.Fatalf("written = %d, want 0", len(w.written))
	}

	if err := p.PublishBatch(context.Background(), []Message{good, good}); err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if len(w.written) != 2 {
		t.Errorf("written = %d, want 2", len(w.written))
	}

	if err := p.PublishBatch(context.Background(), nil); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("empty batch error = %v, want ErrInvalidMessage", err)
	}
}

func TestProducer_DeadLetter(t *testing.T) {
	brokerErr := errors.New("broker down")
	w := &fakeWriter{writeErr: brokerErr}
	dlq := &fakeWriter{}
	p := NewProducerWithWriters(w, dlq, "reservations", "reservations-dlq", testLogger())
	p.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	msg := NewMessage().WithKey("room-1").WithValue("a").Build()
	err := p.Publish(context.Background(), msg)
	if !errors.Is(err, brokerErr) {
		t.Fatalf("Publish() error = %v, want broker error", err)
	}

	if len(dlq.written) != 1 {
		t.Fatalf("dlq written = %d, want 1", len(dlq.written))
	}
	dead := dlq.written[0]
	if header(dead, HeaderOriginalTopic) != "reservations" {
		t.Errorf("original topic = %q", header(dead, HeaderOriginalTopic))
	}
	if header(dead, HeaderDLQError) != "broker down" {
		t.Errorf("dlq error = %q", header(dead, HeaderDLQError))
	}
	if header(dead, HeaderDLQTimestamp) != "2030-01-01T00:00:00Z" {
		t.Errorf("dlq timestamp = %q", header(dead, HeaderDLQTimestamp))
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("dead-lettering mutated the caller's headers")
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := NewProducerWithWriters(&fakeWriter{}, nil, "reservations", "", testLogger())

	var order []string
	for _, name := range []string{"outer", "inner"} {
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	msg := NewMessage().WithKey("k").WithValue("v").Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestProducer_Close(t *testing.T) {
	w, dlq := &fakeWriter{}, &fakeWriter{}
	p := NewProducerWithWriters(w, dlq, "reservations", "reservations-dlq", testLogger())

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !w.closed || !dlq.closed {
		t.Error("writers not closed")
	}

	msg := NewMessage().WithKey("k").WithValue("v").Build()
	if err := p.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("Publish() after close error = %v, want ErrProducerClosed", err)
	}
}
