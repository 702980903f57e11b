package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func runConsumer(t *testing.T, msgs []kafka.Message, dlq Writer, handler MessageHandler) (*fakeReader, *Consumer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{queue: msgs, cancel: cancel}
	c := NewConsumerWithReader(r, dlq, "reservations", "tail", handler, testLogger())
	c.backoff = 0

	if err := c.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() error = %v, want context.Canceled", err)
	}
	return r, c
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	var keys []string
	r, _ := runConsumer(t, []kafka.Message{
		{Key: []byte("room-1"), Value: []byte("a"), Offset: 1, Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("reservation.created")}}},
		{Key: []byte("room-2"), Value: []byte("b"), Offset: 2},
	}, nil, func(_ context.Context, msg Message) error {
		keys = append(keys, msg.Key)
		return nil
	})

	if len(keys) != 2 || keys[0] != "room-1" || keys[1] != "room-2" {
		t.Errorf("handled keys = %v", keys)
	}
	if len(r.committed) != 2 {
		t.Errorf("committed = %v, want 2 offsets", r.committed)
	}
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	r, _ := runConsumer(t, []kafka.Message{{Key: []byte("k"), Value: []byte("v"), Offset: 7}}, nil,
		func(context.Context, Message) error {
			attempts++
			if attempts < 3 {
				return NewTransientError("flaky", nil)
			}
			return nil
		})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(r.committed) != 1 {
		t.Errorf("committed = %v", r.committed)
	}
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	attempts := 0
	r, _ := runConsumer(t, []kafka.Message{{Key: []byte("k"), Value: []byte("v"), Offset: 3}}, dlq,
		func(context.Context, Message) error {
			attempts++
			return NewPermanentError("bad payload", nil)
		})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(dlq.written) != 1 {
		t.Fatalf("dlq written = %d, want 1", len(dlq.written))
	}
	if header(dlq.written[0], HeaderDLQGroup) != "tail" {
		t.Errorf("dlq group = %q", header(dlq.written[0], HeaderDLQGroup))
	}
	if len(r.committed) != 1 {
		t.Error("dead-lettered message should still be committed")
	}
}

func TestConsumer_ExhaustedRetries(t *testing.T) {
	dlq := &fakeWriter{}
	attempts := 0
	runConsumer(t, []kafka.Message{{Key: []byte("k"), Value: []byte("v")}}, dlq,
		func(context.Context, Message) error {
			attempts++
			return NewTransientError("still down", nil)
		})

	if attempts != 4 {
		t.Errorf("attempts = %d, want 1 + 3 retries", attempts)
	}
	if len(dlq.written) != 1 {
		t.Errorf("dlq written = %d, want 1", len(dlq.written))
	}
	if got := header(dlq.written[0], HeaderRetryCount); got != "3" {
		t.Errorf("retry count header = %q, want 3", got)
	}
}

func TestConsumer_StartAfterClose(t *testing.T) {
	c := NewConsumerWithReader(&fakeReader{}, nil, "reservations", "tail",
		func(context.Context, Message) error { return nil }, testLogger())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("Start() error = %v, want ErrConsumerClosed", err)
	}
}
