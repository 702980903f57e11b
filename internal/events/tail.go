package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"roombook/pkg/kafka"
)

// Line is what the tail handler prints for each consumed record.
type Line struct {
	Partition     int    `json:"partition"`
	Offset        int64  `json:"offset"`
	EventID       string `json:"event_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Envelope
}

// TailHandler writes every reservation event as one JSON line to w.
// Records that are not valid envelopes fail permanently and go to the DLQ.
func TailHandler(w io.Writer) kafka.MessageHandler {
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	return func(_ context.Context, msg kafka.Message) error {
		var env Envelope
		if err := msg.DecodeValue(&env); err != nil {
			return kafka.NewPermanentError("decode reservation event", err)
		}
		if env.Reservation == nil || env.Type == "" {
			return kafka.NewPermanentError(fmt.Sprintf("incomplete reservation event at offset %d", msg.Offset), nil)
		}

		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(Line{
			Partition:     msg.Partition,
			Offset:        msg.Offset,
			EventID:       msg.GetEventID(),
			CorrelationID: msg.GetCorrelationID(),
			Envelope:      env,
		})
	}
}
