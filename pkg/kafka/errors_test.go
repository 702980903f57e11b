package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "explicit transient", err: NewTransientError("x", nil), want: ErrorTypeTransient},
		{name: "explicit permanent", err: NewPermanentError("x", nil), want: ErrorTypePermanent},
		{name: "wrapped transient", err: fmt.Errorf("handler: %w", NewTransientError("x", nil)), want: ErrorTypeTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTransient},
		{name: "retriable broker code", err: kafka.LeaderNotAvailable, want: ErrorTypeTransient},
		{name: "fatal broker code", err: kafka.TopicAuthorizationFailed, want: ErrorTypePermanent},
		{name: "network", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: ErrorTypeTransient},
		{name: "unknown", err: errors.New("schema mismatch"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("x", nil)
	if !ShouldRetry(transient, 0, 3) {
		t.Error("transient error under the limit should retry")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("retry limit reached")
	}
	if ShouldRetry(NewPermanentError("x", nil), 0, 3) {
		t.Error("permanent error should not retry")
	}
	if ShouldRetry(nil, 0, 3) {
		t.Error("nil error should not retry")
	}
}
