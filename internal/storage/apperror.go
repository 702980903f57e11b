package storage

import (
	"context"
	"errors"
	"fmt"

	apperrors "roombook/pkg/errors"
)

// AdminError maps a storage error from a room or customer admin call onto an
// HTTP-ready AppError. Booking operations use the engine's taxonomy instead.
func AdminError(err error, resource, key string) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFoundWithID(resource, key)
	case errors.Is(err, ErrDuplicate):
		return apperrors.Conflict(fmt.Sprintf("%s %q already exists", resource, key))
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(fmt.Sprintf("%s storage timed out", resource))
	case errors.Is(err, ErrUnavailable):
		return apperrors.Unavailable("storage")
	default:
		return apperrors.Internal(fmt.Sprintf("Failed to access %s", resource), err)
	}
}
