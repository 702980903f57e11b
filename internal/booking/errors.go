package booking

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "roombook/pkg/errors"
)

const (
	CodeInvalidInterval     = "INVALID_INTERVAL"
	CodePastInterval        = "PAST_INTERVAL"
	CodeOverlapConflict     = "OVERLAP_CONFLICT"
	CodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	CodePartyNotFound       = "PARTY_NOT_FOUND"
	CodeReservationNotFound = "RESERVATION_NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeTimeout             = "TIMEOUT"
	CodeStorageFailure      = "STORAGE_FAILURE"
)

// Every error the engine returns is an *apperrors.AppError wrapping exactly one of these.
var (
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrPastInterval        = errors.New("interval starts in the past")
	ErrOverlapConflict     = errors.New("interval overlaps an existing reservation")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrPartyNotFound       = errors.New("party not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrConflict            = errors.New("concurrent write conflict")
	ErrTimeout             = errors.New("atomic unit timed out")
	ErrStorageFailure      = errors.New("storage failure")
)

func invalidIntervalError() *apperrors.AppError {
	return apperrors.Wrap(ErrInvalidInterval, CodeInvalidInterval,
		"start must be before end", http.StatusUnprocessableEntity)
}

func pastIntervalError() *apperrors.AppError {
	return apperrors.Wrap(ErrPastInterval, CodePastInterval,
		"start must not be in the past", http.StatusUnprocessableEntity)
}

func overlapError(roomID string, conflicting []string) *apperrors.AppError {
	details := map[string]any{"room_id": roomID}
	if len(conflicting) > 0 {
		details["conflicting_ids"] = conflicting
	}
	return apperrors.Wrap(ErrOverlapConflict, CodeOverlapConflict,
		"room is already reserved for an overlapping interval", http.StatusConflict).WithDetails(details)
}

func resourceNotFoundError(roomID string) *apperrors.AppError {
	return apperrors.Wrap(ErrResourceNotFound, CodeResourceNotFound,
		"room not found", http.StatusNotFound).WithDetails(map[string]any{"room_id": roomID})
}

func partyNotFoundError(ref PartyRef) *apperrors.AppError {
	details := map[string]any{}
	if ref.ID != "" {
		details["customer_id"] = ref.ID
	}
	if ref.Email != "" {
		details["customer_email"] = ref.Email
	}
	return apperrors.Wrap(ErrPartyNotFound, CodePartyNotFound,
		"customer not found", http.StatusNotFound).WithDetails(details)
}

func reservationNotFoundError(id string) *apperrors.AppError {
	return apperrors.Wrap(ErrReservationNotFound, CodeReservationNotFound,
		"reservation not found", http.StatusNotFound).WithDetails(map[string]any{"id": id})
}

func conflictError(message string, cause error) *apperrors.AppError {
	return apperrors.Wrap(joinCause(ErrConflict, cause), CodeConflict, message, http.StatusConflict)
}

func timeoutError(cause error) *apperrors.AppError {
	return apperrors.Wrap(joinCause(ErrTimeout, cause), CodeTimeout,
		"operation did not complete in time", http.StatusGatewayTimeout)
}

func storageFailureError(cause error) *apperrors.AppError {
	return apperrors.Wrap(joinCause(ErrStorageFailure, cause), CodeStorageFailure,
		"storage is temporarily unavailable", http.StatusServiceUnavailable)
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
