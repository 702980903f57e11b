package validator

import (
	"time"

	"roombook/pkg/logger"
	"roombook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// ReservationRequest is the body of create and reschedule calls. The customer
// is named by id or by email, never both.
type ReservationRequest struct {
	RoomID        string `json:"room_id" validate:"required,max=64"`
	CustomerID    string `json:"customer_id,omitempty" validate:"required_without=CustomerEmail,excluded_with=CustomerEmail,max=64"`
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email,max=254"`
	StartUTC      string `json:"start_utc" validate:"required"`
	EndUTC        string `json:"end_utc" validate:"required"`
}

// ParsedRequest carries the instants after offset-aware parsing.
type ParsedRequest struct {
	ReservationRequest
	Start time.Time
	End   time.Time
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	return &ReservationValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate checks shape and timestamp syntax only. Interval ordering and the
// past-start rule belong to the booking engine.
func (v *ReservationValidator) Validate(req *ReservationRequest) (*ParsedRequest, error) {
	if err := validation.Struct(v.validate, req); err != nil {
		return nil, err
	}

	var errs validation.ValidationErrors
	start, err := time.Parse(time.RFC3339, req.StartUTC)
	if err != nil {
		errs = append(errs, validation.ValidationError{Field: "start_utc", Message: "start_utc must be an RFC 3339 timestamp with an explicit offset"})
	}
	end, err := time.Parse(time.RFC3339, req.EndUTC)
	if err != nil {
		errs = append(errs, validation.ValidationError{Field: "end_utc", Message: "end_utc must be an RFC 3339 timestamp with an explicit offset"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &ParsedRequest{ReservationRequest: *req, Start: start, End: end}, nil
}
