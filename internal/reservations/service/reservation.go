package service

import (
	"context"

	"roombook/internal/booking"
	"roombook/internal/reservations/validator"
	"roombook/pkg/config"
	"roombook/pkg/model"
	"roombook/pkg/validation"
)

type ReservationService interface {
	Create(ctx context.Context, req *validator.ReservationRequest, idempotencyKey string) (*model.Reservation, error)
	Reschedule(ctx context.Context, id string, req *validator.ReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.ReservationDetails, error)
	GetAll(ctx context.Context) ([]*model.ReservationDetails, error)
}

// Engine is the booking engine surface reservations use.
type Engine interface {
	Create(ctx context.Context, req booking.CreateRequest) (*model.Reservation, error)
	Reschedule(ctx context.Context, req booking.RescheduleRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID string) error
	GetDetails(ctx context.Context, reservationID string) (*model.ReservationDetails, error)
	ListAll(ctx context.Context) ([]*model.ReservationDetails, error)
}

type reservationService struct {
	engine    Engine
	validator *validator.ReservationValidator
	cfg       *config.Config
}

func NewReservationService(engine Engine, validator *validator.ReservationValidator, cfg *config.Config) ReservationService {
	return &reservationService{
		engine:    engine,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, req *validator.ReservationRequest, idempotencyKey string) (*model.Reservation, error) {
	parsed, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	return s.engine.Create(ctx, booking.CreateRequest{
		RoomID:         parsed.RoomID,
		Party:          booking.PartyRef{ID: parsed.CustomerID, Email: parsed.CustomerEmail},
		Start:          parsed.Start,
		End:            parsed.End,
		IdempotencyKey: idempotencyKey,
	})
}

func (s *reservationService) Reschedule(ctx context.Context, id string, req *validator.ReservationRequest) (*model.Reservation, error) {
	parsed, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	return s.engine.Reschedule(ctx, booking.RescheduleRequest{
		ReservationID: id,
		RoomID:        parsed.RoomID,
		Party:         booking.PartyRef{ID: parsed.CustomerID, Email: parsed.CustomerEmail},
		Start:         parsed.Start,
		End:           parsed.End,
	})
}

func (s *reservationService) Cancel(ctx context.Context, id string) error {
	return s.engine.Cancel(ctx, id)
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.ReservationDetails, error) {
	return s.engine.GetDetails(ctx, id)
}

func (s *reservationService) GetAll(ctx context.Context) ([]*model.ReservationDetails, error) {
	return s.engine.ListAll(ctx)
}

func (s *reservationService) parse(req *validator.ReservationRequest) (*validator.ParsedRequest, error) {
	parsed, err := s.validator.Validate(req)
	if err != nil {
		s.cfg.Log.Warn("Reservation request validation failed", "error", err)
		return nil, validation.ToAppError("Reservation validation failed", err)
	}
	return parsed, nil
}
