package service

import (
	"context"
	"errors"
	"time"

	"roombook/internal/rooms/validator"
	"roombook/internal/storage"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"roombook/pkg/validation"

	"github.com/google/uuid"
)

type RoomService interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetAll(ctx context.Context) ([]*model.Room, error)
	Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error)
	Delete(ctx context.Context, id string) error
	Reservations(ctx context.Context, id string) ([]*model.Reservation, error)
}

// Engine is the booking engine surface rooms depend on. Deleting a room must
// cascade through it so that no reservation outlives its room.
type Engine interface {
	RemoveResource(ctx context.Context, roomID string) error
	ListByResource(ctx context.Context, roomID string) ([]*model.Reservation, error)
}

type roomService struct {
	repo      storage.RoomRepository
	engine    Engine
	validator *validator.RoomValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewRoomService(
	repo storage.RoomRepository,
	engine Engine,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		engine:    engine,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *roomService) Create(ctx context.Context, room *model.Room) error {
	sanitizer.SanitizeRoom(room)
	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return validation.ToAppError("Room validation failed", err)
	}

	now := s.now().UTC()
	room.ID = uuid.NewString()
	room.CreatedAt = now
	room.UpdatedAt = now

	if err := s.repo.CreateRoom(ctx, room); err != nil {
		s.cfg.Log.Warn("Failed to create room", "name", room.Name, "error", err)
		return storage.AdminError(err, "Room", room.Name)
	}

	s.cfg.Log.Info("Room created successfully", "id", room.ID, "name", room.Name, "capacity", room.Capacity)
	return nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, storage.AdminError(err, "Room", id)
	}
	return room, nil
}

func (s *roomService) GetAll(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, storage.AdminError(err, "Room", "")
	}
	return rooms, nil
}

// Update changes name and capacity only. Existing reservations are untouched.
func (s *roomService) Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error) {
	sanitizer.SanitizeRoomUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validation.ToAppError("Room validation failed", err)
	}

	room, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *room
	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	merged.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateRoom(ctx, &merged); err != nil {
		s.cfg.Log.Warn("Failed to update room", "id", id, "error", err)
		key := id
		if errors.Is(err, storage.ErrDuplicate) {
			key = merged.Name
		}
		return nil, storage.AdminError(err, "Room", key)
	}

	s.cfg.Log.Info("Room updated successfully", "id", id, "name", merged.Name, "capacity", merged.Capacity)
	return &merged, nil
}

func (s *roomService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Room ID cannot be empty")
	}
	return s.engine.RemoveResource(ctx, id)
}

func (s *roomService) Reservations(ctx context.Context, id string) ([]*model.Reservation, error) {
	return s.engine.ListByResource(ctx, id)
}
