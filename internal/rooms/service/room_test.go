package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/internal/rooms/validator"
	"roombook/internal/storage/memstore"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

type mockEngine struct {
	removeResourceFunc func(ctx context.Context, roomID string) error
	listByResourceFunc func(ctx context.Context, roomID string) ([]*model.Reservation, error)
}

func (m *mockEngine) RemoveResource(ctx context.Context, roomID string) error {
	if m.removeResourceFunc != nil {
		return m.removeResourceFunc(ctx, roomID)
	}
	return nil
}

func (m *mockEngine) ListByResource(ctx context.Context, roomID string) ([]*model.Reservation, error) {
	if m.listByResourceFunc != nil {
		return m.listByResourceFunc(ctx, roomID)
	}
	return nil, nil
}

func newTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return &config.Config{Log: log, BookingTxTimeout: 2 * time.Second}
}

func newTestService(engine Engine) (RoomService, *memstore.Store) {
	cfg := newTestConfig()
	store := memstore.New()
	return NewRoomService(store, engine, validator.NewRoomValidator(cfg.Log), cfg), store
}

func TestRoomService_Create(t *testing.T) {
	tests := []struct {
		name     string
		room     model.Room
		wantCode string
	}{
		{name: "valid", room: model.Room{Name: "  Orion  ", Capacity: 4}},
		{name: "missing name", room: model.Room{Capacity: 4}, wantCode: apperrors.CodeValidation},
		{name: "zero capacity", room: model.Room{Name: "Atlas"}, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(&mockEngine{})
			room := tt.room
			err := svc.Create(context.Background(), &room)

			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("Create() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if room.ID == "" || room.CreatedAt.IsZero() {
				t.Errorf("Create() did not assign id and timestamps: %+v", room)
			}
			if room.Name != "Orion" {
				t.Errorf("name = %q, want sanitized", room.Name)
			}
		})
	}
}

func TestRoomService_DuplicateName(t *testing.T) {
	svc, _ := newTestService(&mockEngine{})
	ctx := context.Background()

	if err := svc.Create(ctx, &model.Room{Name: "Orion", Capacity: 4}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := svc.Create(ctx, &model.Room{Name: "orion", Capacity: 8})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("duplicate Create() error = %v, want CONFLICT", err)
	}
}

func TestRoomService_Update(t *testing.T) {
	svc, _ := newTestService(&mockEngine{})
	ctx := context.Background()

	orion := &model.Room{Name: "Orion", Capacity: 4}
	atlas := &model.Room{Name: "Atlas", Capacity: 6}
	for _, r := range []*model.Room{orion, atlas} {
		if err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	capacity := 10
	updated, err := svc.Update(ctx, orion.ID, &model.RoomUpdate{Capacity: &capacity})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Capacity != 10 || updated.Name != "Orion" {
		t.Errorf("Update() = %+v", updated)
	}

	clash := "Atlas"
	if _, err := svc.Update(ctx, orion.ID, &model.RoomUpdate{Name: &clash}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("rename onto existing name error = %v, want CONFLICT", err)
	}

	if _, err := svc.Update(ctx, "missing", &model.RoomUpdate{Capacity: &capacity}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("update missing room error = %v, want NOT_FOUND", err)
	}

	if _, err := svc.Update(ctx, orion.ID, &model.RoomUpdate{}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty update error = %v, want VALIDATION_ERROR", err)
	}
}

func TestRoomService_GetAllOrderedByName(t *testing.T) {
	svc, _ := newTestService(&mockEngine{})
	ctx := context.Background()
	for _, name := range []string{"Zenith", "Apollo", "Nova"} {
		if err := svc.Create(ctx, &model.Room{Name: name, Capacity: 5}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rooms, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	want := []string{"Apollo", "Nova", "Zenith"}
	if len(rooms) != len(want) {
		t.Fatalf("GetAll() returned %d rooms", len(rooms))
	}
	for i, r := range rooms {
		if r.Name != want[i] {
			t.Errorf("rooms[%d] = %s, want %s", i, r.Name, want[i])
		}
	}
}

func TestRoomService_DeleteCascadesThroughEngine(t *testing.T) {
	cfg := newTestConfig()
	store := memstore.New()
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	engine := booking.NewEngine(store, cfg, booking.WithClock(func() time.Time { return now }))
	svc := NewRoomService(store, engine, validator.NewRoomValidator(cfg.Log), cfg)
	ctx := context.Background()

	room := &model.Room{Name: "Orion", Capacity: 4}
	if err := svc.Create(ctx, room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.CreateCustomer(ctx, &model.Customer{ID: "c1", Email: "ada@example.com", Name: "Ada"}); err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	res, err := engine.Create(ctx, booking.CreateRequest{
		RoomID: room.ID,
		Party:  booking.PartyRef{ID: "c1"},
		Start:  now.Add(time.Hour),
		End:    now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("engine.Create() error = %v", err)
	}

	listed, err := svc.Reservations(ctx, room.ID)
	if err != nil || len(listed) != 1 {
		t.Fatalf("Reservations() = %v, %v", listed, err)
	}

	if err := svc.Delete(ctx, room.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := engine.Get(ctx, res.ID); !errors.Is(err, booking.ErrReservationNotFound) {
		t.Errorf("reservation survived its room: %v", err)
	}
	if _, err := svc.GetByID(ctx, room.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("GetByID() after delete error = %v", err)
	}
	if err := svc.Delete(ctx, room.ID); !errors.Is(err, booking.ErrResourceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrResourceNotFound", err)
	}
}

func TestRoomService_DeleteEmptyID(t *testing.T) {
	called := false
	svc, _ := newTestService(&mockEngine{
		removeResourceFunc: func(context.Context, string) error {
			called = true
			return nil
		},
	})
	if err := svc.Delete(context.Background(), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("Delete(\"\") error = %v", err)
	}
	if called {
		t.Error("engine should not be called for an empty id")
	}
}
