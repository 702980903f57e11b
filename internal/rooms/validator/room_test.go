package validator

import (
	"testing"

	"roombook/pkg/logger"
	"roombook/pkg/model"
)

func newTestValidator() *RoomValidator {
	return NewRoomValidator(logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	}))
}

func TestRoomValidator_Validate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		room    model.Room
		wantErr bool
	}{
		{name: "valid", room: model.Room{Name: "Orion", Capacity: 4}},
		{name: "missing name", room: model.Room{Capacity: 4}, wantErr: true},
		{name: "zero capacity", room: model.Room{Name: "Orion"}, wantErr: true},
		{name: "negative capacity", room: model.Room{Name: "Orion", Capacity: -1}, wantErr: true},
		{name: "capacity too large", room: model.Room{Name: "Orion", Capacity: 10001}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.room)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoomValidator_ValidateUpdate(t *testing.T) {
	v := newTestValidator()
	name, empty, capacity, zero := "Atlas", "", 6, 0

	tests := []struct {
		name    string
		update  model.RoomUpdate
		wantErr bool
	}{
		{name: "name only", update: model.RoomUpdate{Name: &name}},
		{name: "capacity only", update: model.RoomUpdate{Capacity: &capacity}},
		{name: "nothing to update", update: model.RoomUpdate{}, wantErr: true},
		{name: "empty name", update: model.RoomUpdate{Name: &empty}, wantErr: true},
		{name: "zero capacity", update: model.RoomUpdate{Capacity: &zero}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(&tt.update)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
