package validator

import (
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"roombook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type RoomValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRoomValidator(log *logger.Logger) *RoomValidator {
	return &RoomValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *RoomValidator) Validate(room *model.Room) error {
	return validation.Struct(v.validate, room)
}

func (v *RoomValidator) ValidateUpdate(update *model.RoomUpdate) error {
	if update.Name == nil && update.Capacity == nil {
		return validation.ValidationErrors{{Field: "body", Message: "at least one of name or capacity is required"}}
	}
	return validation.Struct(v.validate, update)
}
