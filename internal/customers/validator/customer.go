package validator

import (
	"errors"

	"roombook/pkg/logger"
	"roombook/pkg/model"
	"roombook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type CustomerValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCustomerValidator(log *logger.Logger) *CustomerValidator {
	return &CustomerValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *CustomerValidator) Validate(c *model.Customer) error {
	return validation.Struct(v.validate, c)
}

// ValidateUpdate accepts an empty phone, which clears it.
func (v *CustomerValidator) ValidateUpdate(u *model.CustomerUpdate) error {
	if u.Email == nil && u.Name == nil && u.Phone == nil {
		return validation.ValidationErrors{{Field: "body", Message: "at least one of email, name or phone is required"}}
	}
	if err := validation.Struct(v.validate, u); err != nil {
		return err
	}
	if u.Phone != nil && *u.Phone != "" {
		if err := v.validate.Var(*u.Phone, "e164,"+validation.TagSupportedRegion); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && fieldErrs[0].Tag() == validation.TagSupportedRegion {
				return validation.ValidationErrors{{Field: "phone", Message: "phone must be a phone number from a supported country"}}
			}
			return validation.ValidationErrors{{Field: "phone", Message: "phone must be a valid phone number in E.164 format (e.g., +16502530000)"}}
		}
	}
	return nil
}
