// Package validation wraps go-playground/validator with the field error shape
// shared by the rooms, customers and reservations APIs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/locale"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// New returns a validator that reports JSON field names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation(TagSupportedRegion, supportedRegion)
	return v
}

// TagSupportedRegion accepts E.164 numbers from a country listed in pkg/locale.
const TagSupportedRegion = "supported_region"

func supportedRegion(fl validator.FieldLevel) bool {
	return locale.CountryForPhone(fl.Field().String()) != nil
}

// Struct validates s and returns ValidationErrors for field failures.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return Translate(fieldErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_without":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a valid phone number in E.164 format (e.g., +16502530000)", err.Field())
		case TagSupportedRegion:
			message = fmt.Sprintf("%s must be a phone number from a supported country (%s)", err.Field(), strings.Join(locale.Regions(), ", "))
		case "uuid", "uuid4":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "excluded_with":
			message = fmt.Sprintf("%s cannot be combined with %s", err.Field(), err.Param())
		}

		out = append(out, ValidationError{Field: err.Field(), Message: message})
	}
	return out
}

// ToAppError renders a validation failure as a 422 VALIDATION_ERROR.
func ToAppError(message string, err error) error {
	var fieldErrs ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation(message, map[string]any{"errors": []ValidationError(fieldErrs)})
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
