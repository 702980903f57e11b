package validation

import (
	"errors"
	"net/http"
	"testing"

	apperrors "roombook/pkg/errors"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Size  int    `json:"size" validate:"min=1,max=10"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		in         sample
		wantFields []string
	}{
		{name: "valid", in: sample{Email: "a@b.io", Size: 3}},
		{name: "missing email", in: sample{Size: 3}, wantFields: []string{"email"}},
		{name: "bad email and size", in: sample{Email: "nope", Size: 11}, wantFields: []string{"email", "size"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.in)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}

			var errs ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("Struct() error = %v, want ValidationErrors", err)
			}
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d: %v", len(errs), len(tt.wantFields), errs)
			}
			for i, f := range tt.wantFields {
				if errs[i].Field != f {
					t.Errorf("field[%d] = %q, want %q", i, errs[i].Field, f)
				}
			}
		})
	}
}

func TestToAppError(t *testing.T) {
	err := ToAppError("Room validation failed", ValidationErrors{{Field: "name", Message: "name is required"}})

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("ToAppError() = %v", err)
	}
	if appErr.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", appErr.StatusCode())
	}
	if _, ok := appErr.Details["errors"]; !ok {
		t.Errorf("details = %v", appErr.Details)
	}
}
