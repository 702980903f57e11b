package sanitizer

import (
	"testing"

	"roombook/pkg/model"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Orion Room  ", want: "Orion Room"},
		{name: "multiple spaces between words", input: "Orion    Room", want: "Orion Room"},
		{name: "tabs and newlines", input: "Orion\t\nRoom", want: "Orion Room"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Café & Lounge™ ", want: "Café & Lounge™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeNameForComparison(t *testing.T) {
	if NormalizeNameForComparison("  ORION  room") != NormalizeNameForComparison("orion Room") {
		t.Error("names differing in case and spacing should compare equal")
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: " Ada@Example.COM ", want: "ada@example.com"},
		{input: "ada@example.com", want: "ada@example.com"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeEmail(tt.input); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeCustomer(t *testing.T) {
	c := &model.Customer{Email: " Ada@Example.com", Name: " Ada   Lovelace ", Phone: "+1 650 253 0000"}
	SanitizeCustomer(c)

	if c.Email != "ada@example.com" || c.Name != "Ada Lovelace" || c.Phone != "+16502530000" {
		t.Errorf("SanitizeCustomer() = %+v", c)
	}

	bad := &model.Customer{Phone: " not a phone "}
	SanitizeCustomer(bad)
	if bad.Phone != "not a phone" {
		t.Errorf("invalid phone should be kept for validation, got %q", bad.Phone)
	}
}

func TestSanitizeUpdates(t *testing.T) {
	name, email := "  Big   Room ", " X@Y.IO "
	ru := &model.RoomUpdate{Name: &name}
	SanitizeRoomUpdate(ru)
	if *ru.Name != "Big Room" {
		t.Errorf("room name = %q", *ru.Name)
	}

	cu := &model.CustomerUpdate{Email: &email}
	SanitizeCustomerUpdate(cu)
	if *cu.Email != "x@y.io" || cu.Name != nil {
		t.Errorf("customer update = %+v", cu)
	}
}
