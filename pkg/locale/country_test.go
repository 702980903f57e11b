package locale

import "testing"

func TestCountryForPhone(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		wantCode string
	}{
		{name: "Israel mobile", phone: "+972502345678", wantCode: "IL"},
		{name: "US number", phone: "+16502530000", wantCode: "US"},
		{name: "surrounding spaces", phone: "  +16502530000 ", wantCode: "US"},
		{name: "UK is not supported", phone: "+442071838750"},
		{name: "unassigned Israeli range", phone: "+972541234567"},
		{name: "missing plus", phone: "16502530000"},
		{name: "garbage", phone: "call me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountryForPhone(tt.phone)
			if tt.wantCode == "" {
				if got != nil {
					t.Errorf("CountryForPhone(%q) = %+v, want nil", tt.phone, got)
				}
				return
			}
			if got == nil || got.Code != tt.wantCode {
				t.Errorf("CountryForPhone(%q) = %+v, want %s", tt.phone, got, tt.wantCode)
			}
		})
	}
}

func TestRegionsFollowCountries(t *testing.T) {
	regions := Regions()
	if len(regions) != len(Countries) || regions[0] != "US" || regions[1] != "IL" {
		t.Errorf("Regions() = %v", regions)
	}
}
