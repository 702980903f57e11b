// Package locale lists the countries whose national phone formats are accepted
// for customer phones.
package locale

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type Country struct {
	Code string // ISO 3166-1 alpha-2, e.g. "IL", "US"
	Name string
}

// Countries is ordered by parse priority: a number without a leading + is read
// as a national number of the first country it is valid in.
var Countries = []Country{
	{Code: "US", Name: "United States"},
	{Code: "IL", Name: "Israel"},
}

func Regions() []string {
	out := make([]string, len(Countries))
	for i, c := range Countries {
		out[i] = c.Code
	}
	return out
}

// CountryForPhone returns the supported country an E.164 number belongs to, or
// nil when the number is invalid or from elsewhere.
func CountryForPhone(e164 string) *Country {
	parsed, err := phonenumbers.Parse(strings.TrimSpace(e164), "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return nil
	}
	region := phonenumbers.GetRegionCodeForNumber(parsed)
	for i := range Countries {
		if Countries[i].Code == region {
			return &Countries[i]
		}
	}
	return nil
}
