package sanitizer

import (
	"strings"

	"roombook/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	// Numbers without a leading + are tried against each region in order.
	for _, region := range locale.Regions() {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}
