package sanitizer

import "roombook/pkg/model"

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func applyPtr(s *string, p Pipeline) {
	if s != nil {
		*s = p.Apply(*s)
	}
}

func SanitizeRoom(r *model.Room) {
	r.Name = NormalizeName(r.Name)
}

func SanitizeRoomUpdate(u *model.RoomUpdate) {
	applyPtr(u.Name, Pipeline{NormalizeName})
}

// SanitizeCustomer leaves an unparseable phone empty only when the input was
// empty; otherwise the raw value is kept so validation can reject it.
func SanitizeCustomer(c *model.Customer) {
	c.Email = NormalizeEmail(c.Email)
	c.Name = NormalizeName(c.Name)
	c.Phone = phoneOrRaw(c.Phone)
}

func SanitizeCustomerUpdate(u *model.CustomerUpdate) {
	applyPtr(u.Email, Pipeline{NormalizeEmail})
	applyPtr(u.Name, Pipeline{NormalizeName})
	applyPtr(u.Phone, Pipeline{phoneOrRaw})
}

func phoneOrRaw(phone string) string {
	if normalized := NormalizePhone(phone); normalized != "" {
		return normalized
	}
	return TrimAndNormalize(phone)
}
