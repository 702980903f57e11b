package booking

import "time"

// Interval is the half-open range [Start, End) in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both ends to UTC at millisecond precision, the
// resolution every backend stores.
func NewInterval(start, end time.Time) Interval {
	return Interval{
		Start: start.UTC().Truncate(time.Millisecond),
		End:   end.UTC().Truncate(time.Millisecond),
	}
}

// Overlaps reports whether the two intervals share at least one instant.
// Back-to-back intervals do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

// ValidateInterval checks temporal sanity against the supplied instant.
func ValidateInterval(iv Interval, now time.Time) error {
	if err := validateOrder(iv); err != nil {
		return err
	}
	return validateNotPast(iv, now)
}

func validateOrder(iv Interval) error {
	if !iv.Start.Before(iv.End) {
		return invalidIntervalError()
	}
	return nil
}

func validateNotPast(iv Interval, now time.Time) error {
	if iv.Start.Before(now) {
		return pastIntervalError()
	}
	return nil
}
