package domain

import (
	"time"
)

// DateLayout is the calendar-day format used for every persisted day.
const DateLayout = "2006-01-02"

const hoursPerDay = 24

// DateKey is a local calendar day in YYYY-MM-DD form.
type DateKey string

// NewDateKey returns the calendar day of t in t's own location.
// Callers convert t to the user's location first.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format(DateLayout))
}

// ParseDateKey validates s and returns it as a DateKey.
func ParseDateKey(s string) (DateKey, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", NewValidationErrorWithValue("date", "must be formatted as YYYY-MM-DD", s)
	}

	return DateKey(s), nil
}

// String implements fmt.Stringer.
func (d DateKey) String() string { return string(d) }

// Valid reports whether d is a well-formed calendar day.
func (d DateKey) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// Validate returns a validation error when d is malformed.
func (d DateKey) Validate() error {
	_, err := ParseDateKey(string(d))
	return err
}

// Time returns midnight UTC of the day. Invalid keys return the zero time.
func (d DateKey) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}

	return t
}

// AddDays returns the key n calendar days after d.
func (d DateKey) AddDays(n int) DateKey {
	return NewDateKey(d.Time().AddDate(0, 0, n))
}

// DaysSince returns the number of calendar days from earlier to d.
// Both keys are compared as UTC dates so DST shifts never skew the count.
func (d DateKey) DaysSince(earlier DateKey) int {
	return int(d.Time().Sub(earlier.Time()).Hours() / hoursPerDay)
}

// Before reports whether d is an earlier day than other.
func (d DateKey) Before(other DateKey) bool {
	return d.Time().Before(other.Time())
}
