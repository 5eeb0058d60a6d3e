package domain

import (
	"fmt"
	"time"
)

// dateLayout is the persisted form of a Date.
const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component. Due dates are
// local calendar entries, not instants.
type Date struct {
	t time.Time // midnight UTC of the calendar day
}

// NewDate builds the given calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// LocalDateOf returns the calendar date of the instant in local time.
func LocalDateOf(instant time.Time) Date {
	y, m, d := instant.Local().Date()
	return NewDate(y, m, d)
}

// Today returns the current local calendar date.
func Today() Date {
	return LocalDateOf(time.Now())
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date: %q", s)
	}
	return Date{t: t}, nil
}

func (d Date) String() string {
	return d.t.Format(dateLayout)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the number of whole days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t) / (24 * time.Hour))
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}
