package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date wire and storage format.
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. The zero value means "unset".
// Because the layout is fixed-width, string comparison matches calendar order.
type Date string

// ParseDate validates s as a calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) String() string { return string(d) }

func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of d. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d > o }

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// DaysInclusive returns the number of calendar days in [from, to], or 0 when
// to is before from.
func DaysInclusive(from, to Date) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Time().Sub(from.Time()).Hours()/24) + 1
}
