// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DateLayout is the accepted input format for report dates.
const DateLayout = "2006-01-02"

// HeaderLayout renders a date the way the report header shows it, e.g. "Monday, January  1, 2024".
const HeaderLayout = "Monday, January _2, 2006"

var (
	// ErrInvalidDate is returned when a date string is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("not a valid date")
	// ErrInvalidRange is returned when the start date falls after the end date.
	ErrInvalidRange = errors.New("start date is after end date")
)

// DateRange is an inclusive UTC time window. End is always the last second of its calendar day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseDate parses a YYYY-MM-DD string as a UTC calendar day at midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, goerr.Wrap(ErrInvalidDate, "failed to parse date",
			goerr.V("input", s), goerr.V("layout", "YYYY-MM-DD"))
	}
	return t, nil
}

// ParseDateRange builds a DateRange from two YYYY-MM-DD strings.
// The end date is widened to 23:59:59 so that the whole day is included.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// NewDateRange builds a DateRange covering the calendar days of start through end.
// Both values are reduced to their UTC calendar day first.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := startOfDay(start)
	e := startOfDay(end).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	if s.After(e) {
		return DateRange{}, goerr.Wrap(ErrInvalidRange, "invalid date range",
			goerr.V("start", s.Format(DateLayout)), goerr.V("end", e.Format(DateLayout)))
	}
	return DateRange{Start: s, End: e}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t lies within the range. Both bounds are inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// String renders the range as it appears in the report header.
func (r DateRange) String() string {
	return r.Start.Format(HeaderLayout) + " and " + r.End.Format(HeaderLayout)
}
