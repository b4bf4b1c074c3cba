// Package calendar decides what "now" and "today" mean for the storefront.
//
// Daily stock and the one-reservation-per-day rule are keyed by calendar day
// in a single configured time zone. Days are represented as midnight UTC
// values carrying that zone's year, month and day, which is how PostgreSQL
// DATE columns round-trip through pgx.
package calendar

import "time"

type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a calendar for loc backed by the wall clock.
func New(loc *time.Location) *Calendar {
	return NewWithClock(loc, time.Now)
}

// NewWithClock returns a calendar with a custom clock, used by tests.
func NewWithClock(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current calendar day.
func (c *Calendar) Today() time.Time {
	return c.Day(c.now())
}

// Day returns the calendar day t falls on in the configured zone.
func (c *Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
