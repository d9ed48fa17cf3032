package orgtime

import (
	"fmt"
	"time"
)

const dayFormat = "2006-01-02"

// Resolver maps calendar dates to instants in the single organizational
// timezone. Every "today" and cutoff computation in the service goes through
// it, so day boundaries mean the same thing regardless of the host clock.
//
// All lookups are tzdata-driven rather than fixed-offset arithmetic, which
// keeps them correct across daylight-saving transitions.
type Resolver struct {
	loc *time.Location
}

// NewResolver loads the named timezone (e.g. "America/New_York").
func NewResolver(name string) (*Resolver, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Resolver{loc: loc}, nil
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// StartOfDay returns the instant of 00:00:00.000 local wall-clock time on
// the given YYYY-MM-DD date.
func (r *Resolver) StartOfDay(date string) (time.Time, error) {
	return r.Cutoff(date, 0, 0)
}

// EndOfDay returns the instant of 23:59:59.999 local wall-clock time on the
// given YYYY-MM-DD date.
func (r *Resolver) EndOfDay(date string) (time.Time, error) {
	d, err := r.parseDay(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999*int(time.Millisecond), r.loc), nil
}

// Cutoff returns the instant of the given local wall-clock time on the given
// YYYY-MM-DD date. Times falling inside a spring-forward gap normalize to
// the equivalent instant after the jump.
func (r *Resolver) Cutoff(date string, hour, minute int) (time.Time, error) {
	d, err := r.parseDay(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, r.loc), nil
}

// DayOf returns the organizational calendar date (YYYY-MM-DD) an instant
// falls on.
func (r *Resolver) DayOf(t time.Time) string {
	return t.In(r.loc).Format(dayFormat)
}

// Today returns the current organizational calendar date.
func (r *Resolver) Today() string {
	return r.DayOf(time.Now())
}

func (r *Resolver) parseDay(date string) (time.Time, error) {
	d, err := time.ParseInLocation(dayFormat, date, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	return d, nil
}
