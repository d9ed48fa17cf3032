package clock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmerritt/crewclock-backend/internal/models"
	"github.com/jmerritt/crewclock-backend/internal/orgtime"
)

// Aggregator builds per-employee and organization-wide summaries for a
// calendar day in the organizational timezone. A punch belongs to the day
// its clock-in falls on; the clock-out may land on the next day.
type Aggregator struct {
	store LedgerStore
	dir   Directory
	days  *orgtime.Resolver
}

func NewAggregator(store LedgerStore, dir Directory, days *orgtime.Resolver) *Aggregator {
	return &Aggregator{store: store, dir: dir, days: days}
}

// SummarizeEmployee returns the employee's punches for the given day
// (YYYY-MM-DD) with identity metadata. No punches that day yields an empty
// summary, not an error.
func (a *Aggregator) SummarizeEmployee(ctx context.Context, employeeID, date string) (models.DaySummary, error) {
	from, to, err := a.window(date)
	if err != nil {
		return models.DaySummary{}, err
	}

	punches, err := a.store.PunchesBetween(ctx, employeeID, from, to)
	if err != nil {
		return models.DaySummary{}, err
	}

	emp, err := a.dir.Lookup(ctx, employeeID)
	if err != nil {
		return models.DaySummary{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, employeeID)
	}

	s := buildSummary(employeeID, date, punches)
	s.DisplayName = emp.Name
	s.BadgeID = emp.BadgeID
	return s, nil
}

// SummarizeAll returns a summary per employee with at least one punch that
// day, keyed by employee id. Employees with zero punches are omitted. A
// failed directory lookup degrades that entry's metadata instead of failing
// the whole result.
func (a *Aggregator) SummarizeAll(ctx context.Context, date string) (map[string]models.DaySummary, error) {
	from, to, err := a.window(date)
	if err != nil {
		return nil, err
	}

	ledgers, err := a.store.LedgersBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.DaySummary, len(ledgers))
	for employeeID, punches := range ledgers {
		s := buildSummary(employeeID, date, punches)
		if emp, err := a.dir.Lookup(ctx, employeeID); err == nil {
			s.DisplayName = emp.Name
			s.BadgeID = emp.BadgeID
		} else {
			fmt.Printf("[SUMMARY] No directory entry for employee %s: %v\n", employeeID, err)
		}
		out[employeeID] = s
	}
	return out, nil
}

// window resolves the [start, end] instants of an organizational day.
func (a *Aggregator) window(date string) (from, to time.Time, err error) {
	from, err = a.days.StartOfDay(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = a.days.EndOfDay(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func buildSummary(employeeID, date string, punches []models.PunchCycle) models.DaySummary {
	sort.Slice(punches, func(i, j int) bool {
		return punches[i].ClockIn.Before(punches[j].ClockIn)
	})

	s := models.DaySummary{
		EmployeeID: employeeID,
		Date:       date,
		Punches:    punches,
	}
	for _, p := range punches {
		if p.TotalHours != nil {
			s.TotalHours += *p.TotalHours
		}
	}
	if n := len(punches); n > 0 {
		latest := punches[n-1]
		in := latest.ClockIn
		s.LatestClockIn = &in
		s.LatestClockOut = latest.ClockOut
		s.ClockedIn = latest.Open()
	}
	return s
}
