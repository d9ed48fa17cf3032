package clock

import (
	"context"
	"errors"
	"time"

	"github.com/jmerritt/crewclock-backend/internal/metrics"
	"github.com/jmerritt/crewclock-backend/internal/models"
)

// LedgerStore is the persistence contract for punch ledgers. OpenPunch and
// ClosePunch must each apply their precondition check and write as one
// atomic operation per employee: two concurrent OpenPunch calls for the same
// employee must never both succeed. Different employees are independent and
// may be mutated concurrently.
type LedgerStore interface {
	// OpenPunch appends a new open punch for the employee, creating the
	// ledger on first use. Returns ErrAlreadyClockedIn if an open punch
	// already exists.
	OpenPunch(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error)

	// ClosePunch closes the employee's open punch at the given instant,
	// setting total hours. Returns ErrNoOpenPunch if there is no open punch
	// or the open punch began at/after the close instant.
	ClosePunch(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error)

	// LatestPunch returns the most recent punch and whether any exists.
	LatestPunch(ctx context.Context, employeeID string) (models.PunchCycle, bool, error)

	// PunchesBetween returns the employee's punches whose clock-in falls in
	// [from, to], ascending by clock-in time.
	PunchesBetween(ctx context.Context, employeeID string, from, to time.Time) ([]models.PunchCycle, error)

	// LedgersBetween returns, per employee, the punches whose clock-in falls
	// in [from, to]. Employees with no punches in the window are absent.
	LedgersBetween(ctx context.Context, from, to time.Time) (map[string][]models.PunchCycle, error)

	// OpenEmployees lists employees that currently have an open punch.
	OpenEmployees(ctx context.Context) ([]string, error)
}

// Directory resolves employee identity metadata for summaries.
type Directory interface {
	Lookup(ctx context.Context, employeeID string) (models.Employee, error)
}

// Engine is the punch state machine. State is derived from the ledger, never
// stored: an employee is clocked in exactly when their latest punch is open.
// Timestamps are injected by the caller so the reconciler can close punches
// with a synthetic cutoff instant through the same code path.
type Engine struct {
	store LedgerStore
}

func NewEngine(store LedgerStore) *Engine {
	return &Engine{store: store}
}

// ClockIn records a new open punch for the employee at the given instant.
func (e *Engine) ClockIn(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	p, err := e.store.OpenPunch(ctx, employeeID, at)
	if err != nil {
		if errors.Is(err, ErrAlreadyClockedIn) {
			metrics.RejectedPunches.WithLabelValues("already_clocked_in").Inc()
		}
		return models.PunchCycle{}, err
	}
	metrics.ClockIns.Inc()
	return p, nil
}

// ClockOut closes the employee's open punch at the given instant and
// computes total hours as (out - in) in hours, unrounded.
func (e *Engine) ClockOut(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	p, err := e.store.ClosePunch(ctx, employeeID, at)
	if err != nil {
		if errors.Is(err, ErrNoOpenPunch) {
			metrics.RejectedPunches.WithLabelValues("no_open_punch").Inc()
		}
		return models.PunchCycle{}, err
	}
	metrics.ClockOuts.Inc()
	return p, nil
}

// Status derives the employee's current state from their latest punch.
func (e *Engine) Status(ctx context.Context, employeeID string) (models.ClockStatus, error) {
	latest, ok, err := e.store.LatestPunch(ctx, employeeID)
	if err != nil {
		return models.ClockStatus{}, err
	}
	if !ok || !latest.Open() {
		return models.ClockStatus{ClockedIn: false}, nil
	}
	in := latest.ClockIn
	return models.ClockStatus{ClockedIn: true, ClockIn: &in}, nil
}

// Hours converts a punch duration to fractional hours.
func Hours(in, out time.Time) float64 {
	return out.Sub(in).Hours()
}
