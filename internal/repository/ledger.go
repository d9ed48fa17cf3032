package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/models"
)

// LedgerRepo persists punch ledgers in Postgres. The at-most-one-open-punch
// invariant is enforced by the store itself: a partial unique index on
// (employee_id) WHERE clock_out IS NULL makes the open-punch check and the
// insert a single atomic statement, so concurrent clock-ins for the same
// employee cannot both succeed.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) OpenPunch(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO punches (employee_id, clock_in)
		 VALUES ($1, $2)
		 ON CONFLICT (employee_id) WHERE clock_out IS NULL DO NOTHING
		 RETURNING id, clock_in, clock_out, total_hours`,
		employeeID, at,
	)
	p, err := scanPunch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PunchCycle{}, clock.ErrAlreadyClockedIn
		}
		return models.PunchCycle{}, storeErr("open punch", err)
	}
	return *p, nil
}

func (r *LedgerRepo) ClosePunch(ctx context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE punches
		 SET clock_out = $2,
		     total_hours = EXTRACT(EPOCH FROM ($2::timestamptz - clock_in)) / 3600.0
		 WHERE employee_id = $1 AND clock_out IS NULL AND clock_in < $2
		 RETURNING id, clock_in, clock_out, total_hours`,
		employeeID, at,
	)
	p, err := scanPunch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PunchCycle{}, clock.ErrNoOpenPunch
		}
		return models.PunchCycle{}, storeErr("close punch", err)
	}
	return *p, nil
}

func (r *LedgerRepo) LatestPunch(ctx context.Context, employeeID string) (models.PunchCycle, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, clock_in, clock_out, total_hours FROM punches
		 WHERE employee_id = $1 ORDER BY clock_in DESC LIMIT 1`,
		employeeID,
	)
	p, err := scanPunch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PunchCycle{}, false, nil
		}
		return models.PunchCycle{}, false, storeErr("latest punch", err)
	}
	return *p, true, nil
}

func (r *LedgerRepo) PunchesBetween(ctx context.Context, employeeID string, from, to time.Time) ([]models.PunchCycle, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, clock_in, clock_out, total_hours FROM punches
		 WHERE employee_id = $1 AND clock_in >= $2 AND clock_in <= $3
		 ORDER BY clock_in ASC`,
		employeeID, from, to,
	)
	if err != nil {
		return nil, storeErr("punches between", err)
	}
	defer rows.Close()
	return collectPunches(rows)
}

func (r *LedgerRepo) LedgersBetween(ctx context.Context, from, to time.Time) (map[string][]models.PunchCycle, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT employee_id, id, clock_in, clock_out, total_hours FROM punches
		 WHERE clock_in >= $1 AND clock_in <= $2
		 ORDER BY employee_id, clock_in ASC`,
		from, to,
	)
	if err != nil {
		return nil, storeErr("ledgers between", err)
	}
	defer rows.Close()

	out := make(map[string][]models.PunchCycle)
	for rows.Next() {
		var employeeID string
		var p models.PunchCycle
		if err := rows.Scan(&employeeID, &p.ID, &p.ClockIn, &p.ClockOut, &p.TotalHours); err != nil {
			return nil, storeErr("ledgers between", err)
		}
		out[employeeID] = append(out[employeeID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("ledgers between", err)
	}
	return out, nil
}

func (r *LedgerRepo) OpenEmployees(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT employee_id FROM punches WHERE clock_out IS NULL ORDER BY employee_id`,
	)
	if err != nil {
		return nil, storeErr("open employees", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("open employees", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("open employees", err)
	}
	return ids, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", clock.ErrStoreUnavailable, op, err)
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanPunch(row scannable) (*models.PunchCycle, error) {
	var p models.PunchCycle
	if err := row.Scan(&p.ID, &p.ClockIn, &p.ClockOut, &p.TotalHours); err != nil {
		return nil, err
	}
	return &p, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectPunches(rows rowsIter) ([]models.PunchCycle, error) {
	var out []models.PunchCycle
	for rows.Next() {
		var p models.PunchCycle
		if err := rows.Scan(&p.ID, &p.ClockIn, &p.ClockOut, &p.TotalHours); err != nil {
			return nil, storeErr("scan punch", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate punches", err)
	}
	return out, nil
}
