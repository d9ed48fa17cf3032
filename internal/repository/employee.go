package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/models"
)

// EmployeeRepo is the Postgres-backed employee directory. The engine only
// reads it; rows are managed by the back-office user administration.
type EmployeeRepo struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepo(pool *pgxpool.Pool) *EmployeeRepo {
	return &EmployeeRepo{pool: pool}
}

func (r *EmployeeRepo) Lookup(ctx context.Context, employeeID string) (models.Employee, error) {
	var emp models.Employee
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, badge_id FROM employees WHERE id = $1`,
		employeeID,
	).Scan(&emp.ID, &emp.Name, &emp.BadgeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, clock.ErrEmployeeNotFound
		}
		return models.Employee{}, storeErr("lookup employee", err)
	}
	return emp, nil
}

func (r *EmployeeRepo) Save(ctx context.Context, emp models.Employee) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO employees (id, name, badge_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, badge_id = EXCLUDED.badge_id`,
		emp.ID, emp.Name, emp.BadgeID,
	)
	if err != nil {
		return storeErr("save employee", err)
	}
	return nil
}

func (r *EmployeeRepo) List(ctx context.Context) ([]models.Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, badge_id FROM employees ORDER BY badge_id`,
	)
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var emp models.Employee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.BadgeID); err != nil {
			return nil, storeErr("list employees", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list employees", err)
	}
	return out, nil
}
