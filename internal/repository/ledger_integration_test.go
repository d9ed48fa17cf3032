package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/db"
	"github.com/jmerritt/crewclock-backend/internal/models"
	"github.com/jmerritt/crewclock-backend/internal/repository"
	"github.com/jmerritt/crewclock-backend/internal/testutil"
)

// ---------- LedgerRepo ----------

func TestLedgerRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	if err := db.EnsureSchema(pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	repo := repository.NewLedgerRepo(pool)
	ctx := context.Background()

	employeeID := "it-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM punches WHERE employee_id = $1", employeeID)
	})

	in := time.Now().Add(-2 * time.Hour).Truncate(time.Microsecond)

	// OpenPunch
	p, err := repo.OpenPunch(ctx, employeeID, in)
	if err != nil {
		t.Fatalf("OpenPunch: %v", err)
	}
	if p.ID == 0 || !p.Open() {
		t.Fatalf("expected open punch with id, got %+v", p)
	}
	t.Logf("Opened punch: id=%d in=%s", p.ID, p.ClockIn.Format(time.RFC3339))

	// Second open must hit the partial unique index.
	if _, err := repo.OpenPunch(ctx, employeeID, in.Add(time.Minute)); !errors.Is(err, clock.ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}

	// LatestPunch
	latest, ok, err := repo.LatestPunch(ctx, employeeID)
	if err != nil || !ok {
		t.Fatalf("LatestPunch: ok=%v err=%v", ok, err)
	}
	if !latest.Open() {
		t.Fatalf("latest should be open: %+v", latest)
	}

	// Close before clock-in is rejected by the clock_in < $2 guard.
	if _, err := repo.ClosePunch(ctx, employeeID, in.Add(-time.Minute)); !errors.Is(err, clock.ErrNoOpenPunch) {
		t.Fatalf("expected ErrNoOpenPunch for pre-dated close, got %v", err)
	}

	// ClosePunch
	out := in.Add(90 * time.Minute)
	closed, err := repo.ClosePunch(ctx, employeeID, out)
	if err != nil {
		t.Fatalf("ClosePunch: %v", err)
	}
	if closed.TotalHours == nil || *closed.TotalHours < 1.49 || *closed.TotalHours > 1.51 {
		t.Fatalf("expected 1.5 hours, got %+v", closed.TotalHours)
	}
	t.Logf("Closed punch: id=%d hours=%.2f", closed.ID, *closed.TotalHours)

	// Idempotent close
	if _, err := repo.ClosePunch(ctx, employeeID, out.Add(time.Hour)); !errors.Is(err, clock.ErrNoOpenPunch) {
		t.Fatalf("expected ErrNoOpenPunch on re-close, got %v", err)
	}

	// PunchesBetween
	punches, err := repo.PunchesBetween(ctx, employeeID, in.Add(-time.Hour), out)
	if err != nil {
		t.Fatalf("PunchesBetween: %v", err)
	}
	if len(punches) != 1 {
		t.Fatalf("expected 1 punch in window, got %d", len(punches))
	}

	// LedgersBetween
	ledgers, err := repo.LedgersBetween(ctx, in.Add(-time.Hour), out)
	if err != nil {
		t.Fatalf("LedgersBetween: %v", err)
	}
	if len(ledgers[employeeID]) != 1 {
		t.Fatalf("expected ledger entry for %s, got %v", employeeID, ledgers)
	}
}

func TestLedgerRepo_ConcurrentOpen(t *testing.T) {
	pool := testutil.SetupPool(t)
	if err := db.EnsureSchema(pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	repo := repository.NewLedgerRepo(pool)
	ctx := context.Background()

	employeeID := "it-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM punches WHERE employee_id = $1", employeeID)
	})

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	at := time.Now()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.OpenPunch(ctx, employeeID, at)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		} else if !errors.Is(err, clock.ErrAlreadyClockedIn) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one winner, got %d", ok)
	}
	t.Logf("Concurrent opens against Postgres: 1 winner of %d", workers)
}

// ---------- EmployeeRepo ----------

func TestEmployeeRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	if err := db.EnsureSchema(pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	repo := repository.NewEmployeeRepo(pool)
	ctx := context.Background()

	badge := int(time.Now().UnixNano() % 1_000_000)
	emp := models.Employee{
		ID:      "it-" + uuid.NewString(),
		Name:    fmt.Sprintf("Integration Tester %d", badge),
		BadgeID: badge,
	}
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM employees WHERE id = $1", emp.ID)
	})

	if err := repo.Save(ctx, emp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Lookup(ctx, emp.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != emp {
		t.Fatalf("lookup mismatch: got %+v want %+v", got, emp)
	}

	// Save is an upsert.
	emp.Name = "Renamed Tester"
	if err := repo.Save(ctx, emp); err != nil {
		t.Fatalf("Save (update): %v", err)
	}
	got, _ = repo.Lookup(ctx, emp.ID)
	if got.Name != "Renamed Tester" {
		t.Fatalf("upsert did not apply: %+v", got)
	}

	if _, err := repo.Lookup(ctx, "it-missing-"+uuid.NewString()); !errors.Is(err, clock.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}
