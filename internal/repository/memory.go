package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/models"
)

// MemoryLedger is the in-memory ledger store used when no database is
// configured, and by tests. Each employee's ledger carries its own mutex, so
// punches for one employee serialize against each other while unrelated
// employees proceed concurrently. Reads return deep copies, never aliases
// into live ledger state.
type MemoryLedger struct {
	mu      sync.RWMutex
	ledgers map[string]*memLedger
	nextID  atomic.Int64
}

type memLedger struct {
	mu      sync.Mutex
	punches []models.PunchCycle
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{ledgers: make(map[string]*memLedger)}
}

func (s *MemoryLedger) OpenPunch(_ context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	l := s.ledger(employeeID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.punches); n > 0 && l.punches[n-1].Open() {
		return models.PunchCycle{}, clock.ErrAlreadyClockedIn
	}

	p := models.PunchCycle{ID: s.nextID.Add(1), ClockIn: at}
	l.punches = append(l.punches, p)
	return clonePunch(p), nil
}

func (s *MemoryLedger) ClosePunch(_ context.Context, employeeID string, at time.Time) (models.PunchCycle, error) {
	l := s.ledger(employeeID)
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.punches)
	if n == 0 || !l.punches[n-1].Open() {
		return models.PunchCycle{}, clock.ErrNoOpenPunch
	}
	last := &l.punches[n-1]
	if !last.ClockIn.Before(at) {
		// Closing at or before the clock-in would break the ordering
		// invariant; treat the punch as not closable at this instant.
		return models.PunchCycle{}, clock.ErrNoOpenPunch
	}

	out := at
	hours := clock.Hours(last.ClockIn, at)
	last.ClockOut = &out
	last.TotalHours = &hours
	return clonePunch(*last), nil
}

func (s *MemoryLedger) LatestPunch(_ context.Context, employeeID string) (models.PunchCycle, bool, error) {
	s.mu.RLock()
	l, ok := s.ledgers[employeeID]
	s.mu.RUnlock()
	if !ok {
		return models.PunchCycle{}, false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.punches) == 0 {
		return models.PunchCycle{}, false, nil
	}
	return clonePunch(l.punches[len(l.punches)-1]), true, nil
}

func (s *MemoryLedger) PunchesBetween(_ context.Context, employeeID string, from, to time.Time) ([]models.PunchCycle, error) {
	s.mu.RLock()
	l, ok := s.ledgers[employeeID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return punchesInWindow(l.punches, from, to), nil
}

func (s *MemoryLedger) LedgersBetween(_ context.Context, from, to time.Time) (map[string][]models.PunchCycle, error) {
	s.mu.RLock()
	snapshot := make(map[string]*memLedger, len(s.ledgers))
	for id, l := range s.ledgers {
		snapshot[id] = l
	}
	s.mu.RUnlock()

	out := make(map[string][]models.PunchCycle)
	for id, l := range snapshot {
		l.mu.Lock()
		punches := punchesInWindow(l.punches, from, to)
		l.mu.Unlock()
		if len(punches) > 0 {
			out[id] = punches
		}
	}
	return out, nil
}

func (s *MemoryLedger) OpenEmployees(_ context.Context) ([]string, error) {
	s.mu.RLock()
	snapshot := make(map[string]*memLedger, len(s.ledgers))
	for id, l := range s.ledgers {
		snapshot[id] = l
	}
	s.mu.RUnlock()

	var ids []string
	for id, l := range snapshot {
		l.mu.Lock()
		if n := len(l.punches); n > 0 && l.punches[n-1].Open() {
			ids = append(ids, id)
		}
		l.mu.Unlock()
	}
	sort.Strings(ids)
	return ids, nil
}

// ledger returns the employee's ledger, creating it on first clock-in.
func (s *MemoryLedger) ledger(employeeID string) *memLedger {
	s.mu.RLock()
	l, ok := s.ledgers[employeeID]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ledgers[employeeID]; ok {
		return l
	}
	l = &memLedger{}
	s.ledgers[employeeID] = l
	return l
}

func punchesInWindow(punches []models.PunchCycle, from, to time.Time) []models.PunchCycle {
	var out []models.PunchCycle
	for _, p := range punches {
		if p.ClockIn.Before(from) || p.ClockIn.After(to) {
			continue
		}
		out = append(out, clonePunch(p))
	}
	return out
}

func clonePunch(p models.PunchCycle) models.PunchCycle {
	c := models.PunchCycle{ID: p.ID, ClockIn: p.ClockIn}
	if p.ClockOut != nil {
		out := *p.ClockOut
		c.ClockOut = &out
	}
	if p.TotalHours != nil {
		h := *p.TotalHours
		c.TotalHours = &h
	}
	return c
}

// MemoryDirectory is the in-memory employee directory counterpart.
type MemoryDirectory struct {
	mu        sync.RWMutex
	employees map[string]models.Employee
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{employees: make(map[string]models.Employee)}
}

func (d *MemoryDirectory) Lookup(_ context.Context, employeeID string) (models.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if emp, ok := d.employees[employeeID]; ok {
		return emp, nil
	}
	return models.Employee{}, clock.ErrEmployeeNotFound
}

func (d *MemoryDirectory) Save(_ context.Context, emp models.Employee) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[emp.ID] = emp
	return nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]models.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Employee, 0, len(d.employees))
	for _, emp := range d.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

// SeedDemo populates the directory with a demo crew for memory-store runs.
func (d *MemoryDirectory) SeedDemo() []models.Employee {
	demo := []struct {
		name  string
		badge int
	}{
		{"Dana Whitfield", 1001},
		{"Marcus Lee", 1002},
		{"Priya Raman", 1003},
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Employee, 0, len(demo))
	for _, e := range demo {
		emp := models.Employee{ID: uuid.NewString(), Name: e.name, BadgeID: e.badge}
		d.employees[emp.ID] = emp
		out = append(out, emp)
	}
	return out
}
