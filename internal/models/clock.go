package models

import "time"

// PunchCycle is one clock-in paired with an optional clock-out. A cycle with
// no clock-out is "open". ClockIn is immutable once recorded; ClockOut and
// TotalHours are set together when the cycle closes.
type PunchCycle struct {
	ID         int64      `json:"id,omitempty"`
	ClockIn    time.Time  `json:"clockInTime"`
	ClockOut   *time.Time `json:"clockOutTime,omitempty"`
	TotalHours *float64   `json:"totalHours,omitempty"`
}

// Open reports whether the cycle has no clock-out yet.
func (p PunchCycle) Open() bool {
	return p.ClockOut == nil
}

// ClockLedger is the ordered punch history for one employee, ascending by
// clock-in time. At most one punch in a ledger is open at any time.
type ClockLedger struct {
	EmployeeID string       `json:"employeeId"`
	Punches    []PunchCycle `json:"punches"`
}

// Employee is the directory identity attached to summaries. BadgeID is the
// numeric id employees key in at the register.
type Employee struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BadgeID int    `json:"badgeId"`
}

// ClockStatus is the derived state of an employee's ledger.
type ClockStatus struct {
	ClockedIn bool       `json:"clockedIn"`
	ClockIn   *time.Time `json:"clockInTime,omitempty"`
}

// DaySummary aggregates one employee's punches for a single organizational
// calendar day. TotalHours sums closed punches only; an open punch counts as
// zero until it closes.
type DaySummary struct {
	EmployeeID     string       `json:"employeeId"`
	DisplayName    string       `json:"displayName,omitempty"`
	BadgeID        int          `json:"badgeId,omitempty"`
	Date           string       `json:"date"`
	ClockedIn      bool         `json:"clockedIn"`
	LatestClockIn  *time.Time   `json:"latestClockIn,omitempty"`
	LatestClockOut *time.Time   `json:"latestClockOut,omitempty"`
	TotalHours     float64      `json:"totalHours"`
	Punches        []PunchCycle `json:"punches"`
}
