package clock

import "errors"

var (
	// ErrAlreadyClockedIn rejects a clock-in while the employee's latest
	// punch is still open.
	ErrAlreadyClockedIn = errors.New("already clocked in")

	// ErrNoOpenPunch rejects a clock-out when the employee has no ledger or
	// the latest punch is already closed.
	ErrNoOpenPunch = errors.New("no open punch to close")

	// ErrEmployeeNotFound signals a failed directory lookup during summary
	// enrichment.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrStoreUnavailable wraps persistence failures. Sweep operations retry
	// it a bounded number of times; everything else surfaces it as a service
	// failure.
	ErrStoreUnavailable = errors.New("clock store unavailable")
)
