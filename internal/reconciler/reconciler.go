package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/metrics"
	"github.com/jmerritt/crewclock-backend/internal/notifications"
	"github.com/jmerritt/crewclock-backend/internal/orgtime"
)

type Config struct {
	CutoffHour    int           // local wall-clock hour of the sweep, e.g. 19
	CutoffMinute  int
	LedgerTimeout time.Duration // budget per ledger so one stuck ledger cannot stall the sweep
	MaxRetries    int           // extra attempts on store unavailability
	Concurrency   int
}

// AutoCloser is the reconciliation job that force-closes punches left open
// past the cutoff. It is a repair operation for forgotten clock-outs, not a
// shift-length rule: it closes punches through the exact same ClockOut path
// as a manual punch, with the cutoff as the synthetic timestamp, so the
// single-open-punch invariant and idempotency come for free.
//
// The job owns its schedule explicitly: Start registers a cron trigger at
// the configured local time in the organizational timezone, Stop tears it
// down.
type AutoCloser struct {
	engine *clock.Engine
	store  clock.LedgerStore
	days   *orgtime.Resolver
	notify *notifications.Sender
	cfg    Config

	mu     sync.Mutex
	sched  quartz.Scheduler
	cancel context.CancelFunc
}

func New(engine *clock.Engine, store clock.LedgerStore, days *orgtime.Resolver, notify *notifications.Sender, cfg Config) *AutoCloser {
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &AutoCloser{
		engine: engine,
		store:  store,
		days:   days,
		notify: notify,
		cfg:    cfg,
	}
}

// Start schedules the daily sweep. The cron trigger is pinned to the
// organizational timezone, so "19:00" tracks daylight-saving shifts.
func (a *AutoCloser) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sched != nil {
		fmt.Println("[SWEEP] Already running")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	sched := quartz.NewStdScheduler()
	sched.Start(runCtx)

	expr := fmt.Sprintf("0 %d %d * * *", a.cfg.CutoffMinute, a.cfg.CutoffHour)
	trigger, err := quartz.NewCronTriggerWithLoc(expr, a.days.Location())
	if err != nil {
		sched.Stop()
		cancel()
		return fmt.Errorf("cron trigger %q: %w", expr, err)
	}

	detail := quartz.NewJobDetail(a, quartz.NewJobKey("auto-clockout"))
	if err := sched.ScheduleJob(detail, trigger); err != nil {
		sched.Stop()
		cancel()
		return fmt.Errorf("schedule auto clock-out: %w", err)
	}

	a.sched = sched
	a.cancel = cancel
	fmt.Printf("[SWEEP] Scheduled daily at %02d:%02d %s\n",
		a.cfg.CutoffHour, a.cfg.CutoffMinute, a.days.Location())
	return nil
}

func (a *AutoCloser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sched == nil {
		return
	}
	a.sched.Stop()
	a.cancel()
	a.sched = nil
	a.cancel = nil
	fmt.Println("[SWEEP] Stopped")
}

func (a *AutoCloser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sched != nil
}

// Execute makes AutoCloser a quartz.Job.
func (a *AutoCloser) Execute(ctx context.Context) error {
	closed, failed, err := a.Sweep(ctx)
	if err != nil {
		fmt.Printf("[SWEEP] Sweep error: %v\n", err)
		return err
	}
	fmt.Printf("[SWEEP] Sweep done: closed %d, failed %d\n", closed, failed)
	return nil
}

func (a *AutoCloser) Description() string {
	return "daily auto clock-out sweep"
}

// Sweep closes every punch still open at the cutoff for today's
// organizational date. Running it again immediately is a no-op: once closed,
// a punch no longer satisfies ClockOut's open-punch precondition. Individual
// ledger failures are counted and skipped, never fatal to the sweep.
func (a *AutoCloser) Sweep(ctx context.Context) (closed, failed int, err error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	today := a.days.Today()
	cutoff, err := a.days.Cutoff(today, a.cfg.CutoffHour, a.cfg.CutoffMinute)
	if err != nil {
		return 0, 0, err
	}

	var ids []string
	err = a.withRetry(ctx, func() error {
		var lerr error
		ids, lerr = a.store.OpenEmployees(ctx)
		return lerr
	})
	if err != nil {
		metrics.SweepFailures.Inc()
		return 0, 0, fmt.Errorf("list open ledgers: %w", err)
	}

	if len(ids) == 0 {
		fmt.Printf("[SWEEP] No open punches at %s\n", cutoff.Format(time.RFC3339))
		return 0, 0, nil
	}
	fmt.Printf("[SWEEP] Closing up to %d open punches at cutoff %s\n", len(ids), cutoff.Format(time.RFC3339))

	var closedN, failedN atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(ctx, a.cfg.LedgerTimeout)
			defer cancel()

			cerr := a.withRetry(lctx, func() error {
				_, e := a.engine.ClockOut(lctx, id, cutoff)
				return e
			})
			switch {
			case cerr == nil:
				closedN.Add(1)
				metrics.AutoCloses.Inc()
				fmt.Printf("[SWEEP] Automatic clock-out for employee %s\n", id)
				if a.notify != nil {
					a.notify.Send(fmt.Sprintf("Automatic clock-out for employee %s at %s", id, cutoff.In(a.days.Location()).Format("3:04 PM")))
				}
			case errors.Is(cerr, clock.ErrNoOpenPunch):
				// Closed in the meantime, or opened after the cutoff.
				fmt.Printf("[SWEEP] Skipping employee %s: no closable punch\n", id)
			default:
				failedN.Add(1)
				metrics.SweepFailures.Inc()
				fmt.Printf("[SWEEP] Failed to close ledger %s: %v\n", id, cerr)
			}
			// One ledger's failure never aborts the remaining ledgers.
			return nil
		})
	}
	_ = g.Wait()

	return int(closedN.Load()), int(failedN.Load()), nil
}

// withRetry retries fn on store unavailability only, up to MaxRetries extra
// attempts with linear backoff. Business-rule errors pass through untouched.
func (a *AutoCloser) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, clock.ErrStoreUnavailable) {
			return lastErr
		}
	}
	return lastErr
}
