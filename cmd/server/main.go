package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerritt/crewclock-backend/internal/api"
	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/config"
	"github.com/jmerritt/crewclock-backend/internal/db"
	"github.com/jmerritt/crewclock-backend/internal/notifications"
	"github.com/jmerritt/crewclock-backend/internal/orgtime"
	"github.com/jmerritt/crewclock-backend/internal/reconciler"
	"github.com/jmerritt/crewclock-backend/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║     CrewClock Time Engine v0.3       ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	days, err := orgtime.NewResolver(cfg.OrgTimezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timezone error: %v\n", err)
		os.Exit(1)
	}

	// Store selection: Postgres when credentials are configured, otherwise
	// the in-memory ledger with a seeded demo crew.
	var (
		store  clock.LedgerStore
		dir    clock.Directory
		roster api.EmployeeLister
		pool   *pgxpool.Pool
	)
	if cfg.DBUser != "" {
		fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err = db.Connect(cfg.DSN())
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}()

		if err := db.TestConnection(pool); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
			os.Exit(1)
		}
		if err := db.EnsureSchema(pool); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Schema setup failed: %v\n", err)
			os.Exit(1)
		}

		repo := repository.NewEmployeeRepo(pool)
		store = repository.NewLedgerRepo(pool)
		dir = repo
		roster = repo
	} else {
		memDir := repository.NewMemoryDirectory()
		for _, emp := range memDir.SeedDemo() {
			fmt.Printf("[STORE] Seeded demo employee %s (badge %d): %s\n", emp.Name, emp.BadgeID, emp.ID)
		}
		store = repository.NewMemoryLedger()
		dir = memDir
		roster = memDir
	}

	engine := clock.NewEngine(store)
	agg := clock.NewAggregator(store, dir, days)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(engine, agg, days, roster, pool, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Auto clock-out reconciler
	closer := reconciler.New(engine, store, days, notify, reconciler.Config{
		CutoffHour:    cfg.AutoClockoutHour,
		CutoffMinute:  cfg.AutoClockoutMinute,
		LedgerTimeout: cfg.SweepLedgerTimeout,
		MaxRetries:    cfg.SweepMaxRetries,
		Concurrency:   cfg.SweepConcurrency,
	})
	if err := closer.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[SWEEP] Start failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	closer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
