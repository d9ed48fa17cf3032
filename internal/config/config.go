package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Organization
	OrgTimezone string
	AppName     string

	// Auto clock-out sweep
	AutoClockoutHour   int
	AutoClockoutMinute int
	SweepLedgerTimeout time.Duration
	SweepMaxRetries    int
	SweepConcurrency   int

	// Database (empty DB_USER selects the in-memory store)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string

	// Notifications
	WebhookURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OrgTimezone: envStr("ORG_TIMEZONE", "America/New_York"),
		AppName:     envStr("APP_NAME", "CrewClock"),

		AutoClockoutHour:   envInt("AUTO_CLOCKOUT_HOUR", 19),
		AutoClockoutMinute: envInt("AUTO_CLOCKOUT_MINUTE", 0),
		SweepLedgerTimeout: time.Duration(envInt("SWEEP_LEDGER_TIMEOUT_SECONDS", 5)) * time.Second,
		SweepMaxRetries:    envInt("SWEEP_MAX_RETRIES", 2),
		SweepConcurrency:   envInt("SWEEP_CONCURRENCY", 4),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "crewclock"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		APIPort:         envInt("API_PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		WebhookURL: envStr("WEBHOOK_URL", ""),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if _, err := time.LoadLocation(c.OrgTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("ORG_TIMEZONE %q is not a valid tzdata name", c.OrgTimezone))
	}
	if c.AutoClockoutHour < 0 || c.AutoClockoutHour > 23 {
		errs = append(errs, "AUTO_CLOCKOUT_HOUR must be 0-23")
	}
	if c.AutoClockoutMinute < 0 || c.AutoClockoutMinute > 59 {
		errs = append(errs, "AUTO_CLOCKOUT_MINUTE must be 0-59")
	}
	if c.SweepConcurrency < 1 {
		errs = append(errs, "SWEEP_CONCURRENCY must be at least 1")
	}
	if c.DBUser == "" {
		fmt.Println("[WARN] DB_USER not set, using in-memory store (punches do not survive restarts)")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set, REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== CrewClock Time Engine Configuration ===")
	fmt.Printf("Organization timezone: %s\n", c.OrgTimezone)
	fmt.Printf("Auto clock-out: %02d:%02d local, daily\n", c.AutoClockoutHour, c.AutoClockoutMinute)
	fmt.Printf("Sweep: timeout/ledger %s, retries %d, concurrency %d\n",
		c.SweepLedgerTimeout, c.SweepMaxRetries, c.SweepConcurrency)
	if c.DBUser != "" {
		fmt.Printf("Store: postgres (%s:%d/%s)\n", c.DBHost, c.DBPort, c.DBName)
	} else {
		fmt.Println("Store: in-memory")
	}
	fmt.Printf("API port: %d\n", c.APIPort)
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("===========================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
