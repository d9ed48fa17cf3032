package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/models"
	"github.com/jmerritt/crewclock-backend/internal/orgtime"
)

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// EmployeeLister is the roster view of the employee directory.
type EmployeeLister interface {
	List(ctx context.Context) ([]models.Employee, error)
}

// Server is the thin JSON layer over the time-clock engine. Auth happens
// upstream; the employee id in the path is trusted the way the original
// session middleware left it.
type Server struct {
	engine     *clock.Engine
	agg        *clock.Aggregator
	days       *orgtime.Resolver
	roster     EmployeeLister
	pool       *pgxpool.Pool // nil when running on the in-memory store
	httpServer *http.Server
	apiKey     string
}

func NewServer(engine *clock.Engine, agg *clock.Aggregator, days *orgtime.Resolver, roster EmployeeLister, pool *pgxpool.Pool, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		engine: engine,
		agg:    agg,
		days:   days,
		roster: roster,
		pool:   pool,
		apiKey: apiKey,
	}

	mux := http.NewServeMux()

	// Punch routes
	mux.HandleFunc("POST /v1/clock/{id}/in", s.handleClockIn)
	mux.HandleFunc("POST /v1/clock/{id}/out", s.handleClockOut)
	mux.HandleFunc("GET /v1/clock/{id}/status", s.handleStatus)

	// Summary routes
	mux.HandleFunc("GET /v1/clock/{id}/summary/today", s.handleEmployeeSummaryToday)
	mux.HandleFunc("GET /v1/clock/{id}/summary/day/{date}", s.handleEmployeeSummaryByDay)
	mux.HandleFunc("GET /v1/clock/summary/today", s.handleOrgSummaryToday)
	mux.HandleFunc("GET /v1/clock/summary/day/{date}", s.handleOrgSummaryByDay)

	// Directory routes
	mux.HandleFunc("GET /v1/employees", s.handleEmployees)

	// Ops routes (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
