package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmerritt/crewclock-backend/internal/clock"
	"github.com/jmerritt/crewclock-backend/internal/models"
)

// Instants render as organizational-local wall-clock strings ("h:mm A") at
// this edge only; the engine itself deals in absolute instants.
const clockDisplay = "3:04 PM"

type punchJSON struct {
	ClockInTime  string   `json:"clockInTime"`
	ClockOutTime *string  `json:"clockOutTime"`
	TotalHours   *float64 `json:"totalHours"`
}

type statusJSON struct {
	ClockedIn   bool   `json:"clockedIn"`
	ClockInTime string `json:"clockInTime,omitempty"`
}

type employeeSummaryJSON struct {
	EmployeeID string      `json:"employeeId"`
	Date       string      `json:"date"`
	ClockedIn  bool        `json:"clockedIn"`
	TotalHours float64     `json:"totalHours"`
	Punches    []punchJSON `json:"punches"`
}

type orgSummaryEntryJSON struct {
	DisplayName    string      `json:"displayName"`
	BadgeID        int         `json:"badgeId"`
	ClockedIn      bool        `json:"clockedIn"`
	LatestClockIn  *string     `json:"latestClockIn"`
	LatestClockOut *string     `json:"latestClockOut"`
	TotalHours     float64     `json:"totalHours"`
	Punches        []punchJSON `json:"punches"`
}

func (s *Server) handleClockIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := s.engine.ClockIn(r.Context(), id, time.Now())
	if err != nil {
		s.writeClockError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Clock-in successful",
		"clockedIn":   true,
		"clockInTime": s.localTime(p.ClockIn),
	})
}

func (s *Server) handleClockOut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := s.engine.ClockOut(r.Context(), id, time.Now())
	if err != nil {
		s.writeClockError(w, err)
		return
	}

	resp := map[string]any{
		"message":     "Clock-out successful",
		"clockedOut":  true,
		"clockInTime": s.localTime(p.ClockIn),
	}
	if p.ClockOut != nil {
		resp["clockOutTime"] = s.localTime(*p.ClockOut)
	}
	if p.TotalHours != nil {
		resp["totalHours"] = *p.TotalHours
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	st, err := s.engine.Status(r.Context(), id)
	if err != nil {
		s.writeClockError(w, err)
		return
	}

	out := statusJSON{ClockedIn: st.ClockedIn}
	if st.ClockIn != nil {
		out.ClockInTime = s.localTime(*st.ClockIn)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEmployeeSummaryToday(w http.ResponseWriter, r *http.Request) {
	s.employeeSummary(w, r, s.days.Today())
}

func (s *Server) handleEmployeeSummaryByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}
	s.employeeSummary(w, r, date)
}

func (s *Server) employeeSummary(w http.ResponseWriter, r *http.Request, date string) {
	id := r.PathValue("id")

	sum, err := s.agg.SummarizeEmployee(r.Context(), id, date)
	if err != nil {
		s.writeClockError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, employeeSummaryJSON{
		EmployeeID: sum.EmployeeID,
		Date:       sum.Date,
		ClockedIn:  sum.ClockedIn,
		TotalHours: sum.TotalHours,
		Punches:    s.renderPunches(sum.Punches),
	})
}

func (s *Server) handleOrgSummaryToday(w http.ResponseWriter, r *http.Request) {
	s.orgSummary(w, r, s.days.Today())
}

func (s *Server) handleOrgSummaryByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}
	s.orgSummary(w, r, date)
}

func (s *Server) orgSummary(w http.ResponseWriter, r *http.Request, date string) {
	sums, err := s.agg.SummarizeAll(r.Context(), date)
	if err != nil {
		s.writeClockError(w, err)
		return
	}

	out := make(map[string]orgSummaryEntryJSON, len(sums))
	for id, sum := range sums {
		entry := orgSummaryEntryJSON{
			DisplayName: sum.DisplayName,
			BadgeID:     sum.BadgeID,
			ClockedIn:   sum.ClockedIn,
			TotalHours:  sum.TotalHours,
			Punches:     s.renderPunches(sum.Punches),
		}
		if sum.LatestClockIn != nil {
			v := s.localTime(*sum.LatestClockIn)
			entry.LatestClockIn = &v
		}
		if sum.LatestClockOut != nil {
			v := s.localTime(*sum.LatestClockOut)
			entry.LatestClockOut = &v
		}
		out[id] = entry
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	crew, err := s.roster.List(r.Context())
	if err != nil {
		s.writeClockError(w, err)
		return
	}
	if crew == nil {
		crew = []models.Employee{}
	}
	writeJSON(w, http.StatusOK, crew)
}

func (s *Server) renderPunches(punches []models.PunchCycle) []punchJSON {
	out := make([]punchJSON, len(punches))
	for i, p := range punches {
		out[i] = punchJSON{
			ClockInTime: s.localTime(p.ClockIn),
			TotalHours:  p.TotalHours,
		}
		if p.ClockOut != nil {
			v := s.localTime(*p.ClockOut)
			out[i].ClockOutTime = &v
		}
	}
	return out
}

func (s *Server) localTime(t time.Time) string {
	return t.In(s.days.Location()).Format(clockDisplay)
}

func (s *Server) writeClockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clock.ErrAlreadyClockedIn):
		writeError(w, http.StatusBadRequest, "You are already clocked in.")
	case errors.Is(err, clock.ErrNoOpenPunch):
		writeError(w, http.StatusBadRequest, "No open clock-in record found.")
	case errors.Is(err, clock.ErrEmployeeNotFound):
		writeError(w, http.StatusNotFound, "Employee not found.")
	case errors.Is(err, clock.ErrStoreUnavailable):
		fmt.Printf("[API] Store error: %v\n", err)
		writeError(w, http.StatusServiceUnavailable, "Clock store unavailable, try again shortly.")
	default:
		fmt.Printf("[API] Unexpected error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Unable to process clock request.")
	}
}
