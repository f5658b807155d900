package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/garnizeh/fieldlog/internal/analytics"
	"github.com/garnizeh/fieldlog/internal/calendar"
	"github.com/garnizeh/fieldlog/internal/filter"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// ReportsHandler serves the read-only oversight views: analytics, the
// dashboard summary and the team calendar.
type ReportsHandler struct {
	repo          *repository.Repository
	clock         Clock
	topCategories int
}

func NewReportsHandler(repo *repository.Repository, clock Clock, topCategories int) *ReportsHandler {
	return &ReportsHandler{repo: repo, clock: clock, topCategories: topCategories}
}

// Analytics returns the category breakdown and engineer performance for a
// period (current week by default).
func (h *ReportsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec, rng, err := parseFilter(q, h.clock)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rng == nil {
		// Without a period the window is either the current week or an
		// explicit from..to pair; a lone bound is rejected.
		period := filter.PeriodCustom
		switch {
		case spec.From.IsZero() && spec.To.IsZero():
			period = filter.PeriodCurrentWeek
		case spec.From.IsZero():
			writeServiceError(w, r, fieldError("from", "required with to"))
			return
		case spec.To.IsZero():
			writeServiceError(w, r, fieldError("to", "required with from"))
			return
		}
		res, err := filter.Resolve(period, h.clock.Today(), h.clock.WeekStart, spec.From, spec.To)
		if err != nil {
			writeServiceError(w, r, fieldError("period", err.Error()))
			return
		}
		rng = &res
	}
	if spec.EngineerID == "" {
		spec.EngineerID = filter.AllEngineers
	}

	topN := h.topCategories
	if l := q.Get("top"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			topN = v
		}
	}

	roster, err := h.activeEngineers(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	acts, err := h.repo.Activity.ListActivities(r.Context(), repository.ActivityQuery{From: rng.From, To: rng.To})
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("list activities: %w", err))
		return
	}

	writeJSON(w, analytics.Build(roster, acts, *rng, spec, topN), http.StatusOK)
}

type dashboardStats struct {
	TotalEngineers    int     `json:"total_engineers"`
	ActiveEngineers   int     `json:"active_engineers"`
	TotalSubmissions  int     `json:"total_submissions"`
	AvgHoursPerDay    float64 `json:"avg_hours_per_day"`
	MissedSubmissions int     `json:"missed_submissions"`
}

type dashboardResponse struct {
	Stats   dashboardStats         `json:"stats"`
	Week    filter.Range           `json:"week"`
	Missing []calendar.MissingDays `json:"missing"`
}

// Dashboard summarises every submission on record and counts the weekdays of
// the current week that active engineers have not logged yet.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	engineers, err := h.repo.Engineer.ListEngineers(r.Context())
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("list engineers: %w", err))
		return
	}
	acts, err := h.repo.Activity.ListActivities(r.Context(), repository.ActivityQuery{})
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("list activities: %w", err))
		return
	}

	today := h.clock.Today()
	week, _ := filter.Resolve(filter.PeriodCurrentWeek, today, h.clock.WeekStart, "", "")
	missing := calendar.Build(acts).Missing(engineers, week.From, week.To, today, true)

	summary := analytics.Summarize(acts)
	stats := dashboardStats{
		TotalEngineers:    len(engineers),
		TotalSubmissions:  summary.Submissions,
		AvgHoursPerDay:    summary.AvgHoursPerSubmission,
		MissedSubmissions: calendar.MissedCount(missing),
	}
	for _, e := range engineers {
		if e.IsActive {
			stats.ActiveEngineers++
		}
	}

	writeJSON(w, dashboardResponse{Stats: stats, Week: week, Missing: missing}, http.StatusOK)
}

type calendarResponse struct {
	Engineers []calendar.EngineerDates `json:"engineers"`
	Date      models.Date              `json:"date,omitempty"`
	Day       []models.DailyActivity   `json:"day,omitempty"`
}

// Calendar returns every engineer's executed and planning dates and, with
// ?date=, the activities of that day.
func (h *ReportsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r.URL.Query(), "date")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	acts, err := h.repo.Activity.ListActivities(r.Context(), repository.ActivityQuery{})
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("list activities: %w", err))
		return
	}

	resp := calendarResponse{Engineers: calendar.Build(acts).All()}
	if !date.IsZero() {
		resp.Date = date
		resp.Day = calendar.ForDate(acts, date)
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *ReportsHandler) activeEngineers(r *http.Request) ([]models.Engineer, error) {
	all, err := h.repo.Engineer.ListEngineers(r.Context())
	if err != nil {
		return nil, fmt.Errorf("list engineers: %w", err)
	}
	out := make([]models.Engineer, 0, len(all))
	for _, e := range all {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}
