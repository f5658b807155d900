package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/export"
	"github.com/garnizeh/fieldlog/internal/filter"
	"github.com/garnizeh/fieldlog/internal/timesheet"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// Clock resolves "today" and calendar weeks for reporting endpoints.
type Clock struct {
	Location  *time.Location
	WeekStart time.Weekday
	Now       func() time.Time
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Today returns the current calendar date in the configured location.
func (c Clock) Today() models.Date {
	return models.DateOf(c.now())
}

type ActivitiesHandler struct {
	activityRepo repository.ActivityRepo
	svc          *timesheet.Service
	clock        Clock
}

func NewActivitiesHandler(ar repository.ActivityRepo, svc *timesheet.Service, clock Clock) *ActivitiesHandler {
	return &ActivitiesHandler{activityRepo: ar, svc: svc, clock: clock}
}

// ListActivities is the admin activity table: every engineer's submissions,
// narrowed by engineer code, date range or period, customer and site.
func (h *ActivitiesHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acts, err := h.filtered(r, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// pagination: limit and offset params
	limit := 100
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	total := len(acts)
	start := min(offset, total)
	end := min(start+limit, total)

	resp := map[string]any{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  acts[start:end],
	}

	writeJSON(w, resp, http.StatusOK)
}

func (h *ActivitiesHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.DeleteActivity(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.Info("activity deleted", slog.String("activity_id", id), slog.String("by", engineerFrom(r.Context()).ID))
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the filtered activities as CSV.
func (h *ActivitiesHandler) Export(w http.ResponseWriter, r *http.Request) {
	acts, err := h.filtered(r, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(h.clock.now())))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, acts); err != nil {
		logger.Error("csv export", slog.Any("err", err))
	}
}

func (h *ActivitiesHandler) filtered(r *http.Request, q url.Values) ([]models.DailyActivity, error) {
	spec, _, err := parseFilter(q, h.clock)
	if err != nil {
		return nil, err
	}
	list, err := h.activityRepo.ListActivities(r.Context(), repository.ActivityQuery{From: spec.From, To: spec.To})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return filter.Apply(list, spec), nil
}

// parseFilter reads the shared report query parameters. With a period the
// range comes from filter.Resolve; otherwise from and to are used as given
// and the returned range is nil.
func parseFilter(q url.Values, clock Clock) (filter.Spec, *filter.Range, error) {
	spec := filter.Spec{
		EngineerID: strings.TrimSpace(q.Get("engineer")),
		Customer:   strings.TrimSpace(q.Get("customer")),
		Site:       strings.TrimSpace(q.Get("site")),
	}
	if ex := q.Get("exclude"); ex != "" {
		spec.ExcludedCategories = filter.NewCategorySet(strings.Split(ex, ",")...)
	}

	from, err := queryDate(q, "from")
	if err != nil {
		return spec, nil, err
	}
	to, err := queryDate(q, "to")
	if err != nil {
		return spec, nil, err
	}

	period := q.Get("period")
	if period == "" {
		spec.From, spec.To = from, to
		return spec, nil, nil
	}
	rng, err := filter.Resolve(period, clock.Today(), clock.WeekStart, from, to)
	if err != nil {
		return spec, nil, fieldError("period", err.Error())
	}
	spec.From, spec.To = rng.From, rng.To
	return spec, &rng, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(q url.Values, key string) (models.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return "", nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return "", fieldError(key, "must be a YYYY-MM-DD date")
	}
	return d, nil
}
