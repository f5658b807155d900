// Package filter narrows activity collections by date range, engineer and
// free-text predicates, and resolves the named reporting periods.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/fieldlog/pkg/models"
)

// AllEngineers is the engineer sentinel that disables the engineer predicate.
const AllEngineers = "all"

// Spec describes a filter. Zero-valued fields match everything.
type Spec struct {
	// EngineerID is an employee code, or AllEngineers.
	EngineerID string
	From       models.Date
	To         models.Date
	Customer   string
	Site       string
	// ExcludedCategories is ignored by Apply and consumed by analytics.
	ExcludedCategories CategorySet
}

// CategorySet is a set of category names.
type CategorySet map[string]struct{}

// NewCategorySet returns a set holding the non-empty names.
func NewCategorySet(names ...string) CategorySet {
	s := CategorySet{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s CategorySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s CategorySet) Len() int { return len(s) }

// Apply returns the activities matching every predicate of spec, in input
// order. It never returns nil.
func Apply(activities []models.DailyActivity, spec Spec) []models.DailyActivity {
	out := make([]models.DailyActivity, 0, len(activities))
	for _, a := range activities {
		if Match(a, spec) {
			out = append(out, a)
		}
	}
	return out
}

// Match reports whether a satisfies every predicate of spec.
func Match(a models.DailyActivity, spec Spec) bool {
	return MatchDate(a, spec.From, spec.To) &&
		MatchEngineer(a, spec.EngineerID) &&
		containsFold(a.CustomerName, spec.Customer) &&
		containsFold(a.SiteLocation, spec.Site)
}

// MatchDate reports whether the activity date lies in [from, to]. A zero
// bound is open.
func MatchDate(a models.DailyActivity, from, to models.Date) bool {
	if !from.IsZero() && a.ActivityDate.Before(from) {
		return false
	}
	if !to.IsZero() && a.ActivityDate.After(to) {
		return false
	}
	return true
}

// MatchEngineer compares employee codes exactly.
func MatchEngineer(a models.DailyActivity, code string) bool {
	if code == "" || code == AllEngineers {
		return true
	}
	return a.Engineer.EmployeeID == code
}

func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

// Period names accepted by Resolve.
const (
	PeriodCurrentWeek = "current-week"
	PeriodLastWeek    = "last-week"
	PeriodLast30Days  = "last-30-days"
	PeriodCustom      = "custom"
)

// Range is a resolved inclusive date window.
type Range struct {
	From models.Date `json:"from"`
	To   models.Date `json:"to"`
	// SingleWeek marks calendar-week windows, whose weekly average is the
	// raw total.
	SingleWeek bool `json:"single_week"`
}

// Days returns the inclusive day count of r.
func (r Range) Days() int {
	return models.DaysInclusive(r.From, r.To)
}

// WeekStart returns the first day of the week containing d.
func WeekStart(d models.Date, first time.Weekday) models.Date {
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-offset)
}

// Resolve turns a period name into a date range relative to today. Custom
// periods use from and to as given and are single-week only when they span
// exactly one calendar week.
func Resolve(period string, today models.Date, first time.Weekday, from, to models.Date) (Range, error) {
	switch period {
	case "", PeriodCurrentWeek:
		start := WeekStart(today, first)
		return Range{From: start, To: start.AddDays(6), SingleWeek: true}, nil
	case PeriodLastWeek:
		start := WeekStart(today, first).AddDays(-7)
		return Range{From: start, To: start.AddDays(6), SingleWeek: true}, nil
	case PeriodLast30Days:
		return Range{From: today.AddDays(-30), To: today}, nil
	case PeriodCustom:
		if from.IsZero() || to.IsZero() {
			return Range{}, fmt.Errorf("custom period needs from and to")
		}
		if to.Before(from) {
			return Range{}, fmt.Errorf("custom period ends before it starts")
		}
		single := WeekStart(from, first) == from && to == from.AddDays(6)
		return Range{From: from, To: to, SingleWeek: single}, nil
	}
	return Range{}, fmt.Errorf("unknown period %q", period)
}
