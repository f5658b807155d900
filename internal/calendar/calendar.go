// Package calendar classifies engineer-days as executed, planning or empty.
package calendar

import (
	"sort"
	"time"

	"github.com/garnizeh/fieldlog/pkg/models"
)

type State string

const (
	StateExecuted State = "executed"
	StatePlanning State = "planning"
	StateNone     State = "none"
)

type dateSets struct {
	executed map[models.Date]struct{}
	planning map[models.Date]struct{}
}

// Index maps employee codes to their executed and planning dates. The two
// sets of one engineer are disjoint.
type Index struct {
	engineers map[string]*dateSets
}

// Build indexes activities by employee code. Any status other than planning
// counts as executed.
func Build(activities []models.DailyActivity) Index {
	idx := Index{engineers: map[string]*dateSets{}}
	for _, a := range activities {
		code := a.Engineer.EmployeeID
		sets, ok := idx.engineers[code]
		if !ok {
			sets = &dateSets{executed: map[models.Date]struct{}{}, planning: map[models.Date]struct{}{}}
			idx.engineers[code] = sets
		}
		if a.Status == models.StatusPlanning {
			delete(sets.executed, a.ActivityDate)
			sets.planning[a.ActivityDate] = struct{}{}
		} else {
			delete(sets.planning, a.ActivityDate)
			sets.executed[a.ActivityDate] = struct{}{}
		}
	}
	return idx
}

// Status returns the state of one engineer-day by exact date match.
func (idx Index) Status(code string, date models.Date) State {
	sets, ok := idx.engineers[code]
	if !ok {
		return StateNone
	}
	if _, ok := sets.executed[date]; ok {
		return StateExecuted
	}
	if _, ok := sets.planning[date]; ok {
		return StatePlanning
	}
	return StateNone
}

// EngineerDates is the JSON view of one engineer's index entry.
type EngineerDates struct {
	EmployeeID string        `json:"employee_id"`
	Executed   []models.Date `json:"executed"`
	Planning   []models.Date `json:"planning"`
}

// Dates returns the sorted dates of one engineer.
func (idx Index) Dates(code string) EngineerDates {
	out := EngineerDates{EmployeeID: code, Executed: []models.Date{}, Planning: []models.Date{}}
	sets, ok := idx.engineers[code]
	if !ok {
		return out
	}
	out.Executed = sortedDates(sets.executed)
	out.Planning = sortedDates(sets.planning)
	return out
}

// All returns Dates for every indexed engineer, ordered by employee code.
func (idx Index) All() []EngineerDates {
	codes := make([]string, 0, len(idx.engineers))
	for code := range idx.engineers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]EngineerDates, 0, len(codes))
	for _, code := range codes {
		out = append(out, idx.Dates(code))
	}
	return out
}

func sortedDates(set map[models.Date]struct{}) []models.Date {
	out := make([]models.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// MissingDays lists the days an engineer has no record for.
type MissingDays struct {
	Engineer models.EngineerRef `json:"engineer"`
	Dates    []models.Date      `json:"dates"`
}

// Missing returns, per active roster engineer with at least one gap, the days
// in [from, to] up to today without any record. Weekends are skipped when
// weekdaysOnly is set.
func (idx Index) Missing(roster []models.Engineer, from, to, today models.Date, weekdaysOnly bool) []MissingDays {
	if today.Before(to) {
		to = today
	}

	out := []MissingDays{}
	for _, e := range roster {
		if !e.IsActive {
			continue
		}
		var gaps []models.Date
		for d := from; !d.After(to); d = d.AddDays(1) {
			if weekdaysOnly && isWeekend(d) {
				continue
			}
			if idx.Status(e.EmployeeID, d) == StateNone {
				gaps = append(gaps, d)
			}
		}
		if len(gaps) > 0 {
			out = append(out, MissingDays{Engineer: models.EngineerRef{FullName: e.FullName, EmployeeID: e.EmployeeID}, Dates: gaps})
		}
	}
	return out
}

// MissedCount totals the gaps returned by Missing.
func MissedCount(missing []MissingDays) int {
	n := 0
	for _, m := range missing {
		n += len(m.Dates)
	}
	return n
}

func isWeekend(d models.Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ForDate returns the activities recorded on date, in input order.
func ForDate(activities []models.DailyActivity, date models.Date) []models.DailyActivity {
	out := []models.DailyActivity{}
	for _, a := range activities {
		if a.ActivityDate == date {
			out = append(out, a)
		}
	}
	return out
}
