// Package analytics derives per-category and per-engineer summaries from
// filtered activity collections.
package analytics

import (
	"math"
	"sort"

	"github.com/garnizeh/fieldlog/internal/filter"
	"github.com/garnizeh/fieldlog/pkg/models"
)

// DefaultTopCategories caps CategoryBreakdown when no limit is given.
const DefaultTopCategories = 10

// UnknownCategory buckets hours whose category has no name.
const UnknownCategory = "Unknown"

// chartPadding leaves headroom above the tallest bar.
const chartPadding = 1.1

type CategoryStat struct {
	Name       string  `json:"name"`
	TotalHours float64 `json:"total_hours"`
	Percentage float64 `json:"percentage"`
}

type EngineerRow struct {
	Engineer       models.Engineer `json:"engineer"`
	TotalHours     float64         `json:"total_hours"`
	DaysWorked     int             `json:"days_worked"`
	WeeklyAverage  float64         `json:"weekly_average"`
	CompletionRate float64         `json:"completion_rate"`
}

type Summary struct {
	TotalHours            float64 `json:"total_hours"`
	Submissions           int     `json:"submissions"`
	Engineers             int     `json:"engineers"`
	AvgHoursPerSubmission float64 `json:"avg_hours_per_submission"`
}

// CategoryBreakdown sums hours per category name over the activities of one
// engineer (or all, for filter.AllEngineers), skipping excluded categories.
// Rows are sorted by hours, descending, keeping discovery order on ties, and
// truncated to limit.
func CategoryBreakdown(activities []models.DailyActivity, engineerCode string, excluded filter.CategorySet, limit int) []CategoryStat {
	if limit <= 0 {
		limit = DefaultTopCategories
	}

	var stats []CategoryStat
	index := map[string]int{}
	var total float64
	for _, a := range activities {
		if !filter.MatchEngineer(a, engineerCode) {
			continue
		}
		for _, h := range a.Hours {
			name := categoryName(h)
			if excluded.Has(name) {
				continue
			}
			i, ok := index[name]
			if !ok {
				i = len(stats)
				index[name] = i
				stats = append(stats, CategoryStat{Name: name})
			}
			stats[i].TotalHours += h.Hours
			total += h.Hours
		}
	}

	for i := range stats {
		if total > 0 {
			stats[i].Percentage = stats[i].TotalHours / total * 100
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TotalHours > stats[j].TotalHours })
	if len(stats) > limit {
		stats = stats[:limit]
	}
	if stats == nil {
		stats = []CategoryStat{}
	}
	return stats
}

func categoryName(h models.ActivityHour) string {
	if h.CategoryName == "" {
		return UnknownCategory
	}
	return h.CategoryName
}

// ActivityHours returns the hours of a counted toward totals. Without
// exclusions that is the stored total; otherwise it is recomputed from the
// hour rows.
func ActivityHours(a models.DailyActivity, excluded filter.CategorySet) float64 {
	if excluded.Len() == 0 {
		return a.TotalHours
	}
	var sum float64
	for _, h := range a.Hours {
		if !excluded.Has(categoryName(h)) {
			sum += h.Hours
		}
	}
	return sum
}

// EngineerPerformance returns one row per roster engineer, including those
// with no activity in range, sorted by total hours descending.
func EngineerPerformance(roster []models.Engineer, activities []models.DailyActivity, r filter.Range, excluded filter.CategorySet) []EngineerRow {
	rows := make([]EngineerRow, len(roster))
	index := make(map[string]int, len(roster))
	for i, e := range roster {
		rows[i].Engineer = e
		index[e.EmployeeID] = i
	}

	for _, a := range activities {
		i, ok := index[a.Engineer.EmployeeID]
		if !ok {
			continue
		}
		rows[i].TotalHours += ActivityHours(a, excluded)
		rows[i].DaysWorked++
	}

	days := r.Days()
	for i := range rows {
		rows[i].WeeklyAverage = WeeklyAverage(rows[i].TotalHours, days, r.SingleWeek)
		rows[i].CompletionRate = CompletionRate(rows[i].WeeklyAverage, rows[i].Engineer.WeeklyHourRequirement)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalHours > rows[j].TotalHours })
	return rows
}

// WeeklyAverage normalises total to a seven-day figure over days. A single
// calendar week reports the total unchanged.
func WeeklyAverage(total float64, days int, singleWeek bool) float64 {
	if singleWeek {
		return total
	}
	if days <= 0 {
		return 0
	}
	return total / float64(days) * 7
}

// CompletionRate is weekly/required as a percentage clamped to [0, 100].
func CompletionRate(weekly, required float64) float64 {
	if required <= 0 || weekly <= 0 || math.IsNaN(weekly) {
		return 0
	}
	return math.Min(100, weekly/required*100)
}

func Summarize(activities []models.DailyActivity) Summary {
	var s Summary
	engineers := map[string]struct{}{}
	for _, a := range activities {
		s.TotalHours += a.TotalHours
		s.Submissions++
		engineers[a.Engineer.EmployeeID] = struct{}{}
	}
	s.Engineers = len(engineers)
	if s.Submissions > 0 {
		s.AvgHoursPerSubmission = s.TotalHours / float64(s.Submissions)
	}
	return s
}

// ChartScale is the bar scale for engineer rows: the largest worked or
// required figure plus ten percent.
func ChartScale(rows []EngineerRow) float64 {
	var m float64
	for _, r := range rows {
		m = maxFinite(m, r.TotalHours)
		m = maxFinite(m, r.Engineer.WeeklyHourRequirement)
	}
	return m * chartPadding
}

// CategoryScale is ChartScale for category rows.
func CategoryScale(stats []CategoryStat) float64 {
	var m float64
	for _, s := range stats {
		m = maxFinite(m, s.TotalHours)
	}
	return m * chartPadding
}

func maxFinite(cur, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= cur {
		return cur
	}
	return v
}

// RoundPercent rounds half up for display.
func RoundPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}
