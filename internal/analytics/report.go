package analytics

import (
	"github.com/garnizeh/fieldlog/internal/filter"
	"github.com/garnizeh/fieldlog/pkg/models"
)

// Report bundles every view of the analytics page.
type Report struct {
	Range         filter.Range   `json:"range"`
	Summary       Summary        `json:"summary"`
	Categories    []CategoryStat `json:"categories"`
	Engineers     []EngineerRow  `json:"engineers"`
	ChartScale    float64        `json:"chart_scale"`
	CategoryScale float64        `json:"category_scale"`
}

// Build narrows activities to r and derives the report. spec.EngineerID only
// restricts the category breakdown; the performance table covers the roster.
func Build(roster []models.Engineer, activities []models.DailyActivity, r filter.Range, spec filter.Spec, topN int) Report {
	spec.From, spec.To = r.From, r.To
	engineer := spec.EngineerID
	spec.EngineerID = filter.AllEngineers

	inRange := filter.Apply(activities, spec)
	rows := EngineerPerformance(roster, inRange, r, spec.ExcludedCategories)
	cats := CategoryBreakdown(inRange, engineer, spec.ExcludedCategories, topN)

	return Report{
		Range:         r,
		Summary:       Summarize(inRange),
		Categories:    cats,
		Engineers:     rows,
		ChartScale:    ChartScale(rows),
		CategoryScale: CategoryScale(cats),
	}
}
