// Package export renders activity reports as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/fieldlog/pkg/models"
)

// Header is the first CSV record.
var Header = []string{"Date", "Engineer", "Customer", "Site", "Total Hours", "Categories", "Notes"}

// Filename returns the download name for a report exported on day.
func Filename(day time.Time) string {
	return fmt.Sprintf("activity-report-%s.csv", day.Format(models.DateLayout))
}

// WriteCSV writes the header and one record per activity. Fields holding
// commas, quotes or newlines are quoted, so a multi-line note keeps its line
// breaks inside one quoted record rather than being flattened.
func WriteCSV(w io.Writer, activities []models.DailyActivity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, a := range activities {
		if err := cw.Write(Record(a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Record returns the CSV fields of one activity.
func Record(a models.DailyActivity) []string {
	return []string{
		a.ActivityDate.String(),
		a.Engineer.FullName,
		a.CustomerName,
		a.SiteLocation,
		formatHours(a.TotalHours),
		Categories(a.Hours),
		a.Notes,
	}
}

// Categories formats hour rows as "Name: Hh; Name2: H2h".
func Categories(hours []models.ActivityHour) string {
	parts := make([]string, 0, len(hours))
	for _, h := range hours {
		name := h.CategoryName
		if name == "" {
			name = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("%s: %sh", name, formatHours(h.Hours)))
	}
	return strings.Join(parts, "; ")
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
