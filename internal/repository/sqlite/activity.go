package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
	"github.com/google/uuid"
)

const activitySelect = `SELECT a.id, a.engineer_id, a.activity_date, a.customer_name, a.site_location, a.notes, a.status, a.total_hours, a.submitted_at, a.updated_at, a.version, e.full_name, e.employee_id
FROM daily_activities a JOIN engineers e ON e.id = a.engineer_id`

const hoursSelect = `SELECT h.id, h.daily_activity_id, h.service_category_id, c.name, h.hours, h.description
FROM activity_hours h
JOIN daily_activities a ON a.id = h.daily_activity_id
LEFT JOIN service_categories c ON c.id = h.service_category_id`

func activityWhere(q repository.ActivityQuery) (string, []any) {
	var conds []string
	var args []any
	if q.EngineerID != "" {
		conds = append(conds, "a.engineer_id = ?")
		args = append(args, q.EngineerID)
	}
	if !q.From.IsZero() {
		conds = append(conds, "a.activity_date >= ?")
		args = append(args, q.From.String())
	}
	if !q.To.IsZero() {
		conds = append(conds, "a.activity_date <= ?")
		args = append(args, q.To.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanActivity(s rowScanner) (*models.DailyActivity, error) {
	var a models.DailyActivity
	var date, status string
	var submitted, updated int64
	if err := s.Scan(&a.ID, &a.EngineerID, &date, &a.CustomerName, &a.SiteLocation, &a.Notes, &status, &a.TotalHours, &submitted, &updated, &a.Version, &a.Engineer.FullName, &a.Engineer.EmployeeID); err != nil {
		return nil, err
	}
	a.ActivityDate = models.Date(date)
	a.Status = models.Status(status)
	a.SubmittedAt = fromMillis(submitted)
	a.Updated = fromMillis(updated)
	a.Hours = []models.ActivityHour{}

	return &a, nil
}

func (r *SQLiteRepo) ListActivities(ctx context.Context, q repository.ActivityQuery) ([]models.DailyActivity, error) {
	where, args := activityWhere(q)

	rows, err := r.conn.QueryRows(ctx, activitySelect+where+` ORDER BY a.activity_date DESC, a.submitted_at DESC`, args...)
	if err != nil {
		return nil, err
	}

	out := []models.DailyActivity{}
	index := map[string]int{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[a.ID] = len(out)
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	hours, err := r.queryHours(ctx, hoursSelect+where+` ORDER BY h.created_at, h.id`, args...)
	if err != nil {
		return nil, err
	}
	for _, h := range hours {
		if i, ok := index[h.DailyActivityID]; ok {
			out[i].Hours = append(out[i].Hours, h)
		}
	}

	return out, nil
}

func (r *SQLiteRepo) queryHours(ctx context.Context, query string, args ...any) ([]models.ActivityHour, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActivityHour
	for rows.Next() {
		var h models.ActivityHour
		var categoryID, categoryName sql.NullString
		if err := rows.Scan(&h.ID, &h.DailyActivityID, &categoryID, &categoryName, &h.Hours, &h.Description); err != nil {
			return nil, err
		}
		h.ServiceCategoryID = categoryID.String
		h.CategoryName = categoryName.String
		out = append(out, h)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetActivity(ctx context.Context, id string) (*models.DailyActivity, error) {
	return r.getActivity(ctx, ` WHERE a.id = ?`, id)
}

func (r *SQLiteRepo) GetActivityByDate(ctx context.Context, engineerID string, date models.Date) (*models.DailyActivity, error) {
	return r.getActivity(ctx, ` WHERE a.engineer_id = ? AND a.activity_date = ?`, engineerID, date.String())
}

func (r *SQLiteRepo) getActivity(ctx context.Context, where string, args ...any) (*models.DailyActivity, error) {
	a, err := scanActivity(r.conn.QueryRow(ctx, activitySelect+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	hours, err := r.queryHours(ctx, hoursSelect+` WHERE h.daily_activity_id = ? ORDER BY h.created_at, h.id`, a.ID)
	if err != nil {
		return nil, err
	}
	if hours != nil {
		a.Hours = hours
	}

	return a, nil
}

func (r *SQLiteRepo) UpsertActivity(ctx context.Context, a *models.DailyActivity) (*models.DailyActivity, error) {
	if a == nil {
		return nil, fmt.Errorf("activity is nil")
	}

	var id string
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = upsertActivity(ctx, tx, a)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetActivity(ctx, id)
}

func (r *SQLiteRepo) ReplaceActivityHours(ctx context.Context, activityID string, hours []models.ActivityHour) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		return replaceHours(ctx, tx, activityID, hours)
	})
}

func (r *SQLiteRepo) SaveActivity(ctx context.Context, a *models.DailyActivity, expectedVersion int64) (*models.DailyActivity, error) {
	if a == nil {
		return nil, fmt.Errorf("activity is nil")
	}

	var id string
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if expectedVersion > 0 {
			var current int64
			err := tx.QueryRowContext(ctx, `SELECT version FROM daily_activities WHERE engineer_id = ? AND activity_date = ?`, a.EngineerID, a.ActivityDate.String()).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("activity %s for %s no longer exists: %w", a.ActivityDate, a.EngineerID, repository.ErrConflict)
			}
			if err != nil {
				return err
			}
			if current != expectedVersion {
				return fmt.Errorf("activity %s at version %d, expected %d: %w", a.ActivityDate, current, expectedVersion, repository.ErrConflict)
			}
		}

		var err error
		if id, err = upsertActivity(ctx, tx, a); err != nil {
			return err
		}
		return replaceHours(ctx, tx, id, a.Hours)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("sqlite: activity saved", "id", id, "engineer_id", a.EngineerID, "date", a.ActivityDate.String())
	return r.GetActivity(ctx, id)
}

// upsertActivity writes a keyed by (engineer_id, activity_date), bumping the
// version of an existing row, and returns the stored id.
func upsertActivity(ctx context.Context, tx *sql.Tx, a *models.DailyActivity) (string, error) {
	if a.Status == "" {
		a.Status = models.StatusExecuted
	}
	ts := now()

	_, err := tx.ExecContext(ctx, `INSERT INTO daily_activities (id, engineer_id, activity_date, customer_name, site_location, notes, status, total_hours, submitted_at, updated_at, version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT (engineer_id, activity_date) DO UPDATE SET
	customer_name = excluded.customer_name,
	site_location = excluded.site_location,
	notes = excluded.notes,
	status = excluded.status,
	total_hours = excluded.total_hours,
	submitted_at = excluded.submitted_at,
	updated_at = excluded.updated_at,
	version = daily_activities.version + 1`,
		uuid.NewString(), a.EngineerID, a.ActivityDate.String(), a.CustomerName, a.SiteLocation, a.Notes, string(a.Status), a.TotalHours, ts, ts)
	if err != nil {
		return "", fmt.Errorf("upsert activity: %w", err)
	}

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM daily_activities WHERE engineer_id = ? AND activity_date = ?`, a.EngineerID, a.ActivityDate.String()).Scan(&id); err != nil {
		return "", fmt.Errorf("load upserted activity: %w", err)
	}

	return id, nil
}

// replaceHours swaps the hour rows of an activity and recomputes its total.
// Entries with zero hours are not stored.
func replaceHours(ctx context.Context, tx *sql.Tx, activityID string, hours []models.ActivityHour) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_hours WHERE daily_activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("delete activity hours: %w", err)
	}

	ts := now()
	var total float64
	for i, h := range hours {
		if h.Hours <= 0 {
			continue
		}
		var categoryID any
		if h.ServiceCategoryID != "" {
			categoryID = h.ServiceCategoryID
		}
		// created_at orders rows in submission order on read.
		if _, err := tx.ExecContext(ctx, `INSERT INTO activity_hours (id, daily_activity_id, service_category_id, hours, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), activityID, categoryID, h.Hours, h.Description, ts+int64(i)); err != nil {
			return fmt.Errorf("insert activity hour: %w", err)
		}
		total += h.Hours
	}

	if _, err := tx.ExecContext(ctx, `UPDATE daily_activities SET total_hours = ? WHERE id = ?`, total, activityID); err != nil {
		return fmt.Errorf("update activity total: %w", err)
	}

	return nil
}

func (r *SQLiteRepo) DeleteActivity(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM daily_activities WHERE id = ?`, id)
	return err
}
