package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/google/uuid"
)

const engineerColumns = `id, user_id, employee_id, full_name, email, role, weekly_hour_requirement, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEngineer(s rowScanner) (*models.Engineer, error) {
	var e models.Engineer
	var userID sql.NullString
	var role string
	var active int
	var created, updated int64
	if err := s.Scan(&e.ID, &userID, &e.EmployeeID, &e.FullName, &e.Email, &role, &e.WeeklyHourRequirement, &active, &created, &updated); err != nil {
		return nil, err
	}

	if userID.Valid {
		v := userID.String
		e.UserID = &v
	}
	e.Role = models.Role(role)
	e.IsActive = active != 0
	e.Created = fromMillis(created)
	e.Updated = fromMillis(updated)

	return &e, nil
}

func (r *SQLiteRepo) ListEngineers(ctx context.Context) ([]models.Engineer, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+engineerColumns+` FROM engineers ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Engineer
	for rows.Next() {
		e, err := scanEngineer(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *e)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetEngineer(ctx context.Context, id string) (*models.Engineer, error) {
	return r.getEngineer(ctx, `SELECT `+engineerColumns+` FROM engineers WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetEngineerByEmployeeID(ctx context.Context, employeeID string) (*models.Engineer, error) {
	return r.getEngineer(ctx, `SELECT `+engineerColumns+` FROM engineers WHERE employee_id = ?`, employeeID)
}

func (r *SQLiteRepo) GetEngineerByUserID(ctx context.Context, userID string) (*models.Engineer, error) {
	return r.getEngineer(ctx, `SELECT `+engineerColumns+` FROM engineers WHERE user_id = ?`, userID)
}

func (r *SQLiteRepo) getEngineer(ctx context.Context, query string, arg any) (*models.Engineer, error) {
	e, err := scanEngineer(r.conn.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return e, nil
}

func (r *SQLiteRepo) CreateEngineer(ctx context.Context, e *models.Engineer) (string, error) {
	if e == nil {
		return "", fmt.Errorf("engineer is nil")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Role == "" {
		e.Role = models.RoleEngineer
	}
	if e.WeeklyHourRequirement <= 0 {
		e.WeeklyHourRequirement = models.DefaultWeeklyHours
	}
	ts := now()

	_, err := r.conn.Exec(ctx, `INSERT INTO engineers (`+engineerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.EmployeeID, e.FullName, e.Email, string(e.Role), e.WeeklyHourRequirement, boolToInt(e.IsActive), ts, ts)
	if err != nil {
		return "", uniqueViolation(err)
	}
	e.Created = fromMillis(ts)
	e.Updated = e.Created

	return e.ID, nil
}

func (r *SQLiteRepo) UpdateEngineer(ctx context.Context, e *models.Engineer) error {
	if e == nil {
		return fmt.Errorf("engineer is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE engineers SET employee_id = ?, full_name = ?, email = ?, role = ?, weekly_hour_requirement = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		e.EmployeeID, e.FullName, e.Email, string(e.Role), e.WeeklyHourRequirement, boolToInt(e.IsActive), now(), e.ID)
	return uniqueViolation(err)
}

func (r *SQLiteRepo) SetEngineerActive(ctx context.Context, id string, active bool) error {
	_, err := r.conn.Exec(ctx, `UPDATE engineers SET is_active = ?, updated_at = ? WHERE id = ?`, boolToInt(active), now(), id)
	return err
}

func (r *SQLiteRepo) DeleteEngineer(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM engineers WHERE id = ?`, id)
	return err
}
