package sqlite

import (
	"context"
	"fmt"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/google/uuid"
)

func (r *SQLiteRepo) ListServiceCategories(ctx context.Context, activeOnly bool) ([]models.ServiceCategory, error) {
	q := `SELECT id, name, description, is_active, created_at FROM service_categories`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name`

	rows, err := r.conn.QueryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceCategory
	for rows.Next() {
		var c models.ServiceCategory
		var active int
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &active, &created); err != nil {
			return nil, err
		}
		c.IsActive = active != 0
		c.Created = fromMillis(created)
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CreateServiceCategory(ctx context.Context, c *models.ServiceCategory) (string, error) {
	if c == nil {
		return "", fmt.Errorf("category is nil")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ts := now()

	_, err := r.conn.Exec(ctx, `INSERT INTO service_categories (id, name, description, is_active, created_at) VALUES (?, ?, ?, ?, ?)`, c.ID, c.Name, c.Description, boolToInt(c.IsActive), ts)
	if err != nil {
		return "", uniqueViolation(err)
	}
	c.Created = fromMillis(ts)

	return c.ID, nil
}

func (r *SQLiteRepo) SetServiceCategoryActive(ctx context.Context, id string, active bool) error {
	_, err := r.conn.Exec(ctx, `UPDATE service_categories SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	return err
}
