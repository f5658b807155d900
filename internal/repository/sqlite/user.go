package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/google/uuid"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (string, error) {
	if u == nil {
		return "", fmt.Errorf("user is nil")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	created := now()

	_, err := r.conn.Exec(ctx, `INSERT INTO users (id, email, full_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`, u.ID, strings.ToLower(u.Email), u.FullName, u.PasswordHash, created)
	if err != nil {
		return "", uniqueViolation(err)
	}
	u.Created = fromMillis(created)

	return u.ID, nil
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE email = ?`, strings.ToLower(email))
}

func (r *SQLiteRepo) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	var created int64
	if err := r.conn.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}
	u.Created = fromMillis(created)

	return &u, nil
}
