package sqlite

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/fieldlog/internal/db"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.EngineerRepo = (*SQLiteRepo)(nil)
var _ repository.ActivityRepo = (*SQLiteRepo)(nil)
var _ repository.CategoryRepo = (*SQLiteRepo)(nil)
var _ repository.NotificationRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

// Repository returns r wired into every slot of the aggregate repository.
func (r *SQLiteRepo) Repository() *repository.Repository {
	return &repository.Repository{
		User:         r,
		Engineer:     r,
		Activity:     r,
		Category:     r,
		Notification: r,
	}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// uniqueViolation maps SQLite unique-constraint failures to ErrDuplicate.
func uniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Join(repository.ErrDuplicate, err)
	}
	return err
}
