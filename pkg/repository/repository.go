package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/fieldlog/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Lookups return (nil, nil) when the row does not exist.

// ErrConflict is returned when a save carries a stale version.
var ErrConflict = errors.New("version conflict")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate key")

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (string, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type EngineerRepo interface {
	ListEngineers(ctx context.Context) ([]models.Engineer, error)
	GetEngineer(ctx context.Context, id string) (*models.Engineer, error)
	GetEngineerByEmployeeID(ctx context.Context, employeeID string) (*models.Engineer, error)
	GetEngineerByUserID(ctx context.Context, userID string) (*models.Engineer, error)
	CreateEngineer(ctx context.Context, e *models.Engineer) (string, error)
	UpdateEngineer(ctx context.Context, e *models.Engineer) error
	SetEngineerActive(ctx context.Context, id string, active bool) error
	DeleteEngineer(ctx context.Context, id string) error
}

// ActivityQuery narrows ListActivities at the store. Zero fields match all.
type ActivityQuery struct {
	EngineerID string
	From       models.Date
	To         models.Date
}

type ActivityRepo interface {
	// ListActivities returns activities with nested hours and category names,
	// newest date first, then newest submission first.
	ListActivities(ctx context.Context, q ActivityQuery) ([]models.DailyActivity, error)
	GetActivity(ctx context.Context, id string) (*models.DailyActivity, error)
	GetActivityByDate(ctx context.Context, engineerID string, date models.Date) (*models.DailyActivity, error)
	// UpsertActivity writes the activity row keyed by (engineer_id, activity_date)
	// and returns the stored row without touching its hours.
	UpsertActivity(ctx context.Context, a *models.DailyActivity) (*models.DailyActivity, error)
	// ReplaceActivityHours atomically swaps every hour row of an activity.
	ReplaceActivityHours(ctx context.Context, activityID string, hours []models.ActivityHour) error
	// SaveActivity upserts the activity and replaces its hours in one
	// transaction. When expectedVersion > 0 and the stored version differs,
	// nothing is written and ErrConflict is returned.
	SaveActivity(ctx context.Context, a *models.DailyActivity, expectedVersion int64) (*models.DailyActivity, error)
	DeleteActivity(ctx context.Context, id string) error
}

type CategoryRepo interface {
	ListServiceCategories(ctx context.Context, activeOnly bool) ([]models.ServiceCategory, error)
	CreateServiceCategory(ctx context.Context, c *models.ServiceCategory) (string, error)
	SetServiceCategoryActive(ctx context.Context, id string, active bool) error
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) (string, error)
	// ListNotificationsFor returns the notifications visible to an engineer,
	// newest first, with IsRead resolved for that engineer.
	ListNotificationsFor(ctx context.Context, engineerID string, limit int) ([]models.Notification, error)
	// MarkRead reports false when the notification is not visible to the engineer.
	MarkRead(ctx context.Context, id, engineerID string) (bool, error)
	MarkAllRead(ctx context.Context, engineerID string) (int64, error)
	CountUnread(ctx context.Context, engineerID string) (int64, error)
}

// Repository aggregates the domain repositories so callers can pass a single
// value around.
type Repository struct {
	User         UserRepo
	Engineer     EngineerRepo
	Activity     ActivityRepo
	Category     CategoryRepo
	Notification NotificationRepo
}
