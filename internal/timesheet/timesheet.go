// Package timesheet owns engineer profiles and daily activity submissions.
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// HourEntry is one category line of a submission.
type HourEntry struct {
	ServiceCategoryID string  `json:"service_category_id"`
	Hours             float64 `json:"hours"`
	Description       string  `json:"description,omitempty"`
}

// Submission is an engineer's day as entered.
type Submission struct {
	Date         models.Date   `json:"-"`
	CustomerName string        `json:"customer_name"`
	SiteLocation string        `json:"site_location"`
	Notes        string        `json:"notes"`
	Status       models.Status `json:"status"`
	// Version, when set, must match the stored version or the save fails
	// with repository.ErrConflict.
	Version int64       `json:"version,omitempty"`
	Hours   []HourEntry `json:"hours"`
}

type Service struct {
	repo        *repository.Repository
	hub         *notify.Hub
	logger      *slog.Logger
	weeklyHours float64
	now         func() time.Time
}

func NewService(repo *repository.Repository, hub *notify.Hub, weeklyHours float64, logger *slog.Logger) *Service {
	if weeklyHours <= 0 {
		weeklyHours = models.DefaultWeeklyHours
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hub: hub, logger: logger, weeklyHours: weeklyHours, now: time.Now}
}

// SetClock replaces the time source used for generated employee codes.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ResolveProfile returns the active engineer bound to a login account.
func (s *Service) ResolveProfile(ctx context.Context, userID string) (*models.Engineer, error) {
	e, err := s.repo.Engineer.GetEngineerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if e == nil {
		return nil, ErrProfileMissing
	}
	if !e.IsActive {
		return e, ErrDeactivated
	}
	return e, nil
}

// CreateProfile creates the engineer profile of u with a generated employee
// code. fullName falls back to the account name, then the email local part.
func (s *Service) CreateProfile(ctx context.Context, u *models.User, fullName string) (*models.Engineer, error) {
	existing, err := s.repo.Engineer.GetEngineerByUserID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if existing != nil {
		return existing, ErrProfileExists
	}

	name := strings.TrimSpace(fullName)
	if name == "" {
		name = strings.TrimSpace(u.FullName)
	}
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	if name == "" {
		name = "Engineer"
	}

	uid := u.ID
	millis := s.now().UnixMilli()
	// Two sign-ups in the same millisecond collide on the code; step forward.
	for attempt := range 5 {
		e := &models.Engineer{
			UserID:                &uid,
			EmployeeID:            fmt.Sprintf("ENG%d", millis+int64(attempt)),
			FullName:              name,
			Email:                 u.Email,
			Role:                  models.RoleEngineer,
			WeeklyHourRequirement: s.weeklyHours,
			IsActive:              true,
		}
		_, err := s.repo.Engineer.CreateEngineer(ctx, e)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		s.logger.Info("timesheet: profile created", slog.String("engineer_id", e.ID), slog.String("employee_id", e.EmployeeID))
		s.publish(notify.TableEngineers, "create", e.ID)
		return e, nil
	}
	return nil, fmt.Errorf("create profile: %w", repository.ErrDuplicate)
}

// Deactivate marks the engineer inactive. It cannot be undone by the
// engineer.
func (s *Service) Deactivate(ctx context.Context, e *models.Engineer) error {
	if err := s.repo.Engineer.SetEngineerActive(ctx, e.ID, false); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	e.IsActive = false
	s.logger.Info("timesheet: engineer deactivated", slog.String("engineer_id", e.ID))
	s.publish(notify.TableEngineers, "update", e.ID)
	return nil
}

// Submit validates sub and saves it as e's activity for sub.Date. Zero-hour
// entries are dropped; the activity row and its hours are written in one
// transaction.
func (s *Service) Submit(ctx context.Context, e *models.Engineer, sub Submission) (*models.DailyActivity, error) {
	if e == nil {
		return nil, ErrProfileMissing
	}
	if !e.IsActive {
		return nil, ErrDeactivated
	}

	ve := &ValidationError{}
	if _, err := models.ParseDate(sub.Date.String()); err != nil {
		ve.add("activity_date", "must be a YYYY-MM-DD date")
	}
	switch sub.Status {
	case "":
		sub.Status = models.StatusExecuted
	case models.StatusExecuted, models.StatusPlanning:
	default:
		ve.add("status", "must be planning or executed")
	}
	if sub.Version < 0 {
		ve.add("version", "must not be negative")
	}
	if !ve.empty() {
		return nil, ve
	}

	categories, err := s.repo.Category.ListServiceCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	known := make(map[string]models.ServiceCategory, len(categories))
	for _, c := range categories {
		known[c.ID] = c
	}
	existing, err := s.repo.Activity.GetActivityByDate(ctx, e.ID, sub.Date)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	kept := map[string]bool{}
	if existing != nil {
		for _, h := range existing.Hours {
			kept[h.ServiceCategoryID] = true
		}
	}

	seen := map[string]bool{}
	var hours []models.ActivityHour
	var total float64
	for i, h := range sub.Hours {
		field := fmt.Sprintf("hours[%d]", i)
		if math.IsNaN(h.Hours) || math.IsInf(h.Hours, 0) || h.Hours < 0 {
			ve.add(field+".hours", "must be zero or more")
			continue
		}
		if h.Hours == 0 {
			continue
		}
		c, ok := known[h.ServiceCategoryID]
		switch {
		case !ok:
			ve.add(field+".service_category_id", "unknown service category")
			continue
		case !c.IsActive && !kept[c.ID]:
			ve.add(field+".service_category_id", "service category is inactive")
			continue
		case seen[c.ID]:
			ve.add(field+".service_category_id", "service category listed twice")
			continue
		}
		seen[c.ID] = true
		hours = append(hours, models.ActivityHour{ServiceCategoryID: c.ID, CategoryName: c.Name, Hours: h.Hours, Description: strings.TrimSpace(h.Description)})
		total += h.Hours
	}
	if !ve.empty() {
		return nil, ve
	}
	if total <= 0 {
		return nil, ErrZeroHours
	}

	a := &models.DailyActivity{
		EngineerID:   e.ID,
		ActivityDate: sub.Date,
		CustomerName: strings.TrimSpace(sub.CustomerName),
		SiteLocation: strings.TrimSpace(sub.SiteLocation),
		Notes:        sub.Notes,
		Status:       sub.Status,
		TotalHours:   total,
		Hours:        hours,
	}
	saved, err := s.repo.Activity.SaveActivity(ctx, a, sub.Version)
	if err != nil {
		return nil, fmt.Errorf("save activity: %w", err)
	}

	s.logger.Info("timesheet: activity saved",
		slog.String("engineer_id", e.ID),
		slog.String("date", sub.Date.String()),
		slog.Float64("total_hours", saved.TotalHours),
		slog.Int64("version", saved.Version))
	s.publish(notify.TableActivities, "save", saved.ID)
	return saved, nil
}

// Activities lists e's own activities in [from, to]; zero bounds are open.
func (s *Service) Activities(ctx context.Context, e *models.Engineer, from, to models.Date) ([]models.DailyActivity, error) {
	list, err := s.repo.Activity.ListActivities(ctx, repository.ActivityQuery{EngineerID: e.ID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return list, nil
}

// DeleteActivity removes an activity and its hours.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	a, err := s.repo.Activity.GetActivity(ctx, id)
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return ErrNotFound
	}
	if err := s.repo.Activity.DeleteActivity(ctx, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	s.publish(notify.TableActivities, "delete", id)
	return nil
}

func (s *Service) publish(table, op, id string) {
	if s.hub != nil {
		s.hub.Publish(notify.Change{Table: table, Op: op, ID: id})
	}
}
