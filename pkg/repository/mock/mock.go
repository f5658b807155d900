package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of every repository interface, for
// tests. Setting Err makes every call fail with it.
type Store struct {
	mu sync.Mutex

	Err error

	users         map[string]models.User
	engineers     map[string]models.Engineer
	activities    map[string]models.DailyActivity
	categories    []models.ServiceCategory
	notifications []models.Notification
	reads         map[string]bool
}

var _ repository.UserRepo = (*Store)(nil)
var _ repository.EngineerRepo = (*Store)(nil)
var _ repository.ActivityRepo = (*Store)(nil)
var _ repository.CategoryRepo = (*Store)(nil)
var _ repository.NotificationRepo = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:      map[string]models.User{},
		engineers:  map[string]models.Engineer{},
		activities: map[string]models.DailyActivity{},
		reads:      map[string]bool{},
	}
}

// Repository returns s wired into every slot of the aggregate repository.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{User: s, Engineer: s, Activity: s, Category: s, Notification: s}
}

// AddCategory registers an active category and returns it.
func (s *Store) AddCategory(name string) models.ServiceCategory {
	c := models.ServiceCategory{ID: uuid.NewString(), Name: name, IsActive: true, Created: time.Now().UTC()}
	s.mu.Lock()
	s.categories = append(s.categories, c)
	s.mu.Unlock()
	return c
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if u == nil {
		return "", fmt.Errorf("user is nil")
	}
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return "", repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Created = time.Now().UTC()
	s.users[u.ID] = *u
	return u.ID, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) ListEngineers(ctx context.Context) ([]models.Engineer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.Engineer, 0, len(s.engineers))
	for _, e := range s.engineers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) GetEngineer(ctx context.Context, id string) (*models.Engineer, error) {
	return s.findEngineer(func(e models.Engineer) bool { return e.ID == id })
}

func (s *Store) GetEngineerByEmployeeID(ctx context.Context, employeeID string) (*models.Engineer, error) {
	return s.findEngineer(func(e models.Engineer) bool { return e.EmployeeID == employeeID })
}

func (s *Store) GetEngineerByUserID(ctx context.Context, userID string) (*models.Engineer, error) {
	return s.findEngineer(func(e models.Engineer) bool { return e.UserID != nil && *e.UserID == userID })
}

func (s *Store) findEngineer(match func(models.Engineer) bool) (*models.Engineer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, e := range s.engineers {
		if match(e) {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateEngineer(ctx context.Context, e *models.Engineer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if e == nil {
		return "", fmt.Errorf("engineer is nil")
	}
	for _, existing := range s.engineers {
		if existing.EmployeeID == e.EmployeeID {
			return "", repository.ErrDuplicate
		}
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
	e.Created = time.Now().UTC()
	e.Updated = e.Created
	s.engineers[e.ID] = *e
	return e.ID, nil
}

func (s *Store) UpdateEngineer(ctx context.Context, e *models.Engineer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e == nil {
		return fmt.Errorf("engineer is nil")
	}
	for id, existing := range s.engineers {
		if id != e.ID && existing.EmployeeID == e.EmployeeID {
			return repository.ErrDuplicate
		}
	}
	if _, ok := s.engineers[e.ID]; ok {
		e.Updated = time.Now().UTC()
		s.engineers[e.ID] = *e
	}
	return nil
}

func (s *Store) SetEngineerActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e, ok := s.engineers[id]; ok {
		e.IsActive = active
		s.engineers[id] = e
	}
	return nil
}

func (s *Store) DeleteEngineer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.engineers, id)
	for aid, a := range s.activities {
		if a.EngineerID == id {
			delete(s.activities, aid)
		}
	}
	return nil
}

func (s *Store) ListActivities(ctx context.Context, q repository.ActivityQuery) ([]models.DailyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.DailyActivity{}
	for _, a := range s.activities {
		if q.EngineerID != "" && a.EngineerID != q.EngineerID {
			continue
		}
		if !q.From.IsZero() && a.ActivityDate.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && a.ActivityDate.After(q.To) {
			continue
		}
		out = append(out, s.hydrate(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ActivityDate != out[j].ActivityDate {
			return out[i].ActivityDate.After(out[j].ActivityDate)
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// hydrate fills the denormalised engineer and category names.
func (s *Store) hydrate(a models.DailyActivity) models.DailyActivity {
	if e, ok := s.engineers[a.EngineerID]; ok {
		a.Engineer = models.EngineerRef{FullName: e.FullName, EmployeeID: e.EmployeeID}
	}
	hours := make([]models.ActivityHour, len(a.Hours))
	for i, h := range a.Hours {
		for _, c := range s.categories {
			if c.ID == h.ServiceCategoryID {
				h.CategoryName = c.Name
			}
		}
		hours[i] = h
	}
	a.Hours = hours
	return a
}

func (s *Store) GetActivity(ctx context.Context, id string) (*models.DailyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if a, ok := s.activities[id]; ok {
		a = s.hydrate(a)
		return &a, nil
	}
	return nil, nil
}

func (s *Store) GetActivityByDate(ctx context.Context, engineerID string, date models.Date) (*models.DailyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if a, ok := s.byDate(engineerID, date); ok {
		a = s.hydrate(a)
		return &a, nil
	}
	return nil, nil
}

func (s *Store) byDate(engineerID string, date models.Date) (models.DailyActivity, bool) {
	for _, a := range s.activities {
		if a.EngineerID == engineerID && a.ActivityDate == date {
			return a, true
		}
	}
	return models.DailyActivity{}, false
}

func (s *Store) upsert(a *models.DailyActivity) models.DailyActivity {
	now := time.Now().UTC()
	stored, ok := s.byDate(a.EngineerID, a.ActivityDate)
	if !ok {
		stored = models.DailyActivity{ID: uuid.NewString(), EngineerID: a.EngineerID, ActivityDate: a.ActivityDate}
	} else {
		stored.Version++
	}
	if stored.Version == 0 {
		stored.Version = 1
	}
	stored.CustomerName = a.CustomerName
	stored.SiteLocation = a.SiteLocation
	stored.Notes = a.Notes
	stored.Status = a.Status
	if stored.Status == "" {
		stored.Status = models.StatusExecuted
	}
	stored.TotalHours = a.TotalHours
	stored.SubmittedAt = now
	stored.Updated = now
	s.activities[stored.ID] = stored
	return stored
}

func (s *Store) replace(activityID string, hours []models.ActivityHour) {
	a := s.activities[activityID]
	a.Hours = nil
	a.TotalHours = 0
	for _, h := range hours {
		if h.Hours <= 0 {
			continue
		}
		h.ID = uuid.NewString()
		h.DailyActivityID = activityID
		h.CategoryName = ""
		a.Hours = append(a.Hours, h)
		a.TotalHours += h.Hours
	}
	s.activities[activityID] = a
}

func (s *Store) UpsertActivity(ctx context.Context, a *models.DailyActivity) (*models.DailyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if a == nil {
		return nil, fmt.Errorf("activity is nil")
	}
	stored := s.hydrate(s.upsert(a))
	return &stored, nil
}

func (s *Store) ReplaceActivityHours(ctx context.Context, activityID string, hours []models.ActivityHour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.activities[activityID]; !ok {
		return errors.New("activity not found")
	}
	s.replace(activityID, hours)
	return nil
}

func (s *Store) SaveActivity(ctx context.Context, a *models.DailyActivity, expectedVersion int64) (*models.DailyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if a == nil {
		return nil, fmt.Errorf("activity is nil")
	}
	if expectedVersion > 0 {
		current, ok := s.byDate(a.EngineerID, a.ActivityDate)
		if !ok || current.Version != expectedVersion {
			return nil, repository.ErrConflict
		}
	}
	stored := s.upsert(a)
	s.replace(stored.ID, a.Hours)
	out := s.hydrate(s.activities[stored.ID])
	return &out, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.activities, id)
	return nil
}

func (s *Store) ListServiceCategories(ctx context.Context, activeOnly bool) ([]models.ServiceCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.ServiceCategory{}
	for _, c := range s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CreateServiceCategory(ctx context.Context, c *models.ServiceCategory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if c == nil {
		return "", fmt.Errorf("category is nil")
	}
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return "", repository.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Created = time.Now().UTC()
	s.categories = append(s.categories, *c)
	return c.ID, nil
}

func (s *Store) SetServiceCategoryActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i].IsActive = active
		}
	}
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if n == nil {
		return "", fmt.Errorf("notification is nil")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.SentAt = time.Now().UTC()
	s.notifications = append(s.notifications, *n)
	return n.ID, nil
}

func visible(n models.Notification, engineerID string) bool {
	return n.RecipientType == models.RecipientAll || (n.RecipientEngineerID != nil && *n.RecipientEngineerID == engineerID)
}

func (s *Store) ListNotificationsFor(ctx context.Context, engineerID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if !visible(n, engineerID) {
			continue
		}
		n.IsRead = s.reads[n.ID+"/"+engineerID]
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkRead(ctx context.Context, id, engineerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, n := range s.notifications {
		if n.ID == id && visible(n, engineerID) {
			s.reads[id+"/"+engineerID] = true
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) MarkAllRead(ctx context.Context, engineerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var marked int64
	for _, n := range s.notifications {
		key := n.ID + "/" + engineerID
		if visible(n, engineerID) && !s.reads[key] {
			s.reads[key] = true
			marked++
		}
	}
	return marked, nil
}

func (s *Store) CountUnread(ctx context.Context, engineerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var unread int64
	for _, n := range s.notifications {
		if visible(n, engineerID) && !s.reads[n.ID+"/"+engineerID] {
			unread++
		}
	}
	return unread, nil
}
