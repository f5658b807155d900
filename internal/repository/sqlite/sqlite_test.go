package sqlite_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/fieldlog/db"
	dbpkg "github.com/garnizeh/fieldlog/internal/db"
	sqlite "github.com/garnizeh/fieldlog/internal/repository/sqlite"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := dbpkg.New(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err, "open db")

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		d.Close()
		require.NoError(t, err, "migrate")
	}

	repo := sqlite.New(d, nil)
	return repo, func() { d.Close() }
}

func createEngineer(t *testing.T, repo *sqlite.SQLiteRepo, code, name string) *models.Engineer {
	t.Helper()
	e := &models.Engineer{EmployeeID: code, FullName: name, Email: strings.ToLower(code) + "@example.com", IsActive: true}
	_, err := repo.CreateEngineer(context.Background(), e)
	require.NoError(t, err, "CreateEngineer %s", code)
	return e
}

func categoryByName(t *testing.T, repo *sqlite.SQLiteRepo, name string) models.ServiceCategory {
	t.Helper()
	cats, err := repo.ListServiceCategories(context.Background(), true)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	require.FailNowf(t, "missing category", "category %q not seeded", name)
	return models.ServiceCategory{}
}

func TestUserCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, nil)
	assert.Error(t, err, "nil user")

	got, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown email")

	u := &models.User{Email: "Alice@Example.com", FullName: "Alice", PasswordHash: "hash"}
	id, err := repo.CreateUser(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, id, "generated id")

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = repo.CreateUser(ctx, &models.User{Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicate, "taken email")
}

func TestEngineerCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.CreateEngineer(ctx, nil)
	assert.Error(t, err, "nil engineer")
	assert.Error(t, repo.UpdateEngineer(ctx, nil), "nil engineer")

	got, err := repo.GetEngineer(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown id")

	e := &models.Engineer{EmployeeID: "ENG001", FullName: "Bob", Email: "bob@example.com", IsActive: true}
	id, err := repo.CreateEngineer(ctx, e)
	require.NoError(t, err)

	got, err = repo.GetEngineer(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RoleEngineer, got.Role)
	assert.Equal(t, float64(models.DefaultWeeklyHours), got.WeeklyHourRequirement)
	assert.True(t, got.IsActive)

	byCode, err := repo.GetEngineerByEmployeeID(ctx, "ENG001")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, id, byCode.ID)

	_, err = repo.CreateEngineer(ctx, &models.Engineer{EmployeeID: "ENG001", FullName: "Dup"})
	assert.ErrorIs(t, err, repository.ErrDuplicate, "employee code taken")

	got.FullName = "Bob Builder"
	got.Role = models.RoleLimitedAdmin
	got.WeeklyHourRequirement = 32
	require.NoError(t, repo.UpdateEngineer(ctx, got))
	require.NoError(t, repo.SetEngineerActive(ctx, id, false))

	got, _ = repo.GetEngineer(ctx, id)
	require.NotNil(t, got)
	assert.Equal(t, "Bob Builder", got.FullName)
	assert.Equal(t, models.RoleLimitedAdmin, got.Role)
	assert.Equal(t, 32.0, got.WeeklyHourRequirement)
	assert.False(t, got.IsActive)

	list, err := repo.ListEngineers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteEngineer(ctx, id))
	after, err := repo.GetEngineer(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, after, "deleted engineer")
}

func TestEngineerByUserID(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := repo.CreateUser(ctx, &models.User{Email: "carol@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	e := &models.Engineer{UserID: &uid, EmployeeID: "ENG002", FullName: "Carol", Email: "carol@example.com", IsActive: true}
	_, err = repo.CreateEngineer(ctx, e)
	require.NoError(t, err)

	got, err := repo.GetEngineerByUserID(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, uid, *got.UserID)
}

func TestCategories(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	seeded, err := repo.ListServiceCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, seeded, 10)

	c := &models.ServiceCategory{Name: "Audit", IsActive: true}
	id, err := repo.CreateServiceCategory(ctx, c)
	require.NoError(t, err)
	_, err = repo.CreateServiceCategory(ctx, &models.ServiceCategory{Name: "Audit"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, repo.SetServiceCategoryActive(ctx, id, false))
	active, _ := repo.ListServiceCategories(ctx, true)
	all, _ := repo.ListServiceCategories(ctx, false)
	assert.Len(t, active, 10)
	assert.Len(t, all, 11)
}

func TestSaveActivity_UpsertByDate(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	e := createEngineer(t, repo, "ENG010", "Dana")
	install := categoryByName(t, repo, "Installation")
	travel := categoryByName(t, repo, "Travel")

	a := &models.DailyActivity{
		EngineerID:   e.ID,
		ActivityDate: "2025-03-03",
		CustomerName: "Acme",
		SiteLocation: "Plant 1",
		Hours: []models.ActivityHour{
			{ServiceCategoryID: install.ID, Hours: 3},
			{ServiceCategoryID: travel.ID, Hours: 2},
			{ServiceCategoryID: categoryByName(t, repo, "Training").ID, Hours: 0},
		},
	}
	saved, err := repo.SaveActivity(ctx, a, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, saved.Version)
	assert.Equal(t, models.StatusExecuted, saved.Status)
	assert.Equal(t, 5.0, saved.TotalHours)
	require.Len(t, saved.Hours, 2)
	assert.Equal(t, "Installation", saved.Hours[0].CategoryName)
	assert.Equal(t, "ENG010", saved.Engineer.EmployeeID)

	a.CustomerName = "Acme Corp"
	a.Hours = []models.ActivityHour{{ServiceCategoryID: install.ID, Hours: 6}}
	again, err := repo.SaveActivity(ctx, a, 0)
	require.NoError(t, err, "second SaveActivity")
	assert.Equal(t, saved.ID, again.ID)
	assert.EqualValues(t, 2, again.Version)
	assert.Equal(t, 6.0, again.TotalHours)
	assert.Len(t, again.Hours, 1)
	assert.Equal(t, "Acme Corp", again.CustomerName)

	list, err := repo.ListActivities(ctx, repository.ActivityQuery{EngineerID: e.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1, "one activity per date")
}

func TestSaveActivity_StaleVersion(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	e := createEngineer(t, repo, "ENG011", "Eve")
	cat := categoryByName(t, repo, "Calibration")
	a := &models.DailyActivity{EngineerID: e.ID, ActivityDate: "2025-03-04", Hours: []models.ActivityHour{{ServiceCategoryID: cat.ID, Hours: 4}}}

	_, err := repo.SaveActivity(ctx, a, 0)
	require.NoError(t, err)
	_, err = repo.SaveActivity(ctx, a, 1)
	require.NoError(t, err, "save at current version")

	a.Hours = []models.ActivityHour{{ServiceCategoryID: cat.ID, Hours: 9}}
	_, err = repo.SaveActivity(ctx, a, 1)
	assert.ErrorIs(t, err, repository.ErrConflict, "stale version")

	got, _ := repo.GetActivityByDate(ctx, e.ID, "2025-03-04")
	require.NotNil(t, got)
	assert.Equal(t, 4.0, got.TotalHours, "stale save must not write")
	assert.EqualValues(t, 2, got.Version)

	_, err = repo.SaveActivity(ctx, &models.DailyActivity{EngineerID: e.ID, ActivityDate: "2025-03-05"}, 3)
	assert.ErrorIs(t, err, repository.ErrConflict, "versioned save of a missing row")
}

func TestUpsertAndReplaceHours(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	e := createEngineer(t, repo, "ENG012", "Finn")
	a, err := repo.UpsertActivity(ctx, &models.DailyActivity{EngineerID: e.ID, ActivityDate: "2025-03-06", Status: models.StatusPlanning})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlanning, a.Status)
	assert.Empty(t, a.Hours)

	survey := categoryByName(t, repo, "Site Survey")
	docs := categoryByName(t, repo, "Documentation")
	submitted := []models.ActivityHour{
		{ServiceCategoryID: survey.ID, Hours: 2.5, Description: "walkdown"},
		{ServiceCategoryID: docs.ID, Hours: 0},
		{ServiceCategoryID: docs.ID, Hours: 1},
	}
	require.NoError(t, repo.ReplaceActivityHours(ctx, a.ID, submitted))

	got, err := repo.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Hours, 2, "only non-zero rows")
	assert.Equal(t, 2.5, got.Hours[0].Hours)
	assert.Equal(t, "walkdown", got.Hours[0].Description)
	assert.Equal(t, 1.0, got.Hours[1].Hours)
	assert.Equal(t, 3.5, got.TotalHours, "total recomputed")
}

func TestListActivities_OrderAndRange(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	e1 := createEngineer(t, repo, "ENG020", "Gail")
	e2 := createEngineer(t, repo, "ENG021", "Hank")
	cat := categoryByName(t, repo, "Travel")

	for _, s := range []struct {
		eng  string
		date models.Date
	}{
		{e1.ID, "2025-03-01"},
		{e1.ID, "2025-03-03"},
		{e2.ID, "2025-03-03"},
		{e2.ID, "2025-03-10"},
	} {
		a := &models.DailyActivity{EngineerID: s.eng, ActivityDate: s.date, Hours: []models.ActivityHour{{ServiceCategoryID: cat.ID, Hours: 1}}}
		_, err := repo.SaveActivity(ctx, a, 0)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.ListActivities(ctx, repository.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, models.Date("2025-03-10"), all[0].ActivityDate)
	assert.Equal(t, models.Date("2025-03-01"), all[3].ActivityDate)
	// same date: newest submission first
	assert.Equal(t, e2.ID, all[1].EngineerID)
	assert.Equal(t, e1.ID, all[2].EngineerID)
	for _, a := range all {
		require.Len(t, a.Hours, 1, "hours attached")
		assert.Equal(t, "Travel", a.Hours[0].CategoryName)
	}

	ranged, err := repo.ListActivities(ctx, repository.ActivityQuery{From: "2025-03-02", To: "2025-03-09"})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	none, err := repo.ListActivities(ctx, repository.ActivityQuery{EngineerID: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, repo.DeleteActivity(ctx, all[0].ID))
	gone, _ := repo.GetActivity(ctx, all[0].ID)
	assert.Nil(t, gone, "activity deleted")
}

func TestNotifications_Visibility(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	x := createEngineer(t, repo, "ENG030", "Xavier")
	y := createEngineer(t, repo, "ENG031", "Yara")

	broadcast := &models.Notification{Message: "Site closed Friday", RecipientType: models.RecipientAll, SentBy: "admin"}
	_, err := repo.CreateNotification(ctx, broadcast)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	toX := &models.Notification{Message: "Submit Monday", RecipientType: models.RecipientSpecific, RecipientEngineerID: &x.ID, SentBy: "admin"}
	_, err = repo.CreateNotification(ctx, toX)
	require.NoError(t, err)
	toY := &models.Notification{Message: "For Yara", RecipientType: models.RecipientSpecific, RecipientEngineerID: &y.ID, SentBy: "admin"}
	_, err = repo.CreateNotification(ctx, toY)
	require.NoError(t, err)

	list, err := repo.ListNotificationsFor(ctx, x.ID, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, toX.ID, list[0].ID)
	assert.Equal(t, broadcast.ID, list[1].ID)

	ok, err := repo.MarkRead(ctx, toY.ID, x.ID)
	require.NoError(t, err)
	assert.False(t, ok, "MarkRead refused for invisible notification")
	ok, err = repo.MarkRead(ctx, broadcast.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	unreadX, _ := repo.CountUnread(ctx, x.ID)
	unreadY, _ := repo.CountUnread(ctx, y.ID)
	assert.EqualValues(t, 1, unreadX, "per-recipient read state")
	assert.EqualValues(t, 2, unreadY, "per-recipient read state")

	n, err := repo.MarkAllRead(ctx, x.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	list, _ = repo.ListNotificationsFor(ctx, x.ID, 20)
	for _, item := range list {
		assert.True(t, item.IsRead, "notification %s still unread", item.ID)
	}

	// marking again is a no-op
	ok, _ = repo.MarkRead(ctx, broadcast.ID, x.ID)
	assert.True(t, ok, "repeat MarkRead")
}

func TestNotifications_Limit(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	x := createEngineer(t, repo, "ENG040", "Zed")
	for range 25 {
		_, err := repo.CreateNotification(ctx, &models.Notification{Message: "m", RecipientType: models.RecipientAll})
		require.NoError(t, err)
	}

	list, err := repo.ListNotificationsFor(ctx, x.ID, 20)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
