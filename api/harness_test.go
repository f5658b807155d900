package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garnizeh/fieldlog/api"
	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository/mock"
)

const testSecret = "router-secret"

// testNow is a Wednesday; with Sunday-first weeks the current week is
// 2024-01-14..2024-01-20.
var testNow = time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	store  *mock.Store
	hub    *notify.Hub
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	schemas, err := schema.Default()
	require.NoError(t, err, "load schemas")
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	api.SetLogger(quiet)

	store := mock.NewStore()
	hub := notify.NewHub(16, quiet)
	t.Cleanup(hub.Close)

	router := api.NewRouter(api.Deps{
		Repo:          store.Repository(),
		Hub:           hub,
		Schemas:       schemas,
		JWTSecret:     testSecret,
		TokenDuration: time.Hour,
		Clock:         api.Clock{Location: time.UTC, WeekStart: time.Sunday, Now: func() time.Time { return testNow }},
		TopCategories: 10,
		WeeklyHours:   40,
		VisibleLimit:  20,
		PingInterval:  time.Second,
		Version:       "test",
		Logger:        quiet,
	})
	return &harness{t: t, store: store, hub: hub, router: router}
}

// account creates a login without an engineer profile.
func (h *harness) account(email string) (string, string) {
	h.t.Helper()
	u := &models.User{Email: email, PasswordHash: "x"}
	_, err := h.store.CreateUser(h.t.Context(), u)
	require.NoError(h.t, err, "create user")
	tok, err := api.IssueToken(testSecret, u.ID, time.Hour)
	require.NoError(h.t, err, "issue token")
	return u.ID, tok
}

// engineer creates a login bound to an engineer profile and returns both.
func (h *harness) engineer(code, name string, role models.Role, active bool) (models.Engineer, string) {
	h.t.Helper()
	uid, tok := h.account(code + "@example.com")
	e := &models.Engineer{
		UserID:                &uid,
		EmployeeID:            code,
		FullName:              name,
		Email:                 code + "@example.com",
		Role:                  role,
		WeeklyHourRequirement: 40,
		IsActive:              active,
	}
	_, err := h.store.CreateEngineer(h.t.Context(), e)
	require.NoError(h.t, err, "create engineer")
	return *e, tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err, "marshal body")
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) expect(w *httptest.ResponseRecorder, status int) {
	h.t.Helper()
	require.Equal(h.t, status, w.Code, "body=%s", w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "decode %s", w.Body.String())
	return v
}

type errorBody struct {
	Error       string            `json:"error"`
	Code        string            `json:"code"`
	Fields      map[string]string `json:"fields"`
	Remediation string            `json:"remediation"`
}

func hours(entries ...any) []map[string]any {
	out := make([]map[string]any, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		out = append(out, map[string]any{"service_category_id": entries[i], "hours": entries[i+1]})
	}
	return out
}

// activity stores a day for e directly in the store.
func (h *harness) activity(e models.Engineer, date, customer string, status models.Status, hs ...models.ActivityHour) models.DailyActivity {
	h.t.Helper()
	a := &models.DailyActivity{
		EngineerID:   e.ID,
		ActivityDate: models.Date(date),
		CustomerName: customer,
		Status:       status,
		Hours:        hs,
	}
	for _, x := range hs {
		a.TotalHours += x.Hours
	}
	saved, err := h.store.SaveActivity(h.t.Context(), a, 0)
	require.NoError(h.t, err, "save activity")
	return *saved
}

func hour(c models.ServiceCategory, n float64) models.ActivityHour {
	return models.ActivityHour{ServiceCategoryID: c.ID, Hours: n}
}
