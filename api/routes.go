package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/config"
	"github.com/garnizeh/fieldlog/internal/db"
	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/repository/sqlite"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/internal/timesheet"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// Deps is everything the router needs. Tests build it around an in-memory
// store; SetupRoutes builds it from configuration.
type Deps struct {
	Repo          *repository.Repository
	Hub           *notify.Hub
	Schemas       *schema.Loader
	JWTSecret     string
	TokenDuration time.Duration
	Clock         Clock
	TopCategories int
	WeeklyHours   float64
	VisibleLimit  int
	PingInterval  time.Duration
	Version       string
	BuildTime     string
	Logger        *slog.Logger
}

func SetupRoutes(cfg *config.Config, version, buildTime string, d *db.DB, hub *notify.Hub) (*mux.Router, error) {
	schemas, err := schema.Default()
	if err != nil {
		return nil, err
	}

	return NewRouter(Deps{
		Repo:          sqlite.New(d, d.Logger()).Repository(),
		Hub:           hub,
		Schemas:       schemas,
		JWTSecret:     cfg.JWTSecret,
		TokenDuration: cfg.TokenDuration,
		Clock:         Clock{Location: cfg.Location(), WeekStart: cfg.WeekStartDay()},
		TopCategories: cfg.Analytics.TopCategories,
		WeeklyHours:   cfg.Analytics.DefaultWeeklyHours,
		VisibleLimit:  cfg.Notifications.VisibleLimit,
		PingInterval:  cfg.Notifications.PingInterval,
		Version:       version,
		BuildTime:     buildTime,
		Logger:        d.Logger(),
	}), nil
}

func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	svc := timesheet.NewService(deps.Repo, deps.Hub, deps.WeeklyHours, deps.Logger)
	relay := notify.NewRelay(deps.Repo.Notification, deps.Repo.Engineer, deps.Hub, deps.VisibleLimit, deps.Logger)
	authz := NewAuthorizer(svc)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(deps.Repo.User, deps.Schemas, deps.JWTSecret, deps.TokenDuration)
	meHandler := NewMeHandler(deps.Repo.User, svc, relay, deps.Schemas)
	engineersHandler := NewEngineersHandler(deps.Repo.Engineer, deps.Repo.User, deps.Schemas, deps.Hub, deps.WeeklyHours)
	categoriesHandler := NewCategoriesHandler(deps.Repo.Category, deps.Schemas, deps.Hub)
	activitiesHandler := NewActivitiesHandler(deps.Repo.Activity, svc, deps.Clock)
	reportsHandler := NewReportsHandler(deps.Repo, deps.Clock, deps.TopCategories)
	notificationsHandler := NewNotificationsHandler(relay, deps.Schemas)
	changesHandler := NewChangesHandler(deps.Hub, deps.PingInterval)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(deps.Version, deps.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(deps.JWTSecret))

	// Role gates load the caller's profile from the store on every request.
	anyProfile := authz.Require()
	oversight := authz.Require(models.RoleAdmin, models.RoleLimitedAdmin)
	adminOnly := authz.Require(models.RoleAdmin)
	gate := func(mw mux.MiddlewareFunc, h http.HandlerFunc) http.Handler { return mw(h) }

	// Auth endpoints
	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")

	// Self-service
	apiV1.HandleFunc("/me/profile", meHandler.CreateProfile).Methods("POST")
	apiV1.Handle("/me", gate(anyProfile, meHandler.Get)).Methods("GET")
	apiV1.Handle("/me/deactivate", gate(anyProfile, meHandler.Deactivate)).Methods("POST")
	apiV1.Handle("/me/activities", gate(anyProfile, meHandler.Activities)).Methods("GET")
	apiV1.Handle("/me/activities/{date}", gate(anyProfile, meHandler.SaveActivity)).Methods("PUT")
	apiV1.Handle("/me/calendar", gate(anyProfile, meHandler.Calendar)).Methods("GET")
	apiV1.Handle("/me/notifications", gate(anyProfile, meHandler.Notifications)).Methods("GET")
	apiV1.Handle("/me/notifications/read-all", gate(anyProfile, meHandler.MarkAllRead)).Methods("POST")
	apiV1.Handle("/me/notifications/{id}/read", gate(anyProfile, meHandler.MarkRead)).Methods("POST")

	// Service categories
	apiV1.Handle("/categories", gate(anyProfile, categoriesHandler.List)).Methods("GET")
	apiV1.Handle("/categories", gate(adminOnly, categoriesHandler.Create)).Methods("POST")
	apiV1.Handle("/categories/{id}", gate(adminOnly, categoriesHandler.SetActive)).Methods("PATCH")

	// Engineers
	apiV1.Handle("/engineers", gate(oversight, engineersHandler.List)).Methods("GET")
	apiV1.Handle("/engineers", gate(adminOnly, engineersHandler.Create)).Methods("POST")
	apiV1.Handle("/engineers/{id}", gate(adminOnly, engineersHandler.Update)).Methods("PUT")
	apiV1.Handle("/engineers/{id}", gate(adminOnly, engineersHandler.Delete)).Methods("DELETE")
	apiV1.Handle("/engineers/{id}/active", gate(adminOnly, engineersHandler.SetActive)).Methods("POST")

	// Activities
	apiV1.Handle("/activities", gate(oversight, activitiesHandler.ListActivities)).Methods("GET")
	apiV1.Handle("/activities/export", gate(oversight, activitiesHandler.Export)).Methods("GET")
	apiV1.Handle("/activities/{id}", gate(adminOnly, activitiesHandler.DeleteActivity)).Methods("DELETE")

	// Reports
	apiV1.Handle("/analytics", gate(oversight, reportsHandler.Analytics)).Methods("GET")
	apiV1.Handle("/dashboard", gate(oversight, reportsHandler.Dashboard)).Methods("GET")
	apiV1.Handle("/calendar", gate(oversight, reportsHandler.Calendar)).Methods("GET")

	// Notifications
	apiV1.Handle("/notifications", gate(adminOnly, notificationsHandler.Send)).Methods("POST")

	// Change feed
	apiV1.Handle("/changes", gate(anyProfile, changesHandler.Serve)).Methods("GET")

	return r
}
