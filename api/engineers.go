package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// EngineersHandler is the admin roster.
type EngineersHandler struct {
	engineerRepo repository.EngineerRepo
	userRepo     repository.UserRepo
	schemas      *schema.Loader
	hub          *notify.Hub
	weeklyHours  float64
}

func NewEngineersHandler(er repository.EngineerRepo, ur repository.UserRepo, schemas *schema.Loader, hub *notify.Hub, weeklyHours float64) *EngineersHandler {
	if weeklyHours <= 0 {
		weeklyHours = models.DefaultWeeklyHours
	}
	return &EngineersHandler{engineerRepo: er, userRepo: ur, schemas: schemas, hub: hub, weeklyHours: weeklyHours}
}

type engineerRequest struct {
	EmployeeID            string      `json:"employee_id"`
	FullName              string      `json:"full_name"`
	Email                 string      `json:"email"`
	Role                  models.Role `json:"role"`
	WeeklyHourRequirement float64     `json:"weekly_hour_requirement"`
	IsActive              *bool       `json:"is_active"`
}

func (req engineerRequest) apply(e *models.Engineer, defaultHours float64) {
	e.EmployeeID = strings.TrimSpace(req.EmployeeID)
	e.FullName = strings.TrimSpace(req.FullName)
	e.Email = strings.ToLower(strings.TrimSpace(req.Email))
	e.Role = req.Role
	e.WeeklyHourRequirement = req.WeeklyHourRequirement
	if e.WeeklyHourRequirement <= 0 {
		e.WeeklyHourRequirement = defaultHours
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
}

func (h *EngineersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.engineerRepo.ListEngineers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Engineer{}
	}
	writeJSON(w, list, http.StatusOK)
}

// Create adds an engineer to the roster. When an account with the same email
// already exists and has no profile yet, the new row is bound to it.
func (h *EngineersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req engineerRequest
	if err := readValidated(w, r, h.schemas, schema.Engineer, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if req.Role == "" {
		req.Role = models.RoleEngineer
	}
	e := &models.Engineer{IsActive: true}
	req.apply(e, h.weeklyHours)

	u, err := h.userRepo.GetUserByEmail(r.Context(), e.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if u != nil {
		bound, err := h.engineerRepo.GetEngineerByUserID(r.Context(), u.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if bound == nil {
			e.UserID = &u.ID
		}
	}

	if _, err := h.engineerRepo.CreateEngineer(r.Context(), e); err != nil {
		writeServiceError(w, r, fmt.Errorf("create engineer: %w", err))
		return
	}
	logger.Info("engineer created", slog.String("engineer_id", e.ID), slog.String("employee_id", e.EmployeeID))
	h.publish("create", e.ID)
	writeJSON(w, e, http.StatusCreated)
}

func (h *EngineersHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}

	var req engineerRequest
	if err := readValidated(w, r, h.schemas, schema.Engineer, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Omitted fields keep their stored values.
	if req.Role == "" {
		req.Role = e.Role
	}
	if req.WeeklyHourRequirement <= 0 {
		req.WeeklyHourRequirement = e.WeeklyHourRequirement
	}
	req.apply(e, h.weeklyHours)

	if err := h.engineerRepo.UpdateEngineer(r.Context(), e); err != nil {
		writeServiceError(w, r, fmt.Errorf("update engineer: %w", err))
		return
	}
	h.publish("update", e.ID)
	writeJSON(w, e, http.StatusOK)
}

func (h *EngineersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}
	if self := engineerFrom(r.Context()); self != nil && self.ID == e.ID {
		writeError(w, http.StatusConflict, CodeConflict, "cannot delete your own profile")
		return
	}
	if err := h.engineerRepo.DeleteEngineer(r.Context(), e.ID); err != nil {
		writeServiceError(w, r, fmt.Errorf("delete engineer: %w", err))
		return
	}
	logger.Info("engineer deleted", slog.String("engineer_id", e.ID))
	h.publish("delete", e.ID)
	w.WriteHeader(http.StatusNoContent)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetActive toggles an engineer's is_active flag.
func (h *EngineersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}
	active, err := readActive(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.engineerRepo.SetEngineerActive(r.Context(), e.ID, active); err != nil {
		writeServiceError(w, r, fmt.Errorf("set engineer active: %w", err))
		return
	}
	e.IsActive = active
	h.publish("update", e.ID)
	writeJSON(w, e, http.StatusOK)
}

func (h *EngineersHandler) load(w http.ResponseWriter, r *http.Request) (*models.Engineer, bool) {
	e, err := h.engineerRepo.GetEngineer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if e == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "engineer not found")
		return nil, false
	}
	return e, true
}

func (h *EngineersHandler) publish(op, id string) {
	if h.hub != nil {
		h.hub.Publish(notify.Change{Table: notify.TableEngineers, Op: op, ID: id})
	}
}

// readActive decodes a {"is_active": bool} body.
func readActive(w http.ResponseWriter, r *http.Request) (bool, error) {
	var req activeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.IsActive == nil {
		return false, fieldError("is_active", "must be a boolean")
	}
	return *req.IsActive, nil
}
