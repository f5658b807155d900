package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

type CategoriesHandler struct {
	categoryRepo repository.CategoryRepo
	schemas      *schema.Loader
	hub          *notify.Hub
}

func NewCategoriesHandler(cr repository.CategoryRepo, schemas *schema.Loader, hub *notify.Hub) *CategoriesHandler {
	return &CategoriesHandler{categoryRepo: cr, schemas: schemas, hub: hub}
}

// List returns service categories by name; ?active=true hides retired ones.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.categoryRepo.ListServiceCategories(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.ServiceCategory{}
	}
	writeJSON(w, list, http.StatusOK)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readValidated(w, r, h.schemas, schema.Category, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeServiceError(w, r, fieldError("name", "must not be blank"))
		return
	}

	c := &models.ServiceCategory{Name: name, Description: strings.TrimSpace(req.Description), IsActive: true}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if _, err := h.categoryRepo.CreateServiceCategory(r.Context(), c); err != nil {
		writeServiceError(w, r, fmt.Errorf("create category: %w", err))
		return
	}
	h.publish("create", c.ID)
	writeJSON(w, c, http.StatusCreated)
}

// SetActive retires or restores a category. Existing activities keep
// referencing retired categories.
func (h *CategoriesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	all, err := h.categoryRepo.ListServiceCategories(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var c *models.ServiceCategory
	for i := range all {
		if all[i].ID == id {
			c = &all[i]
			break
		}
	}
	if c == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "category not found")
		return
	}

	active, err := readActive(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.categoryRepo.SetServiceCategoryActive(r.Context(), id, active); err != nil {
		writeServiceError(w, r, fmt.Errorf("set category active: %w", err))
		return
	}
	c.IsActive = active
	h.publish("update", id)
	writeJSON(w, c, http.StatusOK)
}

func (h *CategoriesHandler) publish(op, id string) {
	if h.hub != nil {
		h.hub.Publish(notify.Change{Table: notify.TableCategories, Op: op, ID: id})
	}
}
