package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/fieldlog/pkg/models"
)

func TestEngineersCRUD(t *testing.T) {
	h := newHarness(t)
	self, admin := h.engineer("A1", "Root", models.RoleAdmin, true)

	w := h.do(http.MethodPost, "/v1/engineers", admin, map[string]any{
		"employee_id": "E9",
		"full_name":   "Nine",
		"email":       "Nine@Example.com",
		"role":        "limited_admin",
	})
	h.expect(w, http.StatusCreated)
	e := decode[models.Engineer](t, w)
	assert.Equal(t, models.RoleLimitedAdmin, e.Role)
	assert.Equal(t, 40.0, e.WeeklyHourRequirement)
	assert.True(t, e.IsActive)
	assert.Equal(t, "nine@example.com", e.Email)

	t.Run("DuplicateCode", func(t *testing.T) {
		h.expect(h.do(http.MethodPost, "/v1/engineers", admin, map[string]any{"employee_id": "E9", "full_name": "Dup", "email": "dup@example.com"}), http.StatusConflict)
	})
	t.Run("InvalidRole", func(t *testing.T) {
		h.expect(h.do(http.MethodPost, "/v1/engineers", admin, map[string]any{"employee_id": "E8", "full_name": "X", "email": "x@example.com", "role": "root"}), http.StatusBadRequest)
	})

	w = h.do(http.MethodPut, "/v1/engineers/"+e.ID, admin, map[string]any{
		"employee_id":             "E9",
		"full_name":               "Nine Renamed",
		"email":                   "nine@example.com",
		"role":                    "engineer",
		"weekly_hour_requirement": 32,
	})
	h.expect(w, http.StatusOK)
	got := decode[models.Engineer](t, w)
	assert.Equal(t, "Nine Renamed", got.FullName)
	assert.Equal(t, 32.0, got.WeeklyHourRequirement)
	assert.Equal(t, models.RoleEngineer, got.Role)

	w = h.do(http.MethodPost, "/v1/engineers/"+e.ID+"/active", admin, map[string]bool{"is_active": false})
	h.expect(w, http.StatusOK)
	assert.False(t, decode[models.Engineer](t, w).IsActive)
	h.expect(h.do(http.MethodPost, "/v1/engineers/"+e.ID+"/active", admin, map[string]string{}), http.StatusBadRequest)

	w = h.do(http.MethodGet, "/v1/engineers", admin, nil)
	h.expect(w, http.StatusOK)
	assert.Len(t, decode[[]models.Engineer](t, w), 2)

	h.expect(h.do(http.MethodDelete, "/v1/engineers/"+self.ID, admin, nil), http.StatusConflict)
	h.expect(h.do(http.MethodDelete, "/v1/engineers/"+e.ID, admin, nil), http.StatusNoContent)
	h.expect(h.do(http.MethodDelete, "/v1/engineers/"+e.ID, admin, nil), http.StatusNotFound)
	h.expect(h.do(http.MethodPut, "/v1/engineers/missing", admin, map[string]any{"employee_id": "Z", "full_name": "Z", "email": "z@example.com"}), http.StatusNotFound)
}

func TestUpdateEngineerKeepsOmittedFields(t *testing.T) {
	h := newHarness(t)
	_, admin := h.engineer("A1", "Root", models.RoleAdmin, true)

	cases := []struct {
		name string
		role models.Role
	}{
		{name: "Admin", role: models.RoleAdmin},
		{name: "LimitedAdmin", role: models.RoleLimitedAdmin},
		{name: "Engineer", role: models.RoleEngineer},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code := "K-" + c.name
			target, _ := h.engineer(code, "Before", c.role, true)

			w := h.do(http.MethodPut, "/v1/engineers/"+target.ID, admin, map[string]any{
				"employee_id": code,
				"full_name":   "After",
				"email":       target.Email,
			})
			h.expect(w, http.StatusOK)
			got := decode[models.Engineer](t, w)
			assert.Equal(t, "After", got.FullName)
			assert.Equal(t, c.role, got.Role, "role must survive a rename")
			assert.Equal(t, target.WeeklyHourRequirement, got.WeeklyHourRequirement)
			assert.True(t, got.IsActive)

			stored, err := h.store.GetEngineer(t.Context(), target.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, c.role, stored.Role)
		})
	}

	t.Run("SelfRenameKeepsAccess", func(t *testing.T) {
		self, tok := h.engineer("A2", "Second", models.RoleAdmin, true)
		h.expect(h.do(http.MethodPut, "/v1/engineers/"+self.ID, tok, map[string]any{
			"employee_id": "A2",
			"full_name":   "Second Renamed",
			"email":       self.Email,
		}), http.StatusOK)
		h.expect(h.do(http.MethodGet, "/v1/engineers", tok, nil), http.StatusOK)
	})
}

func TestCreateEngineerDefaultsToEngineerRole(t *testing.T) {
	h := newHarness(t)
	_, admin := h.engineer("A1", "Root", models.RoleAdmin, true)

	w := h.do(http.MethodPost, "/v1/engineers", admin, map[string]any{"employee_id": "N1", "full_name": "New", "email": "new@example.com"})
	h.expect(w, http.StatusCreated)
	assert.Equal(t, models.RoleEngineer, decode[models.Engineer](t, w).Role)
}

func TestCreateEngineerBindsExistingAccount(t *testing.T) {
	h := newHarness(t)
	_, admin := h.engineer("A1", "Root", models.RoleAdmin, true)
	uid, tok := h.account("field@example.com")

	h.expect(h.do(http.MethodGet, "/v1/me", tok, nil), http.StatusNotFound)

	w := h.do(http.MethodPost, "/v1/engineers", admin, map[string]any{"employee_id": "F1", "full_name": "Field", "email": "field@example.com"})
	h.expect(w, http.StatusCreated)
	e := decode[models.Engineer](t, w)
	require.NotNil(t, e.UserID, "expected engineer bound to account %s", uid)
	assert.Equal(t, uid, *e.UserID)

	h.expect(h.do(http.MethodGet, "/v1/me", tok, nil), http.StatusOK)
}

func TestCategories(t *testing.T) {
	h := newHarness(t)
	_, eng := h.engineer("E1", "Ada", models.RoleEngineer, true)
	_, admin := h.engineer("A1", "Root", models.RoleAdmin, true)

	h.expect(h.do(http.MethodPost, "/v1/categories", eng, map[string]string{"name": "Audit"}), http.StatusForbidden)

	w := h.do(http.MethodPost, "/v1/categories", admin, map[string]string{"name": " Audit ", "description": "Site audits"})
	h.expect(w, http.StatusCreated)
	c := decode[models.ServiceCategory](t, w)
	assert.Equal(t, "Audit", c.Name)
	assert.True(t, c.IsActive)
	h.expect(h.do(http.MethodPost, "/v1/categories", admin, map[string]string{"name": "   "}), http.StatusBadRequest)

	h.store.AddCategory("Travel")
	h.expect(h.do(http.MethodPatch, "/v1/categories/"+c.ID, admin, map[string]bool{"is_active": false}), http.StatusOK)
	h.expect(h.do(http.MethodPatch, "/v1/categories/missing", admin, map[string]bool{"is_active": false}), http.StatusNotFound)

	w = h.do(http.MethodGet, "/v1/categories?active=true", eng, nil)
	h.expect(w, http.StatusOK)
	active := decode[[]models.ServiceCategory](t, w)
	require.Len(t, active, 1)
	assert.Equal(t, "Travel", active[0].Name)

	w = h.do(http.MethodGet, "/v1/categories", eng, nil)
	h.expect(w, http.StatusOK)
	assert.Len(t, decode[[]models.ServiceCategory](t, w), 2)
}
