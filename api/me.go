package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/calendar"
	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/internal/timesheet"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// MeHandler serves the signed-in engineer's own profile, timesheet and inbox.
type MeHandler struct {
	users   repository.UserRepo
	svc     *timesheet.Service
	relay   *notify.Relay
	schemas *schema.Loader
}

func NewMeHandler(users repository.UserRepo, svc *timesheet.Service, relay *notify.Relay, schemas *schema.Loader) *MeHandler {
	return &MeHandler{users: users, svc: svc, relay: relay, schemas: schemas}
}

type meResponse struct {
	Engineer *models.Engineer `json:"engineer"`
	Unread   int64            `json:"unread_notifications"`
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e := engineerFrom(r.Context())
	inbox, err := h.relay.Inbox(r.Context(), e.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, meResponse{Engineer: e, Unread: inbox.Unread}, http.StatusOK)
}

type profileRequest struct {
	FullName string `json:"full_name"`
}

// CreateProfile is the remediation for profile_missing: it binds a new
// engineer row to the caller's account.
func (h *MeHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := readValidated(w, r, h.schemas, schema.Profile, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	u, err := h.users.GetUserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "account no longer exists")
		return
	}

	e, err := h.svc.CreateProfile(r.Context(), u, req.FullName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, e, http.StatusCreated)
}

func (h *MeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	e := engineerFrom(r.Context())
	if err := h.svc.Deactivate(r.Context(), e); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, e, http.StatusOK)
}

// Activities lists the caller's activities for one date (?date=) or a range
// (?from=&to=, either bound optional).
func (h *MeHandler) Activities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to models.Date
	var err error
	if d := q.Get("date"); d != "" {
		if from, err = queryDate(q, "date"); err != nil {
			writeServiceError(w, r, err)
			return
		}
		to = from
	} else {
		if from, err = queryDate(q, "from"); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if to, err = queryDate(q, "to"); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	list, err := h.svc.Activities(r.Context(), engineerFrom(r.Context()), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, list, http.StatusOK)
}

// SaveActivity creates or replaces the caller's activity for {date}.
func (h *MeHandler) SaveActivity(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		writeServiceError(w, r, fieldError("activity_date", "must be a YYYY-MM-DD date"))
		return
	}

	var sub timesheet.Submission
	if err := readValidated(w, r, h.schemas, schema.Activity, &sub); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sub.Date = date

	a, err := h.svc.Submit(r.Context(), engineerFrom(r.Context()), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

// Calendar returns the executed and planning dates of the caller.
func (h *MeHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	e := engineerFrom(r.Context())
	list, err := h.svc.Activities(r.Context(), e, "", "")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, calendar.Build(list).Dates(e.EmployeeID), http.StatusOK)
}

func (h *MeHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.relay.Inbox(r.Context(), engineerFrom(r.Context()).ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inbox, http.StatusOK)
}

func (h *MeHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	e := engineerFrom(r.Context())
	id := mux.Vars(r)["id"]
	ok, err := h.relay.MarkRead(r.Context(), id, e.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	e := engineerFrom(r.Context())
	n, err := h.relay.MarkAllRead(r.Context(), e.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.Debug("notifications marked read", slog.String("engineer_id", e.ID), slog.Int64("count", n))
	writeJSON(w, map[string]int64{"marked": n}, http.StatusOK)
}

// fieldError builds a single-field validation error.
func fieldError(field, msg string) error {
	return &timesheet.ValidationError{Fields: map[string]string{field: msg}}
}
