package api

import (
	"net/http"

	"github.com/garnizeh/fieldlog/internal/notify"
	"github.com/garnizeh/fieldlog/internal/schema"
)

type NotificationsHandler struct {
	relay   *notify.Relay
	schemas *schema.Loader
}

func NewNotificationsHandler(relay *notify.Relay, schemas *schema.Loader) *NotificationsHandler {
	return &NotificationsHandler{relay: relay, schemas: schemas}
}

// Send broadcasts to everyone or addresses one engineer.
func (h *NotificationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	var m notify.Message
	if err := readValidated(w, r, h.schemas, schema.Notification, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	n, err := h.relay.Send(r.Context(), m, engineerFrom(r.Context()).ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, n, http.StatusCreated)
}
