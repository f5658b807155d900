package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/garnizeh/fieldlog/internal/notify"
)

const writeWait = 10 * time.Second

var changeTables = map[string]bool{
	"":                        true,
	notify.TableNotifications: true,
	notify.TableActivities:    true,
	notify.TableEngineers:     true,
	notify.TableCategories:    true,
}

// ChangesHandler streams hub change signals over a websocket. Each message
// is a notify.Change; clients refetch on receipt.
type ChangesHandler struct {
	hub          *notify.Hub
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewChangesHandler(hub *notify.Hub, pingInterval time.Duration) *ChangesHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &ChangesHandler{
		hub:          hub,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Authentication is by bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *ChangesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	if !changeTables[table] {
		writeError(w, http.StatusBadRequest, CodeValidation, "unknown table")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.Info("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	changes, cancel := h.hub.Subscribe(table)
	defer cancel()

	// The read loop only exists to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	uid := userIDFrom(r.Context())
	logger.Debug("change feed opened", slog.String("user_id", uid), slog.String("table", table))
	defer logger.Debug("change feed closed", slog.String("user_id", uid), slog.String("table", table))

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(c); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
