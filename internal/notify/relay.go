// Package notify delivers admin messages to engineers and fans out change
// signals to live sessions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

// DefaultVisibleLimit caps an engineer's inbox.
const DefaultVisibleLimit = 20

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrNoRecipient       = errors.New("no recipient selected")
	ErrUnknownRecipient  = errors.New("recipient does not exist")
	ErrInvalidRecipients = errors.New("recipient type must be all or specific")
)

// Message is an outgoing notification as authored by an admin.
type Message struct {
	Text                string               `json:"message"`
	RecipientType       models.RecipientType `json:"recipient_type"`
	RecipientEngineerID string               `json:"recipient_engineer_id,omitempty"`
}

// Validate checks m without touching the store.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyMessage
	}
	switch m.RecipientType {
	case models.RecipientAll:
	case models.RecipientSpecific:
		if strings.TrimSpace(m.RecipientEngineerID) == "" {
			return ErrNoRecipient
		}
	default:
		return ErrInvalidRecipients
	}
	return nil
}

// Inbox is an engineer's visible notifications.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

type Relay struct {
	notifications repository.NotificationRepo
	engineers     repository.EngineerRepo
	hub           *Hub
	limit         int
	logger        *slog.Logger
}

func NewRelay(notifications repository.NotificationRepo, engineers repository.EngineerRepo, hub *Hub, limit int, logger *slog.Logger) *Relay {
	if limit <= 0 {
		limit = DefaultVisibleLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{notifications: notifications, engineers: engineers, hub: hub, limit: limit, logger: logger}
}

// Send validates m and records it. Nothing is written when validation fails.
func (r *Relay) Send(ctx context.Context, m Message, sentBy string) (*models.Notification, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := &models.Notification{Message: strings.TrimSpace(m.Text), RecipientType: m.RecipientType, SentBy: sentBy}
	if m.RecipientType == models.RecipientSpecific {
		e, err := r.engineers.GetEngineer(ctx, m.RecipientEngineerID)
		if err != nil {
			return nil, fmt.Errorf("load recipient: %w", err)
		}
		if e == nil {
			return nil, ErrUnknownRecipient
		}
		n.RecipientEngineerID = &e.ID
	}

	if _, err := r.notifications.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	r.logger.Info("notify: message sent", slog.String("id", n.ID), slog.String("recipient_type", string(n.RecipientType)))
	r.publish("create", n.ID)

	return n, nil
}

// Inbox returns the newest visible notifications of an engineer.
func (r *Relay) Inbox(ctx context.Context, engineerID string) (*Inbox, error) {
	list, err := r.notifications.ListNotificationsFor(ctx, engineerID, r.limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := r.notifications.CountUnread(ctx, engineerID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return &Inbox{Notifications: list, Unread: unread}, nil
}

// MarkRead reports false when the notification is not visible to engineerID.
func (r *Relay) MarkRead(ctx context.Context, id, engineerID string) (bool, error) {
	ok, err := r.notifications.MarkRead(ctx, id, engineerID)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if ok {
		r.publish("read", id)
	}
	return ok, nil
}

func (r *Relay) MarkAllRead(ctx context.Context, engineerID string) (int64, error) {
	n, err := r.notifications.MarkAllRead(ctx, engineerID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	if n > 0 {
		r.publish("read", "")
	}
	return n, nil
}

func (r *Relay) publish(op, id string) {
	if r.hub != nil {
		r.hub.Publish(Change{Table: TableNotifications, Op: op, ID: id})
	}
}
