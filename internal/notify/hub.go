package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Tables that publish change signals.
const (
	TableNotifications = "notifications"
	TableActivities    = "daily_activities"
	TableEngineers     = "engineers"
	TableCategories    = "service_categories"
)

// Change is an opaque "refetch" signal. Receivers must not rely on ordering
// or on seeing every change.
type Change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Hub fans change signals out to in-process subscribers. A subscriber whose
// buffer is full misses the signal instead of blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	next   int
	buffer int
	closed bool
	logger *slog.Logger
}

type subscription struct {
	table string
	ch    chan Change
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: map[int]*subscription{}, buffer: buffer, logger: logger}
}

// Subscribe registers for changes on table, or on every table when table is
// empty. The returned cancel func closes the channel and must be called once
// the consumer is done; calling it again is a no-op.
func (h *Hub) Subscribe(table string) (<-chan Change, func()) {
	ch := make(chan Change, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = &subscription{table: table, ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish delivers c to every matching subscriber without blocking.
func (h *Hub) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		if s.table != "" && s.table != c.Table {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.logger.Debug("notify: subscriber lagging, change dropped", slog.Int("subscriber", id), slog.String("table", c.Table))
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
