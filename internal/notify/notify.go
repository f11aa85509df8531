// Package notify keeps the transient operator notifications (toasts).
package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lakehopper/mapclient/internal/metrics"
	"github.com/lakehopper/mapclient/internal/typeid"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 4 * time.Second

type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one dismissible message shown to the operator.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Center holds active notifications until they expire or are dismissed.
type Center struct {
	mu          sync.Mutex
	ttl         time.Duration
	now         func() time.Time
	active      map[string]*Notification
	subscribers []func(Notification)
}

// NewCenter creates a center whose notifications live for ttl. A zero ttl
// uses DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:    ttl,
		now:    time.Now,
		active: make(map[string]*Notification),
	}
}

// Subscribe registers fn to be called for every new notification.
func (c *Center) Subscribe(fn func(Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Notify posts a notification and returns it.
func (c *Center) Notify(level Level, title string) Notification {
	c.mu.Lock()
	now := c.now()
	n := &Notification{
		ID:        typeid.NewNotificationID(),
		Level:     level,
		Title:     title,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.active[n.ID] = n
	subs := make([]func(Notification), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	switch level {
	case Error:
		slog.Error("notification", "title", title)
	case Warning:
		slog.Warn("notification", "title", title)
	default:
		slog.Info("notification", "title", title)
	}
	metrics.Notifications.WithLabelValues(string(level)).Inc()

	for _, fn := range subs {
		fn(*n)
	}
	return *n
}

func (c *Center) Info(title string) Notification    { return c.Notify(Info, title) }
func (c *Center) Warning(title string) Notification { return c.Notify(Warning, title) }
func (c *Center) Error(title string) Notification   { return c.Notify(Error, title) }

// Active returns unexpired notifications, oldest first. Expired ones are
// dropped.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]Notification, 0, len(c.active))
	for id, n := range c.active {
		if !now.Before(n.ExpiresAt) {
			delete(c.active, id)
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Dismiss removes a notification before it expires.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[id]; !ok {
		return false
	}
	delete(c.active, id)
	return true
}
