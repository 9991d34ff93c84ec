// Package notify holds the transient, dismissible notifications surfaced to
// the user. Every recoverable failure in the application funnels through
// here; nothing crashes the view.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notice for presentation.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// DefaultTTL is how long a notice stays visible unless dismissed first.
const DefaultTTL = 5 * time.Second

// Notice is one transient notification.
type Notice struct {
	ID      string
	Level   Level
	Title   string
	Message string
	At      time.Time
	TTL     time.Duration
}

// Center is the single owner of the active notice list. Services push into
// it; the view reads Active and dismisses by id.
type Center struct {
	mu      sync.Mutex
	notices []Notice
	clock   func() time.Time
}

// NewCenter builds an empty notice center.
func NewCenter() *Center {
	return &Center{clock: time.Now}
}

// Push adds a notice, assigning identity and arrival time.
func (c *Center) Push(level Level, title, message string) Notice {
	n := Notice{
		ID:      uuid.New().String(),
		Level:   level,
		Title:   title,
		Message: message,
		TTL:     DefaultTTL,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n.At = c.clock()
	c.notices = append(c.notices, n)
	return n
}

// Info pushes an informational notice.
func (c *Center) Info(title, message string) { c.Push(LevelInfo, title, message) }

// Success pushes a success notice.
func (c *Center) Success(title, message string) { c.Push(LevelSuccess, title, message) }

// Warn pushes a warning notice.
func (c *Center) Warn(title, message string) { c.Push(LevelWarning, title, message) }

// Error pushes an error notice.
func (c *Center) Error(title, message string) { c.Push(LevelError, title, message) }

// Active returns the notices that have not expired or been dismissed,
// oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	live := c.notices[:0]
	for _, n := range c.notices {
		if now.Sub(n.At) < n.TTL {
			live = append(live, n)
		}
	}
	c.notices = live
	out := make([]Notice, len(live))
	copy(out, live)
	return out
}

// DismissOldest removes the oldest still-active notice, if any.
func (c *Center) DismissOldest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for i, n := range c.notices {
		if now.Sub(n.At) < n.TTL {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return
		}
	}
}

// Dismiss removes a notice by id before its TTL elapses.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return
		}
	}
}
