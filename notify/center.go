// Package notify keeps the messages shown to the user. Success messages
// dismiss themselves; error messages stay until the user dismisses them.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const DefaultSuccessTTL = 3 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	ID        string
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

type Center struct {
	clock      clockwork.Clock
	successTTL time.Duration

	mu      sync.Mutex
	notices []Notice
	timers  map[string]clockwork.Timer
}

type Option func(*Center)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Center) {
		c.clock = clock
	}
}

func WithSuccessTTL(d time.Duration) Option {
	return func(c *Center) {
		c.successTTL = d
	}
}

func NewCenter(options ...Option) *Center {
	c := &Center{
		clock:      clockwork.NewRealClock(),
		successTTL: DefaultSuccessTTL,
		timers:     make(map[string]clockwork.Timer),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ShowSuccess adds a notice that disappears after the success TTL.
func (c *Center) ShowSuccess(message string) string {
	n := c.newNotice(KindSuccess, message)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	// The timer is recorded before its callback can take the lock.
	c.timers[n.ID] = c.clock.AfterFunc(c.successTTL, func() { c.Dismiss(n.ID) })
	return n.ID
}

// ShowError adds a notice that stays until dismissed.
func (c *Center) ShowError(message string) string {
	n := c.newNotice(KindError, message)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	return n.ID
}

func (c *Center) newNotice(kind Kind, message string) Notice {
	return Notice{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: c.clock.Now(),
	}
}

// Dismiss removes a notice. Unknown IDs are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return
		}
	}
}

// DismissAll clears every notice.
func (c *Center) DismissAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.notices = nil
}

// Active returns the current notices, oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...)
}
