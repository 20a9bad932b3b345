// Package timeoutwarning drives the "your session is about to expire" prompt
// shown to participants.
package timeoutwarning

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateHidden State = iota
	StateShown
)

func (s State) String() string {
	if s == StateShown {
		return "shown"
	}
	return "hidden"
}

// Outcome records how the warning was last dismissed.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeExtended
	OutcomeLoggedOut
	OutcomeExpired
)

// SessionController is the part of participant.Manager the warning drives.
type SessionController interface {
	ExtendSession(ctx context.Context) bool
	EndSession(ctx context.Context)
	OnExpiringSoon(fn func(participant.Session))
	OnExpired(fn func())
}

// Router performs in-app navigation.
type Router interface {
	Push(path string)
}

type Warning struct {
	sessions      SessionController
	router        Router
	codeEntryPath string
	clock         clockwork.Clock

	mu           sync.Mutex
	state        State
	outcome      Outcome
	expiresAt    time.Time // window currently shown
	respondedFor time.Time // window the user already answered
	onChange     func(State)
}

type Option func(*Warning)

func WithClock(clock clockwork.Clock) Option {
	return func(w *Warning) {
		w.clock = clock
	}
}

// WithOnChange registers a callback run after every state change.
func WithOnChange(fn func(State)) Option {
	return func(w *Warning) {
		w.onChange = fn
	}
}

// New creates the warning and subscribes it to the session's signals.
func New(sessions SessionController, router Router, codeEntryPath string, options ...Option) (*Warning, error) {
	if sessions == nil {
		return nil, errors.New("[timeoutwarning.New] session controller is required")
	}
	if router == nil {
		return nil, errors.New("[timeoutwarning.New] router is required")
	}

	w := &Warning{
		sessions:      sessions,
		router:        router,
		codeEntryPath: codeEntryPath,
		clock:         clockwork.NewRealClock(),
	}
	for _, opt := range options {
		opt(w)
	}

	sessions.OnExpiringSoon(w.expiringSoon)
	sessions.OnExpired(w.expired)
	return w, nil
}

func (w *Warning) expiringSoon(s participant.Session) {
	w.mu.Lock()
	if w.state == StateShown || w.respondedFor.Equal(s.ExpiresAt) {
		w.mu.Unlock()
		return
	}
	w.state = StateShown
	w.outcome = OutcomeNone
	w.expiresAt = s.ExpiresAt
	w.mu.Unlock()

	log.Debug().Time("expires_at", s.ExpiresAt).Msg("session timeout warning shown")
	w.changed(StateShown)
}

func (w *Warning) expired() {
	w.mu.Lock()
	wasShown := w.state == StateShown
	w.state = StateHidden
	if wasShown {
		w.outcome = OutcomeExpired
	}
	w.mu.Unlock()

	if wasShown {
		w.changed(StateHidden)
	}
}

// Extend keeps the participant signed in and hides the warning.
func (w *Warning) Extend(ctx context.Context) bool {
	w.mu.Lock()
	if w.state != StateShown {
		w.mu.Unlock()
		return false
	}
	w.respondedFor = w.expiresAt
	w.mu.Unlock()

	extended := w.sessions.ExtendSession(ctx)

	w.mu.Lock()
	w.state = StateHidden
	w.outcome = OutcomeExtended
	w.mu.Unlock()
	w.changed(StateHidden)
	return extended
}

// Logout ends the session, returns to code entry and hides the warning.
func (w *Warning) Logout(ctx context.Context) {
	w.mu.Lock()
	w.respondedFor = w.expiresAt
	wasShown := w.state == StateShown
	w.mu.Unlock()

	w.sessions.EndSession(ctx)
	w.router.Push(w.codeEntryPath)

	w.mu.Lock()
	w.state = StateHidden
	w.outcome = OutcomeLoggedOut
	w.mu.Unlock()
	if wasShown {
		w.changed(StateHidden)
	}
}

func (w *Warning) changed(s State) {
	if w.onChange != nil {
		w.onChange(s)
	}
}

func (w *Warning) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Warning) Outcome() Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outcome
}

// Remaining is the countdown shown in the warning, zero when hidden.
func (w *Warning) Remaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateShown {
		return 0
	}
	if d := w.expiresAt.Sub(w.clock.Now()); d > 0 {
		return d.Truncate(time.Second)
	}
	return 0
}
