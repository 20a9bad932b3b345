// Package participant holds the participant's code-entry session: entering a
// contest with a contest code and participant code, extending and ending the
// session, and noticing when it expires.
package participant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	interrors "github.com/jrsteele09/go-contest-portal/internal/errors"
	"github.com/jrsteele09/go-contest-portal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// SessionKey is where the session is kept in the session-scoped store.
	SessionKey = "participant_session"
	// SelectionKey holds the category the participant last picked.
	SelectionKey = "participant_selected_category"

	DefaultSessionDuration = 2 * time.Hour
	DefaultWarningLead     = 5 * time.Minute
	DefaultCheckInterval   = 30 * time.Second
)

type Manager struct {
	backend       Backend
	store         storage.Store
	clock         clockwork.Clock
	duration      time.Duration
	warningLead   time.Duration
	checkInterval time.Duration

	mu        sync.Mutex
	state     State
	session   *Session
	warnedFor time.Time // ExpiresAt of the window the warning was raised for

	listenersMu  sync.RWMutex
	expiringSoon []func(Session)
	expired      []func()
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithSessionDuration sets the duration used when the backend doesn't report one.
func WithSessionDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.duration = d
	}
}

func WithWarningLead(d time.Duration) Option {
	return func(m *Manager) {
		m.warningLead = d
	}
}

func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.checkInterval = d
	}
}

func NewManager(backend Backend, store storage.Store, options ...Option) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("[participant.NewManager] backend is required")
	}
	if store == nil {
		return nil, errors.New("[participant.NewManager] session store is required")
	}

	m := &Manager{
		backend:       backend,
		store:         store,
		clock:         clockwork.NewRealClock(),
		duration:      DefaultSessionDuration,
		warningLead:   DefaultWarningLead,
		checkInterval: DefaultCheckInterval,
		state:         StateAnonymous,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// OnExpiringSoon registers fn to run once per expiry window when less than
// the warning lead remains.
func (m *Manager) OnExpiringSoon(fn func(Session)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.expiringSoon = append(m.expiringSoon, fn)
}

// OnExpired registers fn to run when the session passively expires.
func (m *Manager) OnExpired(fn func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.expired = append(m.expired, fn)
}

// EnterContest exchanges the codes for a session. Empty codes fail with
// MISSING_CODES before the backend is called. Rejections leave the state unchanged.
func (m *Manager) EnterContest(ctx context.Context, contestCode, participantCode string) (Session, error) {
	contestCode = strings.TrimSpace(contestCode)
	participantCode = strings.TrimSpace(participantCode)
	if contestCode == "" || participantCode == "" {
		return Session{}, contesterr.New(contesterr.CodeMissingCodes, "contest code and participant code are required")
	}

	entry, err := m.backend.EnterSession(ctx, contestCode, participantCode)
	if err != nil {
		return Session{}, toContestError(err)
	}

	duration := entry.SessionDuration
	if duration <= 0 {
		duration = m.duration
	}
	session := Session{
		ContestID:        entry.ContestID,
		ParticipantID:    entry.ParticipantID,
		Code:             entry.Code,
		OrganizationName: entry.OrganizationName,
		ContestName:      entry.ContestName,
		ParticipantName:  entry.ParticipantName,
		ExpiresAt:        m.clock.Now().Add(duration),
		Duration:         duration,
	}
	if err := storage.SetJSON(ctx, m.store, SessionKey, session); err != nil {
		return Session{}, errors.Wrap(err, "[Manager.EnterContest] store session")
	}

	m.mu.Lock()
	m.state = StateActive
	m.session = &session
	m.warnedFor = time.Time{}
	m.mu.Unlock()

	log.Info().
		Str("contest_id", session.ContestID).
		Str("participant_id", session.ParticipantID).
		Time("expires_at", session.ExpiresAt).
		Msg("participant session started")
	return session, nil
}

// toContestError keeps backend codes recognisable to callers.
func toContestError(err error) error {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		if code := contesterr.Code(coded.ErrorCode()); code != "" {
			return contesterr.Wrap(code, "session entry rejected", err)
		}
	}
	return errors.Wrap(err, "[Manager.EnterContest] backend.EnterSession")
}

// ExtendSession restarts the expiry window. It does nothing unless the session is active.
func (m *Manager) ExtendSession(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != StateActive || m.session == nil {
		m.mu.Unlock()
		return false
	}
	window := m.session.Duration
	if window <= 0 {
		window = m.duration
	}
	m.session.ExpiresAt = m.clock.Now().Add(window)
	session := *m.session
	m.mu.Unlock()

	if err := storage.SetJSON(ctx, m.store, SessionKey, session); err != nil {
		log.Error().Err(err).Msg("failed to persist extended participant session")
	}
	log.Debug().Time("expires_at", session.ExpiresAt).Msg("participant session extended")
	return true
}

// EndSession logs the participant out and clears session-scoped storage. Idempotent.
func (m *Manager) EndSession(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateAnonymous {
		m.state = StateEnded
	}
	m.session = nil
	m.mu.Unlock()

	m.clearStorage(ctx)
}

func (m *Manager) clearStorage(ctx context.Context) {
	for _, key := range []string{SessionKey, SelectionKey} {
		if err := m.store.Remove(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to clear participant storage")
		}
	}
}

// Check evaluates the session against the clock: it expires sessions whose
// time has passed and raises the expiring-soon signal. Returns the resulting state.
func (m *Manager) Check(ctx context.Context) State {
	now := m.clock.Now()

	m.mu.Lock()
	if m.state != StateActive || m.session == nil {
		state := m.state
		m.mu.Unlock()
		return state
	}

	if !now.Before(m.session.ExpiresAt) {
		m.state = StateExpired
		m.session = nil
		m.mu.Unlock()

		m.clearStorage(ctx)
		log.Info().Msg("participant session expired")
		m.listenersMu.RLock()
		listeners := append([]func(){}, m.expired...)
		m.listenersMu.RUnlock()
		for _, fn := range listeners {
			fn()
		}
		return StateExpired
	}

	var warn *Session
	if m.session.ExpiresAt.Sub(now) < m.warningLead && !m.warnedFor.Equal(m.session.ExpiresAt) {
		m.warnedFor = m.session.ExpiresAt
		s := *m.session
		warn = &s
	}
	m.mu.Unlock()

	if warn != nil {
		m.listenersMu.RLock()
		listeners := append([]func(Session){}, m.expiringSoon...)
		m.listenersMu.RUnlock()
		for _, fn := range listeners {
			fn(*warn)
		}
	}
	return StateActive
}

// Run checks the session every check interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Check(ctx)
		}
	}
}

// RequireActive returns the session for a protected participant action.
// It fails with PARTICIPANT_SESSION_EXPIRED once the session has expired and
// PARTICIPANT_SESSION_REQUIRED when there is no session.
func (m *Manager) RequireActive(ctx context.Context) (Session, error) {
	switch m.Check(ctx) {
	case StateActive:
	case StateExpired:
		return Session{}, contesterr.ErrParticipantSessionExpired
	default:
		return Session{}, contesterr.ErrParticipantSessionRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, contesterr.ErrParticipantSessionRequired
	}
	return *m.session, nil
}

// State returns the current state without consulting the clock.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the current session, if any.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Remaining is the time left before expiry, zero when not active.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive || m.session == nil {
		return 0
	}
	if d := m.session.ExpiresAt.Sub(m.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Restore reloads a session kept in the session-scoped store, as after an
// application reload. A stored session that has already expired is discarded.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	var session Session
	if err := storage.GetJSON(ctx, m.store, SessionKey, &session); err != nil {
		if errors.Is(err, interrors.ErrNotFound) {
			return m.State(), nil
		}
		return m.State(), errors.Wrap(err, "[Manager.Restore] load session")
	}

	if !m.clock.Now().Before(session.ExpiresAt) {
		m.clearStorage(ctx)
		m.mu.Lock()
		m.state = StateExpired
		m.session = nil
		m.mu.Unlock()
		return StateExpired, nil
	}

	m.mu.Lock()
	m.state = StateActive
	m.session = &session
	m.warnedFor = time.Time{}
	m.mu.Unlock()
	return StateActive, nil
}

// SetSelection remembers a UI selection for the rest of the session.
func (m *Manager) SetSelection(ctx context.Context, categoryID string) error {
	if _, err := m.RequireActive(ctx); err != nil {
		return err
	}
	return m.store.Set(ctx, SelectionKey, []byte(categoryID))
}

// Selection returns the remembered selection, empty if none.
func (m *Manager) Selection(ctx context.Context) (string, error) {
	if _, err := m.RequireActive(ctx); err != nil {
		return "", err
	}
	raw, err := m.store.Get(ctx, SelectionKey)
	if errors.Is(err, interrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Selection] load selection")
	}
	return string(raw), nil
}
