// Package app assembles the portal. It owns everything that lives for one
// page load (query cache, auth teardown guard, participant session state)
// and rebuilds it on every hard navigation.
package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/authteardown"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/codeentry"
	"github.com/jrsteele09/go-contest-portal/internal/config"
	"github.com/jrsteele09/go-contest-portal/navigation"
	"github.com/jrsteele09/go-contest-portal/notify"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/jrsteele09/go-contest-portal/querycache"
	"github.com/jrsteele09/go-contest-portal/storage"
	"github.com/jrsteele09/go-contest-portal/timeoutwarning"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Client is the backend as the portal uses it.
type Client interface {
	participant.Backend
	SignIn(ctx context.Context, email, password string) (*backend.User, error)
	Revoke(ctx context.Context) error
	Get(ctx context.Context, resource string, params map[string]string) (json.RawMessage, error)
	Post(ctx context.Context, resource string, body any) (json.RawMessage, error)
}

// Monitor receives recovered panics.
type Monitor func(recovered any, stack []byte)

// page is the state of a single page load.
type page struct {
	cache        *querycache.Cache
	teardown     *authteardown.Handler
	participants *participant.Manager
	warning      *timeoutwarning.Warning
	codeEntry    *codeentry.Flow
}

type App struct {
	cfg      config.Config
	client   Client
	sessions storage.Store // cleared when the browsing session ends
	profiles storage.Store // survives restarts
	clock    clockwork.Clock
	monitor  Monitor
	cacheOps []querycache.Option
	history  *navigation.History
	notices  *notify.Center

	mu         sync.RWMutex
	page       *page
	generation int
	reloaded   chan struct{} // closed and replaced on every reload
}

type Option func(*App)

func WithClock(clock clockwork.Clock) Option {
	return func(a *App) {
		a.clock = clock
	}
}

func WithMonitor(m Monitor) Option {
	return func(a *App) {
		a.monitor = m
	}
}

// WithCacheOptions adds options applied to every query cache the app builds.
func WithCacheOptions(options ...querycache.Option) Option {
	return func(a *App) {
		a.cacheOps = append(a.cacheOps, options...)
	}
}

func New(ctx context.Context, cfg config.Config, client Client, sessions, profiles storage.Store, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[app.New] config is required")
	}
	if client == nil {
		return nil, errors.New("[app.New] backend client is required")
	}
	if sessions == nil || profiles == nil {
		return nil, errors.New("[app.New] session and profile stores are required")
	}

	a := &App{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		profiles: profiles,
		clock:    clockwork.NewRealClock(),
		reloaded: make(chan struct{}),
	}
	for _, opt := range options {
		opt(a)
	}
	a.notices = notify.NewCenter(notify.WithClock(a.clock))
	a.history = navigation.NewHistory(cfg.GetCodeEntryPath(), a.reload)

	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.page = p
	return a, nil
}

// load builds the per-page state and restores any stored participant session.
func (a *App) load(ctx context.Context) (*page, error) {
	cacheOptions := append([]querycache.Option{
		querycache.WithClock(a.clock),
		querycache.WithStaleTime(a.cfg.GetStaleTime()),
		querycache.WithGCTime(a.cfg.GetGCTime()),
		querycache.WithRetries(a.cfg.GetQueryRetries(), a.cfg.GetMutationRetries()),
		querycache.WithRefetchOnWindowFocus(a.cfg.GetRefetchOnWindowFocus()),
	}, a.cacheOps...)
	cache := querycache.New(cacheOptions...)

	teardown, err := authteardown.New(authteardown.Deps{
		Cache:      cache,
		Revoker:    a.client,
		Profiles:   a.profiles,
		Navigator:  a.history,
		ProfileKey: a.cfg.GetProfileStorageKey(),
	},
		authteardown.WithLoginPath(a.cfg.GetLoginPath()),
		authteardown.WithRevokeTimeout(a.cfg.GetRevokeTimeout()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[App.load] auth teardown")
	}
	cache.Subscribe(teardown.OnFailure)

	participants, err := participant.NewManager(a.client, a.sessions,
		participant.WithClock(a.clock),
		participant.WithSessionDuration(a.cfg.GetParticipantSessionDuration()),
		participant.WithWarningLead(a.cfg.GetExpiryWarningLead()),
		participant.WithCheckInterval(a.cfg.GetExpiryCheckInterval()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[App.load] participant manager")
	}
	if _, err := participants.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("failed to restore participant session")
	}

	warning, err := timeoutwarning.New(participants, a.history, a.cfg.GetCodeEntryPath(), timeoutwarning.WithClock(a.clock))
	if err != nil {
		return nil, errors.Wrap(err, "[App.load] timeout warning")
	}
	codeEntry, err := codeentry.NewFlow(participants, a.notices, a.history, a.cfg.GetParticipantInfoPath())
	if err != nil {
		return nil, errors.Wrap(err, "[App.load] code entry")
	}

	return &page{
		cache:        cache,
		teardown:     teardown,
		participants: participants,
		warning:      warning,
		codeEntry:    codeEntry,
	}, nil
}

// reload is the hard navigation: every piece of per-page state is thrown
// away and rebuilt. Stores and notices survive.
func (a *App) reload(path string) {
	p, err := a.load(context.Background())
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("reload failed")
		return
	}

	a.mu.Lock()
	a.page = p
	a.generation++
	close(a.reloaded)
	a.reloaded = make(chan struct{})
	a.mu.Unlock()
}

func (a *App) current() *page {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.page
}

// Run drives the background loops of the current page (cache garbage
// collection and the participant expiry check) until ctx is done,
// restarting them after every reload.
func (a *App) Run(ctx context.Context) error {
	for {
		a.mu.RLock()
		p, reloaded := a.page, a.reloaded
		a.mu.RUnlock()

		loopCtx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(loopCtx)
		g.Go(func() error {
			p.cache.Run(gctx)
			return nil
		})
		g.Go(func() error {
			p.participants.Run(gctx)
			return nil
		})

		select {
		case <-ctx.Done():
			cancel()
			_ = g.Wait()
			return nil
		case <-reloaded:
			cancel()
			_ = g.Wait()
		}
	}
}

// Generation counts hard navigations since start.
func (a *App) Generation() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

func (a *App) History() *navigation.History {
	return a.history
}

func (a *App) Notices() *notify.Center {
	return a.notices
}

func (a *App) Cache() *querycache.Cache {
	return a.current().cache
}

func (a *App) Participants() *participant.Manager {
	return a.current().participants
}

func (a *App) Warning() *timeoutwarning.Warning {
	return a.current().warning
}

// Redirecting reports whether the current page is tearing down the signed in session.
func (a *App) Redirecting() bool {
	return a.current().teardown.Redirecting()
}
