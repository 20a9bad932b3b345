// Package authteardown tears the client down when the backend reports that
// the signed-in credential is no longer valid. The teardown runs once per
// expiry episode no matter how many requests fail at the same time.
package authteardown

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-contest-portal/autherror"
	"github.com/jrsteele09/go-contest-portal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLoginPath     = "/login"
	DefaultRevokeTimeout = 5 * time.Second
)

// CacheClearer empties the client's data cache.
type CacheClearer interface {
	Clear()
}

// Revoker revokes the current backend credential.
type Revoker interface {
	Revoke(ctx context.Context) error
}

// HardNavigator reloads the application at path, discarding in-memory state.
type HardNavigator interface {
	Reload(path string)
}

// Deps are the collaborators the teardown drives, in the order it drives them.
type Deps struct {
	Cache      CacheClearer
	Revoker    Revoker
	Profiles   storage.Store
	Navigator  HardNavigator
	ProfileKey string
}

type Handler struct {
	deps          Deps
	loginPath     string
	revokeTimeout time.Duration
	redirecting   atomic.Bool
}

type Option func(*Handler)

func WithLoginPath(path string) Option {
	return func(h *Handler) {
		h.loginPath = path
	}
}

func WithRevokeTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.revokeTimeout = d
	}
}

func New(deps Deps, options ...Option) (*Handler, error) {
	if deps.Cache == nil {
		return nil, errors.New("[authteardown.New] cache is required")
	}
	if deps.Revoker == nil {
		return nil, errors.New("[authteardown.New] revoker is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[authteardown.New] profile store is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[authteardown.New] navigator is required")
	}
	if deps.ProfileKey == "" {
		return nil, errors.New("[authteardown.New] profile key is required")
	}

	h := &Handler{
		deps:          deps,
		loginPath:     DefaultLoginPath,
		revokeTimeout: DefaultRevokeTimeout,
	}
	for _, opt := range options {
		opt(h)
	}
	return h, nil
}

// Redirecting reports whether the teardown has started.
func (h *Handler) Redirecting() bool {
	return h.redirecting.Load()
}

// OnFailure is registered as the cache's failure observer.
//
// Non-authentication failures are ignored. The first authentication failure
// sets the guard and then, strictly in order: clears the cache, revokes the
// credential (errors swallowed), removes the stored profile and reloads at
// the login page. The guard is never reset; the reload replaces this handler.
func (h *Handler) OnFailure(err error) {
	if !autherror.IsAuthenticationError(err) {
		return
	}
	if !h.redirecting.CompareAndSwap(false, true) {
		log.Debug().Err(err).Msg("auth teardown already in progress")
		return
	}
	log.Warn().Err(err).Msg("credential rejected by backend, signing out")

	h.deps.Cache.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), h.revokeTimeout)
	if rerr := h.deps.Revoker.Revoke(ctx); rerr != nil {
		log.Debug().Err(rerr).Msg("credential revoke failed, continuing teardown")
	}
	cancel()

	if rerr := h.deps.Profiles.Remove(context.Background(), h.deps.ProfileKey); rerr != nil {
		log.Error().Err(rerr).Str("key", h.deps.ProfileKey).Msg("failed to remove stored profile")
	}

	h.deps.Navigator.Reload(h.loginPath)
}
