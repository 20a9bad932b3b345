package app

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/jrsteele09/go-contest-portal/autherror"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/codeentry"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	interrors "github.com/jrsteele09/go-contest-portal/internal/errors"
	"github.com/jrsteele09/go-contest-portal/querycache"
	"github.com/jrsteele09/go-contest-portal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RecoveryMessage is shown after a recovered panic.
const RecoveryMessage = "Something went wrong. Please reload the page."

// SubmitCodes runs the participant code-entry form.
func (a *App) SubmitCodes(ctx context.Context, contestCode, participantCode string) codeentry.Result {
	return a.current().codeEntry.Submit(ctx, contestCode, participantCode)
}

// ExtendSession answers the timeout warning with "stay signed in".
func (a *App) ExtendSession(ctx context.Context) bool {
	return a.current().warning.Extend(ctx)
}

// EndParticipantSession answers the timeout warning with "log out".
func (a *App) EndParticipantSession(ctx context.Context) {
	a.current().warning.Logout(ctx)
}

// SelectCategory remembers the participant's category for the rest of the session.
func (a *App) SelectCategory(ctx context.Context, categoryID string) error {
	if err := a.current().participants.SetSelection(ctx, categoryID); err != nil {
		a.report(err)
		return err
	}
	return nil
}

// SignIn authenticates a staff user and remembers their profile.
func (a *App) SignIn(ctx context.Context, email, password string) (*backend.User, error) {
	user, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, interrors.ErrInvalidCredentials) {
			a.notices.ShowError("Invalid email or password")
		} else {
			a.report(err)
		}
		return nil, err
	}
	if err := storage.SetJSON(ctx, a.profiles, a.cfg.GetProfileStorageKey(), user); err != nil {
		return nil, errors.Wrap(err, "[App.SignIn] store profile")
	}
	a.notices.ShowSuccess(fmt.Sprintf("Signed in as %s", user.Email))
	return user, nil
}

// SignOut runs the same ordered teardown as a rejected credential.
func (a *App) SignOut(ctx context.Context) {
	a.current().cache.Clear()
	if err := a.client.Revoke(ctx); err != nil {
		log.Debug().Err(err).Msg("sign out revoke failed")
	}
	if err := a.profiles.Remove(ctx, a.cfg.GetProfileStorageKey()); err != nil {
		log.Error().Err(err).Msg("failed to remove stored profile")
	}
	a.history.Reload(a.cfg.GetLoginPath())
}

// Profile returns the stored profile of the signed in user.
func (a *App) Profile(ctx context.Context) (*backend.User, error) {
	var user backend.User
	if err := storage.GetJSON(ctx, a.profiles, a.cfg.GetProfileStorageKey(), &user); err != nil {
		if errors.Is(err, interrors.ErrNotFound) {
			return nil, interrors.ErrNotSignedIn
		}
		return nil, errors.Wrap(err, "[App.Profile] load profile")
	}
	return &user, nil
}

// Query reads a rest resource through the query cache.
func (a *App) Query(ctx context.Context, resource string, params map[string]string) (json.RawMessage, error) {
	keyParams := make(map[string]any, len(params))
	for k, v := range params {
		keyParams[k] = v
	}
	key := querycache.NewKey(resource, keyParams)

	data, err := querycache.Query(ctx, a.current().cache, key, func(ctx context.Context) (json.RawMessage, error) {
		return a.client.Get(ctx, resource, params)
	})
	if err != nil {
		a.report(err)
		return nil, err
	}
	return data, nil
}

// Mutate writes to a rest resource and invalidates its cached queries.
func (a *App) Mutate(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	v, err := a.current().cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		return a.client.Post(ctx, resource, body)
	}, resource)
	if err != nil {
		a.report(err)
		return nil, err
	}
	raw, _ := v.(json.RawMessage)
	return raw, nil
}

// WindowFocused refetches stale queries when the cache is configured to.
func (a *App) WindowFocused(ctx context.Context) int {
	return a.current().cache.WindowFocused(ctx)
}

// report shows err to the user. Authentication failures are left to the teardown.
func (a *App) report(err error) {
	if autherror.IsAuthenticationError(err) {
		return
	}
	if _, ok := contesterr.CodeOf(err); ok {
		a.notices.ShowError(contesterr.UserMessage(err))
		return
	}
	var be *backend.Error
	if errors.As(err, &be) && be.Message != "" {
		a.notices.ShowError(be.Message)
		return
	}
	a.notices.ShowError(contesterr.GenericMessage)
}

// Recover runs fn, turning a panic into a recovery notice. It reports
// whether a panic was recovered.
func (a *App) Recover(fn func()) (recovered bool) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", stack).Msg("recovered from panic")
			if a.monitor != nil {
				a.monitor(r, stack)
			}
			a.notices.ShowError(RecoveryMessage)
			recovered = true
		}
	}()
	fn()
	return false
}
