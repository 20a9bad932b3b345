package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/app"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/jrsteele09/go-contest-portal/internal/config"
	interrors "github.com/jrsteele09/go-contest-portal/internal/errors"
	"github.com/jrsteele09/go-contest-portal/notify"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/jrsteele09/go-contest-portal/querycache"
	"github.com/jrsteele09/go-contest-portal/storage"
	"github.com/jrsteele09/go-contest-portal/storage/memstore"
	"github.com/jrsteele09/go-contest-portal/timeoutwarning"
	"github.com/stretchr/testify/require"
)

const profileKey = "contest_portal.user_profile"

// stubClient is a scripted backend.
type stubClient struct {
	mu       sync.Mutex
	getFn    func(resource string) (json.RawMessage, error)
	postFn   func(resource string) (json.RawMessage, error)
	gets     map[string]int
	revokes  atomic.Int32
	signedIn bool
}

func newStubClient() *stubClient {
	return &stubClient{gets: make(map[string]int)}
}

func (c *stubClient) EnterSession(_ context.Context, contestCode, participantCode string) (*participant.Entry, error) {
	if contestCode != "ABCD12" || participantCode != "10234567" {
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: string(contesterr.CodeInvalidParticipantCode)}
	}
	return &participant.Entry{
		ContestID:        "contest-1",
		ParticipantID:    "participant-1",
		Code:             participantCode,
		OrganizationName: "Riverside Camera Club",
		ContestName:      "Spring Open",
		SessionDuration:  time.Hour,
	}, nil
}

func (c *stubClient) SignIn(_ context.Context, email, password string) (*backend.User, error) {
	if password != "Password123" {
		return nil, interrors.ErrInvalidCredentials
	}
	c.mu.Lock()
	c.signedIn = true
	c.mu.Unlock()
	return &backend.User{ID: "user-1", Email: email, Name: "Judge", Role: "judge"}, nil
}

func (c *stubClient) Revoke(context.Context) error {
	c.revokes.Add(1)
	c.mu.Lock()
	c.signedIn = false
	c.mu.Unlock()
	return errors.New("network unreachable")
}

func (c *stubClient) Get(_ context.Context, resource string, _ map[string]string) (json.RawMessage, error) {
	c.mu.Lock()
	c.gets[resource]++
	fn := c.getFn
	c.mu.Unlock()
	if fn != nil {
		return fn(resource)
	}
	return json.RawMessage(`[{"id":"1"}]`), nil
}

func (c *stubClient) Post(_ context.Context, resource string, _ any) (json.RawMessage, error) {
	c.mu.Lock()
	fn := c.postFn
	c.mu.Unlock()
	if fn != nil {
		return fn(resource)
	}
	return json.RawMessage(`{"id":"2"}`), nil
}

func (c *stubClient) Gets(resource string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets[resource]
}

type fixture struct {
	clock    *clockwork.FakeClock
	client   *stubClient
	sessions *memstore.Store
	profiles *memstore.Store
	app      *app.App
}

func newFixture(t *testing.T, options ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)),
		client:   newStubClient(),
		sessions: memstore.New(),
		profiles: memstore.New(),
	}
	f.app = f.build(t, options...)
	return f
}

func (f *fixture) build(t *testing.T, options ...app.Option) *app.App {
	t.Helper()
	options = append([]app.Option{
		app.WithClock(f.clock),
		app.WithCacheOptions(querycache.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(0) })),
	}, options...)
	a, err := app.New(context.Background(), config.New(), f.client, f.sessions, f.profiles, options...)
	require.NoError(t, err)
	return a
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	_, err := f.app.SignIn(context.Background(), "judge@example.com", "Password123")
	require.NoError(t, err)
}

func TestNew_RequiresDeps(t *testing.T) {
	ctx := context.Background()
	_, err := app.New(ctx, nil, newStubClient(), memstore.New(), memstore.New())
	require.Error(t, err)
	_, err = app.New(ctx, config.New(), nil, memstore.New(), memstore.New())
	require.Error(t, err)
	_, err = app.New(ctx, config.New(), newStubClient(), nil, memstore.New())
	require.Error(t, err)
}

func TestSignIn_StoresProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.SignIn(ctx, "judge@example.com", "wrong")
	require.ErrorIs(t, err, interrors.ErrInvalidCredentials)
	_, err = f.app.Profile(ctx)
	require.ErrorIs(t, err, interrors.ErrNotSignedIn)

	f.signIn(t)
	user, err := f.app.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "judge@example.com", user.Email)
}

func TestQuery_CachedWhileFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)

	for i := 0; i < 3; i++ {
		_, err := f.app.Query(ctx, "contests", map[string]string{"status": "eq.open"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.client.Gets("contests"))

	f.clock.Advance(31 * time.Second)
	_, err := f.app.Query(ctx, "contests", map[string]string{"status": "eq.open"})
	require.NoError(t, err)
	require.Equal(t, 2, f.client.Gets("contests"))
}

func TestMutate_InvalidatesResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)

	_, err := f.app.Query(ctx, "scores", nil)
	require.NoError(t, err)
	raw, err := f.app.Mutate(ctx, "scores", map[string]any{"value": 8})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"2"}`, string(raw))

	_, err = f.app.Query(ctx, "scores", nil)
	require.NoError(t, err)
	require.Equal(t, 2, f.client.Gets("scores"))
}

func TestAuthFailure_TearsDownOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	_, err := f.app.Query(ctx, "contests", nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.app.Cache().Len())

	// Both queries are in flight before either fails.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.client.getFn = func(string) (json.RawMessage, error) {
		arrived.Done()
		arrived.Wait()
		return nil, &backend.Error{Status: http.StatusUnauthorized, Code: backend.CodeJWTExpired, Message: "JWT expired"}
	}

	oldCache := f.app.Cache()
	errs := make(chan error, 2)
	for _, resource := range []string{"submissions", "scores"} {
		go func(resource string) {
			_, err := f.app.Query(ctx, resource, nil)
			errs <- err
		}(resource)
	}
	require.Error(t, <-errs)
	require.Error(t, <-errs)

	require.Equal(t, int32(1), f.client.revokes.Load())
	require.Equal(t, 1, f.app.Generation())
	require.Equal(t, 0, oldCache.Len())
	require.Equal(t, "/login", f.app.History().Current())
	require.Equal(t, []string{"/login"}, f.app.History().Entries())

	_, err = f.profiles.Get(ctx, profileKey)
	require.ErrorIs(t, err, interrors.ErrNotFound)

	// No retries for authentication failures.
	require.Equal(t, 1, f.client.Gets("submissions"))
	require.Equal(t, 1, f.client.Gets("scores"))

	// The reload built a fresh guard.
	require.False(t, f.app.Redirecting())
	require.NotSame(t, oldCache, f.app.Cache())

	// Authentication failures are not shown as notices.
	for _, n := range f.app.Notices().Active() {
		require.NotEqual(t, notify.KindError, n.Kind)
	}
}

func TestForbidden_SurfacedAndRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	f.client.getFn = func(string) (json.RawMessage, error) {
		return nil, &backend.Error{Status: http.StatusForbidden, Code: "42501", Message: "permission denied for submissions"}
	}

	_, err := f.app.Query(ctx, "submissions", nil)
	require.Error(t, err)
	require.Equal(t, 4, f.client.Gets("submissions"))
	require.Equal(t, int32(0), f.client.revokes.Load())
	require.Equal(t, 0, f.app.Generation())

	notices := f.app.Notices().Active()
	require.Equal(t, notify.KindError, notices[len(notices)-1].Kind)
	require.Equal(t, "permission denied for submissions", notices[len(notices)-1].Message)
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)

	f.app.SignOut(ctx)
	require.Equal(t, int32(1), f.client.revokes.Load())
	require.Equal(t, 1, f.app.Generation())
	require.Equal(t, "/login", f.app.History().Current())
	_, err := f.app.Profile(ctx)
	require.ErrorIs(t, err, interrors.ErrNotSignedIn)
}

func TestSubmitCodes_SurvivesReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.app.SubmitCodes(ctx, "ABCD12", "99999999")
	require.False(t, res.OK)
	require.Equal(t, "Invalid participant code", res.Message)
	require.Equal(t, "/participant/enter", f.app.History().Current())

	res = f.app.SubmitCodes(ctx, "ABCD12", "10234567")
	require.True(t, res.OK)
	require.Equal(t, "/participant/info", f.app.History().Current())
	require.NoError(t, f.app.Participants().SetSelection(ctx, "landscape"))

	f.app.History().Reload("/participant/info")
	require.Equal(t, participant.StateActive, f.app.Participants().State())
	selection, err := f.app.Participants().Selection(ctx)
	require.NoError(t, err)
	require.Equal(t, "landscape", selection)

	// A new process restores from the same session store.
	restarted := f.build(t)
	require.Equal(t, participant.StateActive, restarted.Participants().State())
}

func TestTimeoutWarning_ExtendAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.app.SubmitCodes(ctx, "ABCD12", "10234567").OK)

	f.clock.Advance(56 * time.Minute)
	f.app.Participants().Check(ctx)
	require.Equal(t, timeoutwarning.StateShown, f.app.Warning().State())

	require.True(t, f.app.ExtendSession(ctx))
	require.Equal(t, timeoutwarning.StateHidden, f.app.Warning().State())
	require.Equal(t, time.Hour, f.app.Participants().Remaining().Round(time.Minute))

	f.app.EndParticipantSession(ctx)
	require.Equal(t, participant.StateEnded, f.app.Participants().State())
	require.Equal(t, "/participant/enter", f.app.History().Current())
	_, err := f.sessions.Get(ctx, participant.SessionKey)
	require.ErrorIs(t, err, interrors.ErrNotFound)
}

func TestRecover(t *testing.T) {
	var monitored any
	f := newFixture(t, app.WithMonitor(func(r any, stack []byte) {
		monitored = r
		require.NotEmpty(t, stack)
	}))

	require.False(t, f.app.Recover(func() {}))
	require.True(t, f.app.Recover(func() { panic("render failed") }))
	require.Equal(t, "render failed", monitored)

	notices := f.app.Notices().Active()
	require.Len(t, notices, 1)
	require.Equal(t, app.RecoveryMessage, notices[0].Message)
}

func TestRun_RestartsAfterReload(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	// cache GC ticker and participant expiry ticker
	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))
	f.app.History().Reload("/login")
	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))

	cancel()
	require.NoError(t, <-done)
}

func TestProfileStoredAsJSON(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	var user backend.User
	require.NoError(t, storage.GetJSON(context.Background(), f.profiles, profileKey, &user))
	require.Equal(t, "judge", user.Role)
}
