package participant_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/jrsteele09/go-contest-portal/storage/memstore"
	"github.com/stretchr/testify/require"
)

const (
	testContestCode     = "ABCD12"
	testParticipantCode = "10234567"
	sessionDuration     = time.Hour
)

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return "backend rejected: " + e.code }
func (e *codedErr) ErrorCode() string { return e.code }

// stubBackend accepts testContestCode/testParticipantCode and rejects anything else.
type stubBackend struct {
	mu       sync.Mutex
	calls    int
	duration time.Duration
	err      error
}

func (b *stubBackend) EnterSession(_ context.Context, contestCode, participantCode string) (*participant.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if contestCode != testContestCode {
		return nil, &codedErr{code: string(contesterr.CodeContestNotFound)}
	}
	if participantCode != testParticipantCode {
		return nil, &codedErr{code: string(contesterr.CodeInvalidParticipantCode)}
	}
	return &participant.Entry{
		ContestID:        "contest-1",
		ParticipantID:    "participant-1",
		Code:             participantCode,
		OrganizationName: "Riverside Camera Club",
		ContestName:      "Spring Open",
		SessionDuration:  b.duration,
	}, nil
}

func (b *stubBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type fixture struct {
	clock   *clockwork.FakeClock
	backend *stubBackend
	store   *memstore.Store
	manager *participant.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)),
		backend: &stubBackend{},
		store:   memstore.New(),
	}
	m, err := participant.NewManager(f.backend, f.store,
		participant.WithClock(f.clock),
		participant.WithSessionDuration(sessionDuration),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func (f *fixture) enter(t *testing.T) participant.Session {
	t.Helper()
	s, err := f.manager.EnterContest(context.Background(), testContestCode, testParticipantCode)
	require.NoError(t, err)
	return s
}

func TestNewManager_RequiresDeps(t *testing.T) {
	_, err := participant.NewManager(nil, memstore.New())
	require.Error(t, err)
	_, err = participant.NewManager(&stubBackend{}, nil)
	require.Error(t, err)
}

func TestEnterContest_MissingCodes(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct{ contest, participant string }{
		{testContestCode, ""},
		{"", testParticipantCode},
		{"  ", "   "},
	} {
		_, err := f.manager.EnterContest(context.Background(), tc.contest, tc.participant)
		require.ErrorIs(t, err, contesterr.ErrMissingCodes)
	}
	require.Equal(t, 0, f.backend.Calls())
	require.Equal(t, participant.StateAnonymous, f.manager.State())
}

func TestEnterContest_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.enter(t)
	require.Equal(t, participant.StateActive, f.manager.State())
	require.True(t, s.ExpiresAt.After(f.clock.Now()))
	require.Equal(t, f.clock.Now().Add(sessionDuration), s.ExpiresAt)
	require.Equal(t, "Riverside Camera Club", s.OrganizationName)

	got, err := f.manager.RequireActive(ctx)
	require.NoError(t, err)
	require.Equal(t, s, got)

	_, err = f.store.Get(ctx, participant.SessionKey)
	require.NoError(t, err)
}

func TestEnterContest_TrimsCodes(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.EnterContest(context.Background(), " "+testContestCode+" ", testParticipantCode+"\n")
	require.NoError(t, err)
	require.Equal(t, participant.StateActive, f.manager.State())
}

func TestEnterContest_BackendDuration(t *testing.T) {
	f := newFixture(t)
	f.backend.duration = 15 * time.Minute

	s := f.enter(t)
	require.Equal(t, f.clock.Now().Add(15*time.Minute), s.ExpiresAt)

	f.clock.Advance(10 * time.Minute)
	require.True(t, f.manager.ExtendSession(context.Background()))
	require.Equal(t, 15*time.Minute, f.manager.Remaining())
}

func TestEnterContest_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.EnterContest(context.Background(), testContestCode, "99999999")
	code, ok := contesterr.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, contesterr.CodeInvalidParticipantCode, code)
	require.Equal(t, "Invalid participant code", contesterr.UserMessage(err))
	require.Equal(t, participant.StateAnonymous, f.manager.State())

	_, err = f.manager.EnterContest(context.Background(), "ZZZZ99", testParticipantCode)
	require.ErrorIs(t, err, contesterr.New(contesterr.CodeContestNotFound, ""))
}

func TestEnterContest_TransportError(t *testing.T) {
	f := newFixture(t)
	f.backend.err = errors.New("connection refused")

	_, err := f.manager.EnterContest(context.Background(), testContestCode, testParticipantCode)
	require.Error(t, err)
	_, ok := contesterr.CodeOf(err)
	require.False(t, ok)
	require.Contains(t, err.Error(), "connection refused")
}

func TestPassiveExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enter(t)
	require.NoError(t, f.manager.SetSelection(ctx, "category-3"))

	expired := 0
	f.manager.OnExpired(func() { expired++ })

	f.clock.Advance(sessionDuration - time.Second)
	require.Equal(t, participant.StateActive, f.manager.Check(ctx))

	f.clock.Advance(2 * time.Second)
	require.Equal(t, participant.StateExpired, f.manager.Check(ctx))
	require.Equal(t, 1, expired)

	_, err := f.manager.RequireActive(ctx)
	require.ErrorIs(t, err, contesterr.ErrParticipantSessionExpired)
	err = f.manager.SetSelection(ctx, "category-4")
	require.ErrorIs(t, err, contesterr.ErrParticipantSessionExpired)

	require.Equal(t, 0, f.store.Len())
	require.Equal(t, participant.StateExpired, f.manager.Check(ctx))
	require.Equal(t, 1, expired)
}

func TestRequireActive_DetectsExpiryWithoutTicker(t *testing.T) {
	f := newFixture(t)
	f.enter(t)
	f.clock.Advance(2 * sessionDuration)

	_, err := f.manager.RequireActive(context.Background())
	require.ErrorIs(t, err, contesterr.ErrParticipantSessionExpired)
	require.Equal(t, participant.StateExpired, f.manager.State())
}

func TestExpiringSoon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enter(t)

	var warnings []participant.Session
	f.manager.OnExpiringSoon(func(s participant.Session) { warnings = append(warnings, s) })

	// Exactly five minutes left is not yet "less than"
	f.clock.Advance(sessionDuration - 5*time.Minute)
	f.manager.Check(ctx)
	require.Empty(t, warnings)

	f.clock.Advance(time.Second)
	f.manager.Check(ctx)
	require.Len(t, warnings, 1)

	f.clock.Advance(time.Minute)
	f.manager.Check(ctx)
	require.Len(t, warnings, 1)

	require.True(t, f.manager.ExtendSession(ctx))
	f.manager.Check(ctx)
	require.Len(t, warnings, 1)

	f.clock.Advance(sessionDuration - 4*time.Minute)
	f.manager.Check(ctx)
	require.Len(t, warnings, 2)
	require.True(t, warnings[1].ExpiresAt.After(warnings[0].ExpiresAt))
}

func TestExtendSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.False(t, f.manager.ExtendSession(ctx))

	s := f.enter(t)
	f.clock.Advance(30 * time.Minute)
	require.True(t, f.manager.ExtendSession(ctx))

	extended, ok := f.manager.Session()
	require.True(t, ok)
	require.Equal(t, s.ExpiresAt.Add(30*time.Minute), extended.ExpiresAt)
	require.Equal(t, sessionDuration, f.manager.Remaining())
}

func TestEndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.manager.EndSession(ctx)
	require.Equal(t, participant.StateAnonymous, f.manager.State())

	f.enter(t)
	require.NoError(t, f.manager.SetSelection(ctx, "category-1"))
	sel, err := f.manager.Selection(ctx)
	require.NoError(t, err)
	require.Equal(t, "category-1", sel)

	f.manager.EndSession(ctx)
	f.manager.EndSession(ctx)
	require.Equal(t, participant.StateEnded, f.manager.State())
	require.Equal(t, 0, f.store.Len())
	require.False(t, f.manager.ExtendSession(ctx))

	_, err = f.manager.RequireActive(ctx)
	require.ErrorIs(t, err, contesterr.ErrParticipantSessionRequired)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.enter(t)

	reloaded, err := participant.NewManager(f.backend, f.store, participant.WithClock(f.clock))
	require.NoError(t, err)
	state, err := reloaded.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, participant.StateActive, state)
	got, ok := reloaded.Session()
	require.True(t, ok)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	f.clock.Advance(2 * sessionDuration)
	again, err := participant.NewManager(f.backend, f.store, participant.WithClock(f.clock))
	require.NoError(t, err)
	state, err = again.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, participant.StateExpired, state)
	require.Equal(t, 0, f.store.Len())

	empty, err := participant.NewManager(f.backend, memstore.New())
	require.NoError(t, err)
	state, err = empty.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, participant.StateAnonymous, state)
}

func TestRun_ExpiresOnTick(t *testing.T) {
	f := newFixture(t)
	f.enter(t)

	expired := make(chan struct{})
	f.manager.OnExpired(func() { close(expired) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go f.manager.Run(ctx)

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(sessionDuration + participant.DefaultCheckInterval)

	select {
	case <-expired:
	case <-ctx.Done():
		t.Fatal("session did not expire on tick")
	}
	require.Equal(t, participant.StateExpired, f.manager.State())
}
