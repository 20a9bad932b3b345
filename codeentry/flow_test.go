package codeentry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/codeentry"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/jrsteele09/go-contest-portal/navigation"
	"github.com/jrsteele09/go-contest-portal/notify"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/jrsteele09/go-contest-portal/storage/memstore"
	"github.com/stretchr/testify/require"
)

const (
	codeEntryPath = "/participant/enter"
	infoPath      = "/participant/info"
)

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return e.code }
func (e *codedErr) ErrorCode() string { return e.code }

type stubBackend struct {
	calls int
	err   error
}

func (b *stubBackend) EnterSession(_ context.Context, contestCode, participantCode string) (*participant.Entry, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if contestCode != "ABCD12" || participantCode != "10234567" {
		return nil, &codedErr{code: string(contesterr.CodeInvalidParticipantCode)}
	}
	return &participant.Entry{
		ContestID:        "contest-1",
		ParticipantID:    "participant-1",
		Code:             participantCode,
		OrganizationName: "Riverside Camera Club",
		ContestName:      "Spring Open",
	}, nil
}

type fixture struct {
	backend *stubBackend
	manager *participant.Manager
	notices *notify.Center
	history *navigation.History
	flow    *codeentry.Flow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC))
	f := &fixture{
		backend: &stubBackend{},
		notices: notify.NewCenter(notify.WithClock(clock)),
		history: navigation.NewHistory(codeEntryPath, nil),
	}
	m, err := participant.NewManager(f.backend, memstore.New(), participant.WithClock(clock))
	require.NoError(t, err)
	f.manager = m

	flow, err := codeentry.NewFlow(m, f.notices, f.history, infoPath)
	require.NoError(t, err)
	f.flow = flow
	return f
}

func TestNewFlow_RequiresDeps(t *testing.T) {
	f := newFixture(t)
	_, err := codeentry.NewFlow(nil, f.notices, f.history, infoPath)
	require.Error(t, err)
	_, err = codeentry.NewFlow(f.manager, nil, f.history, infoPath)
	require.Error(t, err)
	_, err = codeentry.NewFlow(f.manager, f.notices, nil, infoPath)
	require.Error(t, err)
	_, err = codeentry.NewFlow(f.manager, f.notices, f.history, "")
	require.Error(t, err)
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)

	res := f.flow.Submit(context.Background(), "ABCD12", "10234567")
	require.True(t, res.OK)
	require.Equal(t, "contest-1", res.Session.ContestID)
	require.Equal(t, participant.StateActive, f.manager.State())

	require.Equal(t, infoPath, f.history.Current())
	require.Equal(t, []string{infoPath}, f.history.Entries())

	notices := f.notices.Active()
	require.Len(t, notices, 1)
	require.Equal(t, notify.KindSuccess, notices[0].Kind)
	require.Contains(t, notices[0].Message, "Spring Open")
}

func TestSubmit_InvalidParticipantCode(t *testing.T) {
	f := newFixture(t)

	res := f.flow.Submit(context.Background(), "ABCD12", "99999999")
	require.False(t, res.OK)
	require.Equal(t, contesterr.CodeInvalidParticipantCode, res.Code)
	require.Equal(t, "Invalid participant code", res.Message)
	require.Equal(t, codeEntryPath, f.history.Current())
	require.Equal(t, participant.StateAnonymous, f.manager.State())

	notices := f.notices.Active()
	require.Len(t, notices, 1)
	require.Equal(t, notify.KindError, notices[0].Kind)
	require.Equal(t, "Invalid participant code", notices[0].Message)
}

func TestSubmit_EmptyCodesSkipBackend(t *testing.T) {
	f := newFixture(t)

	res := f.flow.Submit(context.Background(), "", "  ")
	require.False(t, res.OK)
	require.Equal(t, contesterr.CodeMissingCodes, res.Code)
	require.Equal(t, contesterr.Message(contesterr.CodeMissingCodes), res.Message)
	require.Equal(t, 0, f.backend.calls)
}

func TestSubmit_UnmappedErrorShowsGenericMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.err = errors.New("connection reset by peer")

	res := f.flow.Submit(context.Background(), "ABCD12", "10234567")
	require.False(t, res.OK)
	require.Empty(t, res.Code)
	require.Equal(t, contesterr.GenericMessage, res.Message)
	require.Equal(t, codeEntryPath, f.history.Current())
}

func TestSubmit_UnknownBackendCode(t *testing.T) {
	f := newFixture(t)
	f.backend.err = &codedErr{code: "SOMETHING_NEW"}

	res := f.flow.Submit(context.Background(), "ABCD12", "10234567")
	require.False(t, res.OK)
	require.Equal(t, contesterr.GenericMessage, res.Message)
}
