// Package codeentry handles the participant code-entry form submission.
package codeentry

import (
	"context"

	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/jrsteele09/go-contest-portal/participant"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Presenter shows the outcome of a submission to the user.
type Presenter interface {
	ShowSuccess(message string) string
	ShowError(message string) string
}

// Router performs in-app navigation.
type Router interface {
	Replace(path string)
}

// SessionStarter is the part of participant.Manager the flow needs.
type SessionStarter interface {
	EnterContest(ctx context.Context, contestCode, participantCode string) (participant.Session, error)
}

// Result of a submission.
type Result struct {
	OK      bool
	Session participant.Session
	Code    contesterr.Code // set when the backend or validation rejected the codes
	Message string          // what the user was shown
}

type Flow struct {
	sessions  SessionStarter
	presenter Presenter
	router    Router
	infoPath  string
}

func NewFlow(sessions SessionStarter, presenter Presenter, router Router, infoPath string) (*Flow, error) {
	if sessions == nil {
		return nil, errors.New("[codeentry.NewFlow] session starter is required")
	}
	if presenter == nil {
		return nil, errors.New("[codeentry.NewFlow] presenter is required")
	}
	if router == nil {
		return nil, errors.New("[codeentry.NewFlow] router is required")
	}
	if infoPath == "" {
		return nil, errors.New("[codeentry.NewFlow] info path is required")
	}
	return &Flow{sessions: sessions, presenter: presenter, router: router, infoPath: infoPath}, nil
}

// Submit enters the contest with the given codes. On success the user is
// greeted and replaced onto the participant info page; on failure they stay
// on the form and see the message for the error code.
func (f *Flow) Submit(ctx context.Context, contestCode, participantCode string) Result {
	session, err := f.sessions.EnterContest(ctx, contestCode, participantCode)
	if err != nil {
		msg := contesterr.UserMessage(err)
		code, _ := contesterr.CodeOf(err)
		log.Warn().Err(err).Str("code", string(code)).Msg("code entry rejected")
		f.presenter.ShowError(msg)
		return Result{Code: code, Message: msg}
	}

	msg := welcomeMessage(session)
	f.presenter.ShowSuccess(msg)
	f.router.Replace(f.infoPath)
	return Result{OK: true, Session: session, Message: msg}
}

func welcomeMessage(s participant.Session) string {
	name := s.ContestName
	if name == "" {
		name = s.OrganizationName
	}
	if name == "" {
		return "Welcome!"
	}
	return "Welcome to " + name + "!"
}
