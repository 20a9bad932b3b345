package participant

import (
	"context"
	"time"
)

// Session is an active participant code-entry session.
type Session struct {
	ContestID        string    `json:"contestId"`
	ParticipantID    string    `json:"participantId"`
	Code             string    `json:"code"`
	OrganizationName string    `json:"organizationName"`
	ContestName      string    `json:"contestName,omitempty"`
	ParticipantName  string    `json:"participantName,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
	// Duration is the length of one expiry window; extending restarts it.
	Duration time.Duration `json:"duration"`
}

// Entry is what the backend returns when it accepts a pair of codes.
type Entry struct {
	ContestID        string
	ParticipantID    string
	Code             string
	OrganizationName string
	ContestName      string
	ParticipantName  string
	SessionDuration  time.Duration // zero means use the configured duration
}

// Backend accepts contest and participant codes. Rejections carry one of the
// contesterr session entry codes, exposed through an ErrorCode() string method.
type Backend interface {
	EnterSession(ctx context.Context, contestCode, participantCode string) (*Entry, error)
}

// State of the participant session.
type State int

const (
	StateAnonymous State = iota
	StateActive
	StateExpired
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}
