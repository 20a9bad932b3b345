package config

import "time"

type SessionConfig interface {
	GetParticipantSessionDuration() time.Duration
	GetExpiryWarningLead() time.Duration
	GetExpiryCheckInterval() time.Duration
	GetRevokeTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetParticipantSessionDuration is used when the backend does not report a duration.
func (Session) GetParticipantSessionDuration() time.Duration {
	return GetDurationEnv("SESSION_DURATION", 2*time.Hour)
}

func (Session) GetExpiryWarningLead() time.Duration {
	return 5 * time.Minute
}

func (Session) GetExpiryCheckInterval() time.Duration {
	return GetDurationEnv("SESSION_CHECK_INTERVAL", 30*time.Second)
}

func (Session) GetRevokeTimeout() time.Duration {
	return 5 * time.Second
}
