package backend

// Endpoint paths, relative to the backend base URL.
const (
	PathParticipantSession = "/functions/v1/participant-session"
	PathToken              = "/auth/v1/token"
	PathLogout             = "/auth/v1/logout"
	PathRest               = "/rest/v1/"
)

// CodeJWTExpired is returned by the rest API for expired or invalid credentials.
const CodeJWTExpired = "PGRST301"

// ParticipantSessionRequest is the body of a session entry request.
type ParticipantSessionRequest struct {
	ContestCode     string `json:"contestCode"`
	ParticipantCode string `json:"participantCode"`
}

// ParticipantSession is the session returned by a successful entry.
type ParticipantSession struct {
	ContestID        string `json:"contestId"`
	ParticipantID    string `json:"participantId"`
	Code             string `json:"code"`
	OrganizationName string `json:"organizationName"`
	ContestName      string `json:"contestName,omitempty"`
	ParticipantName  string `json:"participantName,omitempty"`
}

type ParticipantSessionResponse struct {
	Session                ParticipantSession `json:"session"`
	SessionDurationSeconds int64              `json:"sessionDurationSeconds,omitempty"`
}

// SignInRequest is the password grant body.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the signed in user's profile.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
