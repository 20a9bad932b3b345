package server

// Route path constants
// All backend routes are defined here to ensure consistency and prevent typos
const (
	// Edge functions
	RouteParticipantSession = "/functions/v1/participant-session"

	// Auth
	RouteAuthToken  = "/auth/v1/token"
	RouteAuthLogout = "/auth/v1/logout"

	// Rest API
	RouteRestResource = "/rest/v1/{resource}"

	// Health
	RouteHealth = "/health"
)
