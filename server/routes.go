package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteHandler("POST "+RouteParticipantSession, ChainMiddleware(s.ParticipantSessionHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteAuthToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteRestResource, ChainMiddleware(s.SelectHandler(), s.APIMiddleware(s.RequireBearer)...))
	s.RegisterRouteHandler("POST "+RouteRestResource, ChainMiddleware(s.InsertHandler(), s.APIMiddleware(s.RequireBearer)...))

	// CORS preflight for every route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
