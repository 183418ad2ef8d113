package server

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleware()...)) // For form_post response mode
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleware()...))

	// UI
	s.RegisterRouteFunc("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleware(s.WithSession)...))

	// Outbound bridge to the protected API
	s.RegisterRouteFunc(RouteAPIPrefix, ChainMiddleware(s.APIProxyHandler(), s.WithSession))
}
