package server

import "net/http"

// APIProxyHandler forwards requests under RouteAPIPrefix to the protected API.
// The principal resolved by WithSession rides on the request context, and the
// proxy's transport (the outbound injector) attaches the bearer token. The
// API's own verification decides the outcome; 401s pass straight back.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.apiProxy.ServeHTTP(w, r)
	}
}
