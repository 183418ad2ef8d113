package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LogoutHandler removes the login session and clears the cookie. Token
// revocation at the provider is not attempted; the access token simply ages
// out and the refresh token is forgotten with the session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(loggedInSessionID); err == nil && cookie.Value != "" {
			if err := s.sessions.Delete(cookie.Value); err != nil {
				log.Warn().Err(err).Msg("failed to delete session on logout")
			}
		}

		s.ClearLoginSessionCookie(w, r)
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}
