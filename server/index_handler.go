package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/jrsteele09/go-token-bridge/session"
)

// IndexHandler serves a minimal landing page reflecting the login state.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		principal, ok := session.PrincipalFrom(r.Context())
		if !ok {
			fmt.Fprintf(w, `<html><body><h1>%s</h1><p><a href="%s">Log in</a></p></body></html>`,
				html.EscapeString(s.config.GetAppName()), RouteLogin)
			return
		}

		fmt.Fprintf(w, `<html><body><h1>%s</h1><p>Logged in as %s (%s)</p><p><a href="%s">Log out</a></p></body></html>`,
			html.EscapeString(s.config.GetAppName()),
			html.EscapeString(principal.Name),
			html.EscapeString(principal.Email),
			RouteLogout)
	}
}
