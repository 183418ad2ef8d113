package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-token-bridge/server/authflowrepo"
)

// LoginHandler starts the OIDC Authorization Code + PKCE flow: it stores the
// flow state (verifier, nonce, return URL) keyed by the state parameter and
// redirects the browser to the provider's authorization endpoint.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oidcCfg, err := s.oidcConfig(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get OIDC config: %v", err), http.StatusInternalServerError)
			return
		}

		state := generateRandomString(32)
		nonce := generateRandomString(32)
		codeVerifier := generateRandomString(32)

		if err := s.authState.Upsert(state, &authflowrepo.AuthFlowState{
			CodeVerifier: codeVerifier,
			Nonce:        nonce,
			ReturnURL:    r.URL.Query().Get("return_url"),
			CreatedAt:    time.Now(),
		}); err != nil {
			http.Error(w, "Failed to store auth flow state", http.StatusInternalServerError)
			return
		}

		authURL := oidcCfg.OAuth2Config.AuthCodeURL(state,
			oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(codeVerifier)),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
			oidc.Nonce(nonce),
		)

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}
