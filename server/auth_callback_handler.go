package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-token-bridge/session"
)

// CallbackHandler completes the OIDC Authorization Code + PKCE flow: it
// exchanges the code for tokens, verifies the ID token, and creates the login
// session principal holding the access and refresh token pair.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Parse form to support both GET (query params) and POST (form_post response mode)
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Check for authorization errors
		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		authState, err := s.authState.Get(state)
		if err != nil || authState == nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		// Clean up state after use
		if err := s.authState.Delete(state); err != nil {
			http.Error(w, "Invalid state parameter", http.StatusInternalServerError)
			return
		}

		oidcCfg, err := s.oidcConfig(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get OIDC config: %v", err), http.StatusInternalServerError)
			return
		}

		// Exchange authorization code for tokens using standard oauth2 library
		oauth2Token, err := oidcCfg.OAuth2Config.Exchange(
			r.Context(),
			code,
			oauth2.SetAuthURLParam("code_verifier", authState.CodeVerifier),
		)
		if err != nil {
			http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		// Extract ID token and verify it
		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "No ID token in response", http.StatusInternalServerError)
			return
		}

		// Verify the ID token signature and claims (including nonce)
		idToken, err := oidcCfg.OidcVerifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			http.Error(w, fmt.Sprintf("ID token verification failed: %v", err), http.StatusInternalServerError)
			return
		}

		// Extract and validate claims in one pass
		var claims struct {
			Nonce string `json:"nonce"`
			Sub   string `json:"sub"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, fmt.Sprintf("Failed to extract claims: %v", err), http.StatusInternalServerError)
			return
		}

		// Validate nonce to prevent replay attacks
		if claims.Nonce != authState.Nonce {
			http.Error(w, "Invalid nonce", http.StatusUnauthorized)
			return
		}

		// Create the session principal with the token pair from the provider
		sessionID := uuid.NewString()
		lifetime := s.config.GetSessionLifetime()
		principal := session.Principal{
			SessionID:    sessionID,
			Subject:      claims.Sub,
			Email:        claims.Email,
			Name:         claims.Name,
			AccessToken:  oauth2Token.AccessToken,
			RefreshToken: oauth2Token.RefreshToken,
			ExpiresAt:    time.Now().Add(lifetime),
			CreatedAt:    time.Now(),
		}

		if err := s.sessions.Upsert(sessionID, principal); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create session: %v", err), http.StatusInternalServerError)
			return
		}

		s.SetLoginSessionCookie(w, sessionID, r, int(lifetime.Seconds()))

		// Redirect to original destination or the index page
		returnURL := authState.ReturnURL
		if returnURL == "" {
			returnURL = RouteIndex
		}
		http.Redirect(w, r, returnURL, http.StatusSeeOther)
	}
}
