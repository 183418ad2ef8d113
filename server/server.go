package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-token-bridge/internal/config"
	"github.com/jrsteele09/go-token-bridge/outbound"
	"github.com/jrsteele09/go-token-bridge/server/authflowrepo"
	"github.com/jrsteele09/go-token-bridge/session"
)

type OidcConfig struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

// Server is the UI-facing half of the bridge: it logs users in against the
// external identity provider, keeps their session principal, and proxies
// /api/ requests to the protected API with the session's token attached.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	sessions  session.Repo
	authState authflowrepo.Repo
	apiProxy  http.Handler

	oidc     *OidcConfig
	oidcLock sync.RWMutex
}

func New(config config.Config, sessions session.Repo, authState authflowrepo.Repo, injector *outbound.Injector) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] sessions repo is required")
	}
	if authState == nil {
		return nil, fmt.Errorf("[Server New] authState repo is required")
	}
	if injector == nil {
		return nil, fmt.Errorf("[Server New] injector is required")
	}

	apiURL, err := url.Parse(config.GetAPIBaseURL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] invalid API base URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(apiURL)
	proxy.Transport = injector

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		sessions:  sessions,
		authState: authState,
		apiProxy:  http.StripPrefix(strings.TrimRight(RouteAPIPrefix, "/"), proxy),
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// oidcConfig lazily discovers the provider's endpoints. Discovery is a network
// call, so it runs on first use rather than at construction.
func (s *Server) oidcConfig(ctx context.Context) (*OidcConfig, error) {
	s.oidcLock.RLock()
	cfg := s.oidc
	s.oidcLock.RUnlock()
	if cfg != nil {
		return cfg, nil
	}

	provider, err := oidc.NewProvider(ctx, s.config.GetIssuer())
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	cfg = &OidcConfig{
		OidcProvider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     s.config.GetClientID(),
			ClientSecret: s.config.GetClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  strings.TrimRight(s.config.GetBaseURL(), "/") + RouteCallback,
			Scopes:       s.config.GetScopes(),
		},
		OidcVerifier: provider.Verifier(&oidc.Config{
			ClientID: s.config.GetClientID(),
		}),
	}

	s.oidcLock.Lock()
	s.oidc = cfg
	s.oidcLock.Unlock()

	return cfg, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
