package token

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-token-bridge/internal/config"
	autherrors "github.com/jrsteele09/go-token-bridge/internal/errors"
)

// tokenEndpointPath is appended to the issuer to reach the provider's token endpoint.
const tokenEndpointPath = "/v1/token"

// Pair is the outcome of a successful refresh. RefreshToken is only set when
// the provider rotated the refresh token; callers should persist it when present.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// tokenResponse is the provider's token endpoint response (RFC 6749 §5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Refresher exchanges a long-lived refresh token for a new access token via
// the identity provider's token endpoint. Every failure mode (provider
// rejection, malformed body, transport error, timeout) collapses to
// autherrors.ErrRefreshFailed; the distinguishing detail is logged, not
// surfaced. No retries are attempted: retry policy belongs to the caller.
type Refresher struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// RefresherOption defines a function type to modify the Refresher instance.
type RefresherOption func(*Refresher)

// WithHTTPClient overrides the HTTP client used for the token endpoint call.
func WithHTTPClient(client *http.Client) RefresherOption {
	return func(r *Refresher) {
		r.httpClient = client
	}
}

// WithLogger overrides the logger (primarily for testing).
func WithLogger(logger zerolog.Logger) RefresherOption {
	return func(r *Refresher) {
		r.logger = logger
	}
}

// NewRefresher creates a Refresher against cfg's issuer. Client credentials
// travel in the form body, so the issuer must be an https URL in production.
func NewRefresher(cfg config.OIDCConfig, timeout time.Duration, options ...RefresherOption) *Refresher {
	r := &Refresher{
		tokenURL:     strings.TrimRight(cfg.GetIssuer(), "/") + tokenEndpointPath,
		clientID:     cfg.GetClientID(),
		clientSecret: cfg.GetClientSecret(),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh performs one refresh_token grant round trip. The context carries the
// caller's cancellation and timeout. On success the new access token (and the
// rotated refresh token, when the provider returns one) is returned; on any
// failure the error is autherrors.ErrRefreshFailed.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		r.logger.Warn().Msg("refresh requested with empty refresh token")
		return Pair{}, autherrors.ErrRefreshFailed
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		r.logger.Error().Err(err).Str("url", r.tokenURL).Msg("failed to build token refresh request")
		return Pair{}, autherrors.ErrRefreshFailed
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", r.tokenURL).Msg("token refresh transport failure")
		return Pair{}, autherrors.ErrRefreshFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read token refresh response")
		return Pair{}, autherrors.ErrRefreshFailed
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("token refresh rejected by provider")
		return Pair{}, autherrors.ErrRefreshFailed
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		r.logger.Warn().Err(err).Msg("malformed token refresh response")
		return Pair{}, autherrors.ErrRefreshFailed
	}

	if strings.TrimSpace(tr.AccessToken) == "" {
		r.logger.Warn().Msg("token refresh response missing access_token")
		return Pair{}, autherrors.ErrRefreshFailed
	}

	r.logger.Debug().Int("expires_in", tr.ExpiresIn).Msg("access token refreshed")
	return Pair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}
