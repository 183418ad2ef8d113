package outbound_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-token-bridge/outbound"
	"github.com/jrsteele09/go-token-bridge/session"
	"github.com/jrsteele09/go-token-bridge/session/repofakes"
	"github.com/jrsteele09/go-token-bridge/token"
)

type testOIDCConfig struct {
	issuer string
}

func (c testOIDCConfig) GetProviderDomain() string { return "" }
func (c testOIDCConfig) GetAuthServerID() string   { return "" }
func (c testOIDCConfig) GetIssuer() string         { return c.issuer }
func (c testOIDCConfig) GetClientID() string       { return "test-client-1" }
func (c testOIDCConfig) GetClientSecret() string   { return "test-secret-1" }
func (c testOIDCConfig) GetAudience() string       { return "api" }
func (c testOIDCConfig) GetScopes() []string       { return []string{"openid"} }

// headerRecorder is a test API that records the Authorization header of every request.
type headerRecorder struct {
	mu      sync.Mutex
	headers []string
}

func (h *headerRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.headers = append(h.headers, r.Header.Get("Authorization"))
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (h *headerRecorder) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.headers...)
}

func expiringToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, injector *outbound.Injector, apiURL string, principal *session.Principal) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	require.NoError(t, err)
	if principal != nil {
		req = req.WithContext(session.WithPrincipal(req.Context(), *principal))
	}

	resp, err := injector.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestInjector_UnauthenticatedRequest(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	injector := outbound.NewInjector(outbound.WithLogger(zerolog.Nop()))
	doRequest(t, injector, api.URL, nil)

	require.Equal(t, []string{""}, recorder.recorded())
}

func TestInjector_AttachesBearerToken(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	injector := outbound.NewInjector(outbound.WithLogger(zerolog.Nop()))
	principal := session.Principal{SessionID: "session-1", AccessToken: "abc123"}
	doRequest(t, injector, api.URL, &principal)

	require.Equal(t, []string{"Bearer abc123"}, recorder.recorded())
}

func TestInjector_DoesNotMutateCallerRequest(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	injector := outbound.NewInjector(outbound.WithLogger(zerolog.Nop()))

	req, err := http.NewRequest(http.MethodGet, api.URL, nil)
	require.NoError(t, err)
	req = req.WithContext(session.WithPrincipal(req.Context(), session.Principal{SessionID: "session-1", AccessToken: "abc123"}))

	resp, err := injector.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Empty(t, req.Header.Get("Authorization"))
}

func TestInjector_PrincipalWithoutToken(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	var logOutput bytes.Buffer
	injector := outbound.NewInjector(outbound.WithLogger(zerolog.New(&logOutput)))
	principal := session.Principal{SessionID: "session-1", Subject: "user-1"}
	doRequest(t, injector, api.URL, &principal)

	require.Equal(t, []string{""}, recorder.recorded())
	require.Contains(t, logOutput.String(), "no access token")
	require.Contains(t, logOutput.String(), `"level":"warn"`)
}

func TestInjector_RefreshesStaleToken(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	var providerCalls int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&providerCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-access","refresh_token":"fresh-refresh"}`))
	}))
	defer provider.Close()

	sessions := repofakes.NewFakeSessionRepo()
	staleToken := expiringToken(t, time.Minute) // inside the 5 minute skew window
	principal := session.Principal{
		SessionID:    "session-1",
		AccessToken:  staleToken,
		RefreshToken: "old-refresh",
	}
	require.NoError(t, sessions.Upsert("session-1", principal))

	injector := outbound.NewInjector(
		outbound.WithLogger(zerolog.Nop()),
		outbound.WithFreshness(
			token.NewValidator(),
			token.NewRefresher(testOIDCConfig{issuer: provider.URL}, 5*time.Second, token.WithLogger(zerolog.Nop())),
			sessions,
		),
	)
	doRequest(t, injector, api.URL, &principal)

	require.Equal(t, []string{"Bearer fresh-access"}, recorder.recorded())
	require.Equal(t, int32(1), atomic.LoadInt32(&providerCalls))

	stored, err := sessions.Get("session-1")
	require.NoError(t, err)
	require.Equal(t, "fresh-access", stored.AccessToken)
	require.Equal(t, "fresh-refresh", stored.RefreshToken)
}

func TestInjector_FreshTokenSkipsRefresh(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	var providerCalls int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&providerCalls, 1)
	}))
	defer provider.Close()

	sessions := repofakes.NewFakeSessionRepo()
	freshToken := expiringToken(t, time.Hour)
	principal := session.Principal{
		SessionID:    "session-1",
		AccessToken:  freshToken,
		RefreshToken: "old-refresh",
	}
	require.NoError(t, sessions.Upsert("session-1", principal))

	injector := outbound.NewInjector(
		outbound.WithLogger(zerolog.Nop()),
		outbound.WithFreshness(
			token.NewValidator(),
			token.NewRefresher(testOIDCConfig{issuer: provider.URL}, 5*time.Second, token.WithLogger(zerolog.Nop())),
			sessions,
		),
	)
	doRequest(t, injector, api.URL, &principal)

	require.Equal(t, []string{"Bearer " + freshToken}, recorder.recorded())
	require.Equal(t, int32(0), atomic.LoadInt32(&providerCalls))
}

func TestInjector_RefreshFailureAttachesStoredToken(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer provider.Close()

	sessions := repofakes.NewFakeSessionRepo()
	staleToken := expiringToken(t, time.Minute)
	principal := session.Principal{
		SessionID:    "session-1",
		AccessToken:  staleToken,
		RefreshToken: "revoked-refresh",
	}
	require.NoError(t, sessions.Upsert("session-1", principal))

	var logOutput bytes.Buffer
	injector := outbound.NewInjector(
		outbound.WithLogger(zerolog.New(&logOutput)),
		outbound.WithFreshness(
			token.NewValidator(),
			token.NewRefresher(testOIDCConfig{issuer: provider.URL}, 5*time.Second, token.WithLogger(zerolog.Nop())),
			sessions,
		),
	)
	doRequest(t, injector, api.URL, &principal)

	// Degraded mode: the stale token still goes out and the API's 401 decides.
	require.Equal(t, []string{"Bearer " + staleToken}, recorder.recorded())
	require.Contains(t, logOutput.String(), "refresh failed")
}

func TestInjector_StaleTokenWithoutRefreshToken(t *testing.T) {
	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	sessions := repofakes.NewFakeSessionRepo()
	staleToken := expiringToken(t, time.Minute)
	principal := session.Principal{SessionID: "session-1", AccessToken: staleToken}
	require.NoError(t, sessions.Upsert("session-1", principal))

	injector := outbound.NewInjector(
		outbound.WithLogger(zerolog.Nop()),
		outbound.WithFreshness(
			token.NewValidator(),
			token.NewRefresher(testOIDCConfig{issuer: "http://127.0.0.1:0"}, time.Second, token.WithLogger(zerolog.Nop())),
			sessions,
		),
	)
	doRequest(t, injector, api.URL, &principal)

	require.Equal(t, []string{"Bearer " + staleToken}, recorder.recorded())
}

func TestInjector_ConcurrentRefreshIsDeduplicated(t *testing.T) {
	const concurrentRequests = 8

	recorder := &headerRecorder{}
	api := httptest.NewServer(recorder.handler())
	defer api.Close()

	var providerCalls int32
	release := make(chan struct{})
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&providerCalls, 1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-access"}`))
	}))
	defer provider.Close()

	sessions := repofakes.NewFakeSessionRepo()
	staleToken := expiringToken(t, time.Minute)
	principal := session.Principal{
		SessionID:    "session-1",
		AccessToken:  staleToken,
		RefreshToken: "old-refresh",
	}
	require.NoError(t, sessions.Upsert("session-1", principal))

	injector := outbound.NewInjector(
		outbound.WithLogger(zerolog.Nop()),
		outbound.WithFreshness(
			token.NewValidator(),
			token.NewRefresher(testOIDCConfig{issuer: provider.URL}, 5*time.Second, token.WithLogger(zerolog.Nop())),
			sessions,
		),
	)

	var wg sync.WaitGroup
	for i := 0; i < concurrentRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doRequest(t, injector, api.URL, &principal)
		}()
	}

	// Give every request time to join the in-flight refresh before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&providerCalls))
	for _, header := range recorder.recorded() {
		require.Equal(t, "Bearer fresh-access", header)
	}
	require.Len(t, recorder.recorded(), concurrentRequests)
}
