package session

import (
	"fmt"
	"sync"

	autherrors "github.com/jrsteele09/go-token-bridge/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu         sync.RWMutex
	principals map[string]Principal
}

// NewInMemoryRepo creates a new in-memory session principal repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		principals: make(map[string]Principal),
	}
}

// Upsert creates or updates a session principal
func (r *InMemoryRepo) Upsert(sessionID string, principal Principal) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	principal.SessionID = sessionID
	r.principals[sessionID] = principal
	return nil
}

// Get retrieves a session principal by session ID
func (r *InMemoryRepo) Get(sessionID string) (Principal, error) {
	if sessionID == "" {
		return Principal{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	principal, ok := r.principals[sessionID]
	if !ok {
		return Principal{}, autherrors.ErrSessionNotFound
	}
	return principal, nil
}

// Delete removes a session principal
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.principals, sessionID)
	return nil
}

// ReplaceTokens swaps the stored token pair under the write lock, so a session
// never holds more than one valid access token at a time.
func (r *InMemoryRepo) ReplaceTokens(sessionID, newAccessToken, newRefreshToken string) (Principal, error) {
	if sessionID == "" {
		return Principal{}, fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	principal, ok := r.principals[sessionID]
	if !ok {
		return Principal{}, autherrors.ErrSessionNotFound
	}

	principal.AccessToken = newAccessToken
	if newRefreshToken != "" {
		principal.RefreshToken = newRefreshToken
	}
	r.principals[sessionID] = principal

	return principal, nil
}
