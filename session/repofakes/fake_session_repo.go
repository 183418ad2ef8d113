package repofakes

import (
	"sync"

	"github.com/jrsteele09/go-token-bridge/session"

	autherrors "github.com/jrsteele09/go-token-bridge/internal/errors"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a test double for session.Repo that records calls.
type FakeSessionRepo struct {
	lock       sync.RWMutex
	principals map[string]session.Principal

	UpsertCalls        int
	ReplaceTokensCalls int
	DeleteCalls        int

	// ReplaceTokensErr, when set, is returned from ReplaceTokens.
	ReplaceTokensErr error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		principals: make(map[string]session.Principal),
	}
}

func (sr *FakeSessionRepo) Upsert(sessionID string, principal session.Principal) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.UpsertCalls++
	principal.SessionID = sessionID
	sr.principals[sessionID] = principal
	return nil
}

func (sr *FakeSessionRepo) Get(sessionID string) (session.Principal, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	principal, ok := sr.principals[sessionID]
	if !ok {
		return session.Principal{}, autherrors.ErrSessionNotFound
	}
	return principal, nil
}

func (sr *FakeSessionRepo) Delete(sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.DeleteCalls++
	delete(sr.principals, sessionID)
	return nil
}

func (sr *FakeSessionRepo) ReplaceTokens(sessionID, newAccessToken, newRefreshToken string) (session.Principal, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.ReplaceTokensCalls++
	if sr.ReplaceTokensErr != nil {
		return session.Principal{}, sr.ReplaceTokensErr
	}

	principal, ok := sr.principals[sessionID]
	if !ok {
		return session.Principal{}, autherrors.ErrSessionNotFound
	}

	principal.AccessToken = newAccessToken
	if newRefreshToken != "" {
		principal.RefreshToken = newRefreshToken
	}
	sr.principals[sessionID] = principal
	return principal, nil
}
