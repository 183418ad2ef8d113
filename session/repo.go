package session

type Repo interface {
	Upsert(sessionID string, principal Principal) error
	Get(sessionID string) (Principal, error)
	Delete(sessionID string) error

	// ReplaceTokens atomically swaps the session's token pair for a freshly
	// minted one and returns the updated principal. An empty newRefreshToken
	// keeps the stored refresh token (the provider did not rotate it).
	ReplaceTokens(sessionID, newAccessToken, newRefreshToken string) (Principal, error)
}
