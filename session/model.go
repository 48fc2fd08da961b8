package session

import (
	"crypto/sha256"
	"time"
)

// Session is the server-side record backing one issued access token.
//
// A session authorizes requests only while Active is true and ExpiresAt is
// in the future. Deactivation flips Active in place rather than deleting
// the record, so a revoked session remains inspectable until its Redis TTL
// reclaims it.
type Session struct {
	SessionID string
	UserID    string
	Role      string

	TokenHash [32]byte

	IP        string
	UserAgent string

	CreatedAt    int64
	LastActivity int64
	ExpiresAt    int64

	Active bool
}

// Valid reports whether the session authorizes requests at the given time.
func (s *Session) Valid(now time.Time) bool {
	return s.Active && s.ExpiresAt > now.Unix()
}

// HashToken returns the SHA-256 digest used to index sessions by token.
// Raw tokens are never written to Redis.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
