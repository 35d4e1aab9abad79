package model

import "time"

// RefreshToken is one stored login session. The raw secret is never
// persisted; only its peppered HMAC digest is. A revoked row is a
// tombstone left behind by rotation so a replayed secret can be told
// apart from a token that never existed.
type RefreshToken struct {
	ID           string
	HashedSecret string
	UserID       string
	Revoked      bool
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

const (
	ScopeRead      = "READ"
	ScopeReadWrite = "READ_WRITE"
	// ScopeSession is the implicit scope of a verified access token.
	// It is never stored; API tokens carry READ or READ_WRITE.
	ScopeSession = "SESSION"
)

type APIToken struct {
	ID           string     `json:"id"`
	HashedSecret string     `json:"-"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Scope        string     `json:"scope"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func ValidAPITokenScope(scope string) bool {
	return scope == ScopeRead || scope == ScopeReadWrite
}
