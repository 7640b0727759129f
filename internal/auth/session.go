package auth

import (
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// TokenBytes is the number of random bytes in a session token; the token
// itself is their hex encoding.
const TokenBytes = 32

// SessionInfo holds the Unix-second timestamps of a session.
type SessionInfo struct {
	CreatedAt    int64
	LastActivity int64
}

// SessionRegistry is the table of live session tokens with sliding
// expiration.
type SessionRegistry struct {
	sessions map[string]*SessionInfo
	timeout  time.Duration
	now      Clock
}

// NewSessionRegistry returns an empty registry whose sessions expire after
// timeout without activity.
func NewSessionRegistry(timeout time.Duration, now Clock) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*SessionInfo),
		timeout:  timeout,
		now:      now,
	}
}

// Create issues a new token. Collisions are not checked for.
func (r *SessionRegistry) Create() (string, error) {
	token, err := common.MakeRandHexString(TokenBytes)
	if err != nil {
		return "", err
	}

	now := r.now().Unix()
	r.sessions[token] = &SessionInfo{CreatedAt: now, LastActivity: now}
	return token, nil
}

// Validate reports whether token is live. A live token has its activity
// refreshed; an expired one is removed.
func (r *SessionRegistry) Validate(token string) bool {
	s, ok := r.sessions[token]
	if !ok {
		return false
	}

	now := r.now().Unix()
	if now-s.LastActivity > int64(r.timeout/time.Second) {
		delete(r.sessions, token)
		return false
	}

	s.LastActivity = now
	return true
}

// Lock removes token. Unknown tokens are ignored.
func (r *SessionRegistry) Lock(token string) {
	delete(r.sessions, token)
}

// Info returns a copy of the session's timestamps.
func (r *SessionRegistry) Info(token string) (SessionInfo, bool) {
	s, ok := r.sessions[token]
	if !ok {
		return SessionInfo{}, false
	}
	return *s, true
}

// Len is the number of sessions currently held, expired or not.
func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}
