package authsdk

import (
	"context"
	"sync"
	"time"
)

// Session is an authenticated gatekeep session. It is safe for concurrent
// use.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	token     string
	id        string
	expiresAt time.Time
}

func newSession(client *SDKClient, res *LoginResult) *Session {
	return &Session{
		client:    client,
		token:     res.SessionToken,
		id:        res.SessionID,
		expiresAt: res.ExpiresAt,
	}
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ID returns the login record id backing this session. Empty for sessions
// built with NewSessionFromToken.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the token's expiry has passed. Sessions restored
// from a bare token never report expired here; the server decides.
func (s *Session) Expired() bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && !time.Now().Before(exp)
}

// Logout marks this session as logged out. The token is rejected from then
// on.
func (s *Session) Logout(ctx context.Context) error {
	return s.LogoutSession(ctx, s.ID())
}
