package models

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// SessionToken is an OAuth token bound to a browser session.
type SessionToken struct {
	sessionID string
	platform  Platform
	token     *oauth2.Token
	createdAt time.Time
	updatedAt time.Time
}

// NewSessionToken creates a token record for the given session.
func NewSessionToken(sessionID string, platform Platform, token *oauth2.Token) *SessionToken {
	now := time.Now()
	return &SessionToken{
		sessionID: sessionID,
		platform:  platform,
		token:     token,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *SessionToken) ID() string { return s.sessionID }
func (s *SessionToken) Platform() Platform { return s.platform }
func (s *SessionToken) Token() *oauth2.Token { return s.token }
func (s *SessionToken) CreatedAt() time.Time { return s.createdAt }
func (s *SessionToken) UpdatedAt() time.Time { return s.updatedAt }
func (s *SessionToken) SetCreatedAt(t time.Time) { s.createdAt = t }

// SetToken replaces the stored token and bumps the update time.
func (s *SessionToken) SetToken(token *oauth2.Token) {
	s.token = token
	s.updatedAt = time.Now()
}

// SetUpdatedAt overrides the update time, used when loading from the database.
func (s *SessionToken) SetUpdatedAt(t time.Time) {
	s.updatedAt = t
}

// Validate checks that the record can be stored.
func (s *SessionToken) Validate() error {
	if s.sessionID == "" {
		return errors.New("session id is required")
	}
	if !s.platform.Known() {
		return errors.New("unknown platform")
	}
	if s.token == nil || s.token.AccessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
