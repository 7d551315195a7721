package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName   = "mixtape_session"
	sessionIDKey  = "sid"
	oauthStateKey = "oauth_state"
	sessionMaxAge = 30 * 24 * 60 * 60
	stateTTL      = 10 * time.Minute
)

// Sessions keeps a random session id and the pending OAuth state in a signed cookie.
//
// Tokens never go into the cookie; they are stored server-side under the session id. Issued OAuth states are
// also tracked server-side, so replaying an old cookie cannot redeem a state twice.
type Sessions struct {
	store sessions.Store

	mu      sync.Mutex
	pending map[string]time.Time // state -> expiry
}

// NewSessions creates a cookie-backed session manager signed with secret.
// An empty secret gets a random per-process key, so sessions do not survive a restart.
func NewSessions(secret string) *Sessions {
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, pending: map[string]time.Time{}}
}

// Lookup returns the session id carried by r without creating one.
func (s *Sessions) Lookup(r *http.Request) (string, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[sessionIDKey].(string)
	return id, ok && id != ""
}

// ID returns the session id for r, issuing a new one in the response cookie if needed.
func (s *Sessions) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	session, _ := s.store.Get(r, sessionName)
	if id, ok := session.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Values[sessionIDKey] = id
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// SetState remembers the OAuth state for the callback. It must be redeemed within [stateTTL].
func (s *Sessions) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	now := time.Now()
	s.mu.Lock()
	for st, expiry := range s.pending {
		if now.After(expiry) {
			delete(s.pending, st)
		}
	}
	s.pending[state] = now.Add(stateTTL)
	s.mu.Unlock()

	session, _ := s.store.Get(r, sessionName)
	session.Values[oauthStateKey] = state
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// PopState returns the pending OAuth state and clears it, so each state is accepted once.
// A state that was already redeemed or has expired yields "".
func (s *Sessions) PopState(w http.ResponseWriter, r *http.Request) string {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	state, _ := session.Values[oauthStateKey].(string)
	if state == "" {
		return ""
	}
	delete(session.Values, oauthStateKey)
	_ = session.Save(r, w)

	if !s.redeem(state) {
		return ""
	}
	return state
}

func (s *Sessions) redeem(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.pending[state]
	delete(s.pending, state)
	return ok && time.Now().Before(expiry)
}
