package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// sessionCookie names the browser cookie carrying the signed session ID.
const sessionCookie = "timely_session"

// SessionManager tracks browser sessions and the Google tokens exchanged
// for them. Session IDs are random and HMAC-signed in the cookie so a
// client cannot mint one; tokens live only in memory.
type SessionManager struct {
	secret []byte

	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

// NewSessionManager creates a session manager signing cookies with secret.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		tokens: make(map[string]*oauth2.Token),
	}
}

func (m *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// cookieValue encodes a session ID with its signature.
func (m *SessionManager) cookieValue(id string) string {
	return id + "." + m.sign(id)
}

// parseCookieValue verifies a cookie value and returns the session ID.
func (m *SessionManager) parseCookieValue(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}

// SessionID resolves the request's session ID, creating a fresh session
// and setting the cookie when the request has none or a tampered one.
func (m *SessionManager) SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, ok := m.parseCookieValue(c.Value); ok {
			return id
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    m.cookieValue(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Token returns the Google token for a session, if one was exchanged.
func (m *SessionManager) Token(sessionID string) (*oauth2.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[sessionID]
	return t, ok
}

// SetToken stores the Google token for a session.
func (m *SessionManager) SetToken(sessionID string, token *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[sessionID] = token
}

// StateFor returns the OAuth state parameter for a session. The signed
// form is used so the callback can verify it was minted here.
func (m *SessionManager) StateFor(sessionID string) string {
	return m.cookieValue(sessionID)
}

// SessionFromState verifies an OAuth state parameter and returns the
// session ID it was minted for.
func (m *SessionManager) SessionFromState(state string) (string, bool) {
	return m.parseCookieValue(state)
}
