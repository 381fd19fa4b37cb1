package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pacelist/pacelist/internal/shared"
)

// SessionCookieName is the name of the signed session cookie.
const SessionCookieName = "pacelist_session"

// sessionTTL bounds how long an issued session cookie stays valid. Matches
// the login flow's expectations: a callback or queue request arriving after
// the TTL starts a fresh session.
const sessionTTL = 30 * time.Minute

// Session identifies a browser session and, once login completes, the Spotify
// user behind it.
type Session struct {
	ID     string // session id, minted on first contact
	UserID string // Spotify user id, empty until the callback succeeds
}

// sessionClaims is the JWT payload carried by the session cookie.
type sessionClaims struct {
	SID    string `json:"sid"`
	UserID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session cookies with HMAC-SHA256.
type SessionManager struct {
	secret []byte
}

// NewSessionManager creates a SessionManager with the given signing secret.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{secret: []byte(secret)}
}

// Issue signs a session into a cookie on the response.
func (m *SessionManager) Issue(w http.ResponseWriter, session Session) error {
	claims := sessionClaims{
		SID:    session.ID,
		UserID: session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("signing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read parses and verifies the session cookie on the request.
//
// Returns false when the cookie is absent, expired, or fails verification.
func (m *SessionManager) Read(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}, false
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.SID == "" {
		return Session{}, false
	}

	return Session{ID: claims.SID, UserID: claims.UserID}, true
}

// Ensure returns the request's session, minting and issuing a fresh one when
// no valid cookie is present.
func (m *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (Session, error) {
	if session, ok := m.Read(r); ok {
		return session, nil
	}

	session := Session{ID: shared.GenerateID()}
	if err := m.Issue(w, session); err != nil {
		return Session{}, err
	}
	return session, nil
}
