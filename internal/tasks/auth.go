package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/models"
	"github.com/pacelist/pacelist/internal/services"
	"github.com/pacelist/pacelist/internal/shared"
	"golang.org/x/oauth2"
)

// CredentialStore is the Token Store contract the coordinators depend on.
// Satisfied by repositories.CredentialRepository.
type CredentialStore interface {
	Upsert(userID, accessToken string, expiresIn int, refreshToken string) (*models.Credential, error)
	GetByUserID(userID string) (*models.Credential, error)
}

// Authenticator combines the OAuth operations with the profile lookup needed
// to resolve the vendor user id. Satisfied by services.SpotifyClient.
type Authenticator interface {
	services.OAuthProvider
	Profile(ctx context.Context, token string) (*models.UserProfile, error)
}

// StateStore holds in-flight OAuth state tokens keyed by session id.
//
// Each state is single-use: Consume removes the stored value whether or not
// the subsequent comparison succeeds, preventing replay.
type StateStore struct {
	mu     sync.Mutex
	states map[string]string
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]string)}
}

// Put binds a state token to a session id, replacing any in-flight attempt.
func (s *StateStore) Put(sid, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sid] = state
}

// Consume removes and returns the state bound to a session id.
func (s *StateStore) Consume(sid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[sid]
	delete(s.states, sid)
	return state, ok
}

// AuthFlow coordinates the OAuth2 authorization-code flow against the vendor
// and persists the resulting credential.
type AuthFlow struct {
	auth   Authenticator
	store  CredentialStore
	states *StateStore
	logger *log.Logger
}

// NewAuthFlow creates an AuthFlow with the given vendor authenticator and token store.
func NewAuthFlow(auth Authenticator, store CredentialStore, logger *log.Logger) *AuthFlow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthFlow{
		auth:   auth,
		store:  store,
		states: NewStateStore(),
		logger: logger,
	}
}

// StartLogin generates a CSRF state token, binds it to the caller's session,
// and returns the vendor authorization URL to redirect to.
func (f *AuthFlow) StartLogin(sid string) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	f.states.Put(sid, state)
	return f.auth.AuthCodeURL(state), nil
}

// HandleCallback validates the returned state, exchanges the authorization
// code for tokens, resolves the vendor user id, and upserts the credential.
//
// The stored state is consumed regardless of outcome. An empty or mismatched
// state fails with [shared.ErrStateMismatch].
func (f *AuthFlow) HandleCallback(ctx context.Context, sid, code, returnedState string) (*models.Credential, error) {
	stored, ok := f.states.Consume(sid)
	if returnedState == "" || !ok || returnedState != stored {
		return nil, shared.ErrStateMismatch
	}

	token, err := f.auth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh_token", shared.ErrMalformedTokenResponse)
	}

	profile, err := f.auth.Profile(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUserResolution, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", shared.ErrUserResolution)
	}

	credential, err := f.store.Upsert(profile.ID, token.AccessToken, expirySeconds(token), token.RefreshToken)
	if err != nil {
		return nil, err
	}

	f.logger.Info("credential stored", "user_id", profile.ID)
	return credential, nil
}

// Refresh trades a refresh token for a fresh token set.
func (f *AuthFlow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f.auth.Refresh(ctx, refreshToken)
}

// expirySeconds recovers the token endpoint's expires_in value. The raw field
// is preferred; the computed expiry is the fallback.
func expirySeconds(token *oauth2.Token) int {
	if raw, ok := token.Extra("expires_in").(float64); ok && raw > 0 {
		return int(raw)
	}
	if !token.Expiry.IsZero() {
		if secs := int(time.Until(token.Expiry).Seconds()); secs > 0 {
			return secs
		}
	}
	return 0
}
