package services

import (
	"context"

	"github.com/pacelist/pacelist/internal/models"
	"golang.org/x/oauth2"
)

// VendorClient defines the downstream Spotify operations the pipeline and
// HTTP handlers depend on. [SpotifyClient] is the production implementation;
// tests substitute doubles.
type VendorClient interface {
	// Profile retrieves the profile of the user the token belongs to.
	Profile(ctx context.Context, token string) (*models.UserProfile, error)

	// AllSavedTrackIDs pages through the user's saved tracks and returns every track id.
	AllSavedTrackIDs(ctx context.Context, token string) ([]string, error)

	// TemposForTracks fetches audio features for the given track ids, batched per vendor limits.
	TemposForTracks(ctx context.Context, trackIDs []string, token string) ([]models.AudioFeature, error)

	// UserPlaylists retrieves the user's playlists.
	UserPlaylists(ctx context.Context, token string) ([]models.Playlist, error)

	// QueueSongs adds tracks to the user's playback queue up to a duration budget
	// and returns the cumulative minutes queued.
	QueueSongs(ctx context.Context, features []models.AudioFeature, token string, budgetMinutes float64) (float64, error)
}

// OAuthProvider defines the authorization-code flow operations the auth
// coordinator depends on.
type OAuthProvider interface {
	// AuthCodeURL builds the vendor authorization URL carrying the CSRF state token.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token set.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh trades a refresh token for a fresh token set, authenticating as the client.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}
