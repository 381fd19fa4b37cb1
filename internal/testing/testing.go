// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/pacelist/pacelist/internal/models"
	"golang.org/x/oauth2"
)

// MockVendor is a configurable test double for [services.VendorClient] and
// the auth flow's Authenticator. Unset function fields return zero values.
type MockVendor struct {
	ProfileFn          func(ctx context.Context, token string) (*models.UserProfile, error)
	AllSavedTrackIDsFn func(ctx context.Context, token string) ([]string, error)
	TemposForTracksFn  func(ctx context.Context, trackIDs []string, token string) ([]models.AudioFeature, error)
	UserPlaylistsFn    func(ctx context.Context, token string) ([]models.Playlist, error)
	QueueSongsFn       func(ctx context.Context, features []models.AudioFeature, token string, budgetMinutes float64) (float64, error)
	AuthCodeURLFn      func(state string) string
	ExchangeFn         func(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshFn          func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

func (m *MockVendor) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	if m.ProfileFn != nil {
		return m.ProfileFn(ctx, token)
	}
	return &models.UserProfile{}, nil
}

func (m *MockVendor) AllSavedTrackIDs(ctx context.Context, token string) ([]string, error) {
	if m.AllSavedTrackIDsFn != nil {
		return m.AllSavedTrackIDsFn(ctx, token)
	}
	return nil, nil
}

func (m *MockVendor) TemposForTracks(ctx context.Context, trackIDs []string, token string) ([]models.AudioFeature, error) {
	if m.TemposForTracksFn != nil {
		return m.TemposForTracksFn(ctx, trackIDs, token)
	}
	return nil, nil
}

func (m *MockVendor) UserPlaylists(ctx context.Context, token string) ([]models.Playlist, error) {
	if m.UserPlaylistsFn != nil {
		return m.UserPlaylistsFn(ctx, token)
	}
	return nil, nil
}

func (m *MockVendor) QueueSongs(ctx context.Context, features []models.AudioFeature, token string, budgetMinutes float64) (float64, error) {
	if m.QueueSongsFn != nil {
		return m.QueueSongsFn(ctx, features, token, budgetMinutes)
	}
	return 0, nil
}

func (m *MockVendor) AuthCodeURL(state string) string {
	if m.AuthCodeURLFn != nil {
		return m.AuthCodeURLFn(state)
	}
	return "https://accounts.spotify.test/authorize?state=" + state
}

func (m *MockVendor) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, code)
	}
	return &oauth2.Token{AccessToken: "mock_access", RefreshToken: "mock_refresh"}, nil
}

func (m *MockVendor) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return &oauth2.Token{AccessToken: "mock_refreshed", RefreshToken: refreshToken}, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
