// Spotify Web API client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/models"
	"github.com/pacelist/pacelist/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// savedTracksPageSize is Spotify's maximum page size for GET /me/tracks.
	savedTracksPageSize = 50
	// audioFeaturesBatchSize is Spotify's maximum ids-per-request for GET /audio-features.
	audioFeaturesBatchSize = 100

	defaultTimeout           = 10 * time.Second
	defaultRequestsPerSecond = 8
)

// ChunkError reports which audio-features batch failed.
//
// Start is the index into the input id slice where the failing chunk begins.
type ChunkError struct {
	Start  int
	Status int
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%v: chunk starting at %d: status %d", shared.ErrAudioFeaturesFetch, e.Start, e.Status)
}

func (e *ChunkError) Unwrap() error { return shared.ErrAudioFeaturesFetch }

// spotifyArtist represents an artist reference in track payloads.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// spotifyTrack represents a track object within a saved-tracks page.
//
// Spotify returns null track entries for items removed from the catalog;
// those decode to nil pointers and are skipped.
type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
}

type savedTrackItem struct {
	AddedAt string        `json:"added_at"`
	Track   *spotifyTrack `json:"track"`
}

// savedTracksPage represents a paginated response of saved tracks.
type savedTracksPage struct {
	Items  []savedTrackItem `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Next   *string          `json:"next"`
}

// audioFeaturesResponse wraps GET /audio-features results. Entries come back
// in the same order as the requested ids; unknown ids decode as null.
type audioFeaturesResponse struct {
	AudioFeatures []*models.AudioFeature `json:"audio_features"`
}

type playlistOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// spotifyPlaylist represents a playlist object in listing responses.
type spotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       playlistOwner     `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
}

// playlistsPage represents a paginated response of playlists.
type playlistsPage struct {
	Items  []spotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyClient issues authenticated calls against the Spotify Web API and
// accounts service. Implements [VendorClient] and [OAuthProvider].
type SpotifyClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	baseURL    string
}

// NewSpotifyClient creates a client from the given OAuth2 credentials.
//
// Expects "client_id" and "client_secret"; "redirect_uri" and "scope" fall
// back to defaults suitable for local development.
func NewSpotifyClient(credentials map[string]string, logger *log.Logger) (*SpotifyClient, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	scope := credentials["scope"]
	if scope == "" {
		scope = "user-read-private user-read-email user-library-read user-modify-playback-state playlist-read-private"
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
			// Spotify requires HTTP Basic client authentication on the token
			// endpoint, for the refresh grant included.
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyClient{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
		logger:     logger,
		baseURL:    spotifyBaseURL,
	}, nil
}

// SetBaseURL overrides the Web API base URL. Used by tests.
func (s *SpotifyClient) SetBaseURL(u string) {
	s.baseURL = strings.TrimRight(u, "/")
}

// SetTokenURL overrides the accounts token endpoint. Used by tests.
func (s *SpotifyClient) SetTokenURL(u string) {
	s.config.Endpoint.TokenURL = u
}

// SetTimeout bounds every outbound call.
func (s *SpotifyClient) SetTimeout(d time.Duration) {
	s.httpClient.Timeout = d
}

// SetRequestsPerSecond reconfigures the outbound rate limiter.
func (s *SpotifyClient) SetRequestsPerSecond(rps float64) {
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

// AuthCodeURL builds the authorization redirect URL carrying response_type,
// client_id, scope, redirect_uri, and state, all query-escaped.
func (s *SpotifyClient) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token set, authenticating with
// HTTP Basic using the client credentials.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: status %d", shared.ErrTokenExchange, retrieveErr.Response.StatusCode)
		}
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, fmt.Errorf("%w: %v", shared.ErrMalformedTokenResponse, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrVendorUnavailable, err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", shared.ErrMalformedTokenResponse)
	}

	return token, nil
}

// Refresh trades a refresh token for a fresh token set. Unlike the refresh
// grant some clients send unauthenticated, this one carries client
// authentication, which Spotify's token endpoint requires.
func (s *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", shared.ErrRefreshFailed)
	}

	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: status %d", shared.ErrRefreshFailed, retrieveErr.Response.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrVendorUnavailable, err)
	}

	// Spotify may omit the refresh token on rotation; callers keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return token, nil
}

// get performs a rate-limited, Bearer-authenticated GET and decodes the JSON
// response into result. Callers classify non-2xx status codes themselves.
func (s *SpotifyClient) get(ctx context.Context, endpoint, token string, result any) (int, error) {
	return s.do(ctx, http.MethodGet, endpoint, token, result)
}

func (s *SpotifyClient) do(ctx context.Context, method, endpoint, token string, result any) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrVendorUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// Profile retrieves the profile of the user the token belongs to.
func (s *SpotifyClient) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	var user models.UserProfile
	status, err := s.get(ctx, "/me", token, &user)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrProfileFetch, status)
	}
	return &user, nil
}

// AllSavedTrackIDs pages through GET /me/tracks at the vendor's maximum page
// size and returns every saved track id in library order.
//
// Pagination stops when a page returns fewer items than the page size. Null
// track entries are skipped. Any non-2xx page fails the whole call; no
// partial list is returned.
func (s *SpotifyClient) AllSavedTrackIDs(ctx context.Context, token string) ([]string, error) {
	var ids []string

	for offset := 0; ; offset += savedTracksPageSize {
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", savedTracksPageSize, offset)

		var page savedTracksPage
		status, err := s.get(ctx, endpoint, token, &page)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: status %d at offset %d", shared.ErrSavedTracksFetch, status, offset)
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			ids = append(ids, item.Track.ID)
		}

		if len(page.Items) < savedTracksPageSize {
			break
		}
	}

	return ids, nil
}

// TemposForTracks fetches audio features for the given ids in batches of at
// most 100, concatenating results in chunk order so output order matches
// input order.
//
// A failing chunk aborts the call with a [ChunkError] carrying the chunk's
// start index; no partial results are returned.
func (s *SpotifyClient) TemposForTracks(ctx context.Context, trackIDs []string, token string) ([]models.AudioFeature, error) {
	features := make([]models.AudioFeature, 0, len(trackIDs))

	for start := 0; start < len(trackIDs); start += audioFeaturesBatchSize {
		end := start + audioFeaturesBatchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		ids := strings.Join(trackIDs[start:end], ",")
		endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(ids))

		var response audioFeaturesResponse
		status, err := s.get(ctx, endpoint, token, &response)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, &ChunkError{Start: start, Status: status}
		}

		for _, feature := range response.AudioFeatures {
			if feature == nil {
				continue
			}
			features = append(features, *feature)
		}
	}

	return features, nil
}

// UserPlaylists retrieves the user's playlists from GET /me/playlists.
func (s *SpotifyClient) UserPlaylists(ctx context.Context, token string) ([]models.Playlist, error) {
	var page playlistsPage
	status, err := s.get(ctx, "/me/playlists", token, &page)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrPlaylistsFetch, status)
	}

	playlists := make([]models.Playlist, 0, len(page.Items))
	for _, item := range page.Items {
		playlists = append(playlists, models.Playlist{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			TrackCount:  item.Tracks.Total,
			Public:      item.Public,
		})
	}

	return playlists, nil
}

// Playlist retrieves a single playlist by id.
func (s *SpotifyClient) Playlist(ctx context.Context, playlistID, token string) (*models.Playlist, error) {
	var item spotifyPlaylist
	status, err := s.get(ctx, fmt.Sprintf("/playlists/%s", playlistID), token, &item)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrPlaylistsFetch, status)
	}

	return &models.Playlist{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		TrackCount:  item.Tracks.Total,
		Public:      item.Public,
	}, nil
}

// QueueSongs adds each feature's track to the user's playback queue in input
// order, accumulating minutes of audio, and stops once the running total
// exceeds budgetMinutes. The track that crosses the threshold is queued
// before stopping.
//
// A per-track failure, including a missing playable URI or duration, is
// logged and skipped; it never aborts the loop. Returns the cumulative
// minutes queued.
func (s *SpotifyClient) QueueSongs(ctx context.Context, features []models.AudioFeature, token string, budgetMinutes float64) (float64, error) {
	total := 0.0

	for _, feature := range features {
		if feature.URI == "" || feature.DurationMS <= 0 {
			s.logger.Warn("skipping unplayable track", "id", feature.ID)
			continue
		}

		endpoint := fmt.Sprintf("/me/player/queue?uri=%s", url.QueryEscape(feature.URI))
		status, err := s.do(ctx, http.MethodPost, endpoint, token, nil)
		if err != nil || status < 200 || status >= 300 {
			s.logger.Warn("failed to queue track", "id", feature.ID, "status", status, "error", err)
			continue
		}

		total += feature.DurationMS / 1000 / 60
		if total > budgetMinutes {
			break
		}
	}

	return total, nil
}
