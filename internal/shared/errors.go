package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication flow errors
	ErrStateMismatch          = fmt.Errorf("state mismatch")
	ErrTokenExchange          = fmt.Errorf("token exchange failed")
	ErrMalformedTokenResponse = fmt.Errorf("malformed token response")
	ErrUserResolution         = fmt.Errorf("failed to resolve user id")
	ErrRefreshFailed          = fmt.Errorf("token refresh failed")
	ErrUnauthorized           = fmt.Errorf("no stored credential")

	// Vendor API errors
	ErrProfileFetch       = fmt.Errorf("profile fetch failed")
	ErrSavedTracksFetch   = fmt.Errorf("saved tracks fetch failed")
	ErrAudioFeaturesFetch = fmt.Errorf("audio features fetch failed")
	ErrPlaylistsFetch     = fmt.Errorf("playlists fetch failed")
	ErrVendorUnavailable  = fmt.Errorf("vendor unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
