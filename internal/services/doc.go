// Package services implements the Spotify Web API client used by the queue pipeline.
//
// # Client
//
// [SpotifyClient] is stateless with respect to users: every API method takes
// an access token and sends it as a Bearer credential, so one client instance
// serves all users. OAuth endpoints (authorize URL, code exchange, refresh)
// go through [oauth2.Config]; the code exchange authenticates with HTTP Basic
// per RFC 6749, and the refresh grant carries client authentication as well.
//
// # Outbound call policy
//
// Every request runs under a bounded timeout and an [rate.Limiter] shared by
// the client. A transport failure or timeout maps to
// [shared.ErrVendorUnavailable]; a non-2xx response maps to the
// endpoint-specific sentinel ([shared.ErrSavedTracksFetch],
// [shared.ErrAudioFeaturesFetch], [shared.ErrPlaylistsFetch],
// [shared.ErrProfileFetch]). There are no retries: every failure is terminal
// for its enclosing operation.
//
// # Vendor conventions
//
// Saved tracks paginate at 50 items per page; audio features batch at 100 ids
// per request. Both limits are Spotify's, not ours.
package services
