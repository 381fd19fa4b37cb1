// Package server provides HTTP routing, middleware, sessions, and the
// service's endpoint handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [BasicRouter] wraps [http.ServeMux] and
// relies on its method-qualified patterns ("GET /login").
//
// # Sessions
//
// [SessionManager] issues a signed cookie (HS256 JWT) carrying a session id
// and, after a completed login, the Spotify user id. The OAuth state token
// itself never travels in the cookie: it stays server-side in the auth flow's
// single-use state store, keyed by session id.
//
// # Endpoints
//
//	GET /login        → 302 redirect to the Spotify authorization URL
//	GET /callback     → completes the code exchange; 200 with token info or 400
//	GET /myLikedSongs → runs the tempo-filtered queue pipeline; 200, 400, or 401
//	GET /playlists    → lists the user's playlists; 200, 400, or 401
//	GET /healthz      → liveness probe
//
// Error mapping: vendor and exchange failures surface as 400 with a
// descriptive JSON payload, a missing session or credential as 401, and an
// empty-but-successful result as 200 with a message. Handlers implement the
// [Handler] interface (ServeHTTP plus Routes) so each endpoint encapsulates
// its own route definitions.
package server
