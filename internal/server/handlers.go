package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/repositories"
	"github.com/pacelist/pacelist/internal/services"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/pacelist/pacelist/internal/tasks"
)

// writeJSON encodes v as the JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto its HTTP status and a JSON error payload.
//
// A missing session or credential is 401; everything else that reaches a
// handler (state mismatch, exchange failure, vendor failure, bad input) is
// the caller's 400.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, shared.ErrUnauthorized) {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// AuthHandler serves the login redirect and the OAuth callback.
type AuthHandler struct {
	flow     *tasks.AuthFlow
	sessions *SessionManager
	logger   *log.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(flow *tasks.AuthFlow, sessions *SessionManager, logger *log.Logger) *AuthHandler {
	return &AuthHandler{flow: flow, sessions: sessions, logger: logger}
}

// Routes returns the patterns this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback"}
}

// ServeHTTP dispatches to the login or callback handler by path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login mints a session when needed, binds a fresh state token to it, and
// redirects to the vendor authorization URL.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Ensure(w, r)
	if err != nil {
		h.logger.Error("session issue failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	url, err := h.flow.StartLogin(session.ID)
	if err != nil {
		h.logger.Error("login start failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// callback validates state, exchanges the code, and stores the credential.
// The session cookie is re-issued carrying the resolved user id.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Read(r)
	if !ok {
		// No session means no stored state, which reads as a mismatch.
		writeError(w, shared.ErrStateMismatch)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	credential, err := h.flow.HandleCallback(r.Context(), session.ID, code, state)
	if err != nil {
		h.logger.Warn("callback failed", "error", err)
		writeError(w, err)
		return
	}

	session.UserID = credential.UserID()
	if err := h.sessions.Issue(w, session); err != nil {
		h.logger.Error("session issue failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "authentication successful",
		"accessToken": credential.AccessToken(),
		"userId":      credential.UserID(),
	})
}

// QueueHandler serves the tempo-filtered queue pipeline.
type QueueHandler struct {
	pipeline *tasks.QueuePipeline
	sessions *SessionManager
	logger   *log.Logger
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(pipeline *tasks.QueuePipeline, sessions *SessionManager, logger *log.Logger) *QueueHandler {
	return &QueueHandler{pipeline: pipeline, sessions: sessions, logger: logger}
}

// Routes returns the patterns this handler serves.
func (h *QueueHandler) Routes() []string {
	return []string{"GET /myLikedSongs"}
}

// ServeHTTP runs the enrichment pipeline for the session's user.
//
// Optional query parameters tempoLow, tempoHigh, and budget override the
// configured defaults.
func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Read(r)
	if !ok || session.UserID == "" {
		writeError(w, fmt.Errorf("%w: login required", shared.ErrUnauthorized))
		return
	}

	opts, err := queueOptionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.pipeline.EnrichAndQueue(r.Context(), session.UserID, opts)
	if err != nil {
		h.logger.Warn("queue run failed", "user_id", session.UserID, "error", err)
		writeError(w, err)
		return
	}

	if report.NoSavedTracks {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No saved tracks found."})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// queueOptionsFromQuery parses the optional override parameters. Absent
// values are left zero so the pipeline applies its defaults.
func queueOptionsFromQuery(r *http.Request) (tasks.QueueOptions, error) {
	var opts tasks.QueueOptions

	params := map[string]*float64{
		"tempoLow":  &opts.TempoLow,
		"tempoHigh": &opts.TempoHigh,
		"budget":    &opts.BudgetMinutes,
	}

	for name, dst := range params {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 {
			return opts, fmt.Errorf("%w: %s=%q", shared.ErrInvalidInput, name, raw)
		}
		*dst = value
	}

	return opts, nil
}

// PlaylistsHandler serves the user's playlist listing.
type PlaylistsHandler struct {
	vendor   services.VendorClient
	store    tasks.CredentialStore
	sessions *SessionManager
	logger   *log.Logger
}

// NewPlaylistsHandler creates a PlaylistsHandler.
func NewPlaylistsHandler(vendor services.VendorClient, store tasks.CredentialStore, sessions *SessionManager, logger *log.Logger) *PlaylistsHandler {
	return &PlaylistsHandler{vendor: vendor, store: store, sessions: sessions, logger: logger}
}

// Routes returns the patterns this handler serves.
func (h *PlaylistsHandler) Routes() []string {
	return []string{"GET /playlists"}
}

// ServeHTTP lists the playlists owned or followed by the session's user.
func (h *PlaylistsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Read(r)
	if !ok || session.UserID == "" {
		writeError(w, fmt.Errorf("%w: login required", shared.ErrUnauthorized))
		return
	}

	credential, err := h.store.GetByUserID(session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			writeError(w, fmt.Errorf("%w: user %s", shared.ErrUnauthorized, session.UserID))
			return
		}
		writeError(w, err)
		return
	}

	playlists, err := h.vendor.UserPlaylists(r.Context(), credential.AccessToken())
	if err != nil {
		h.logger.Warn("playlist fetch failed", "user_id", session.UserID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlists": playlists,
		"count":     len(playlists),
	})
}

// HealthHandler serves the liveness probe.
type HealthHandler struct{}

// Routes returns the patterns this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

// ServeHTTP reports liveness.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
