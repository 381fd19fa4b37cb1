package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/pacelist/pacelist/internal/models"
	"github.com/pacelist/pacelist/internal/shared"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://localhost:3000/callback",
	}
}

func newTestClient(t *testing.T, baseURL string) *SpotifyClient {
	t.Helper()

	client, err := NewSpotifyClient(testCredentials(), shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	client.SetRequestsPerSecond(1000)

	return client
}

func TestNewSpotifyClient(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		client, err := NewSpotifyClient(testCredentials(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client == nil {
			t.Fatal("expected client to be created")
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		_, err := NewSpotifyClient(map[string]string{"client_secret": "s"}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Client Secret", func(t *testing.T) {
		_, err := NewSpotifyClient(map[string]string{"client_id": "c"}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Default Redirect URI", func(t *testing.T) {
		client, err := NewSpotifyClient(map[string]string{
			"client_id":     "c",
			"client_secret": "s",
		}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.config.RedirectURL == "" {
			t.Error("expected a default redirect URI")
		}
	})
}

func TestAuthCodeURL(t *testing.T) {
	client := newTestClient(t, "")

	authURL := client.AuthCodeURL("test_state")
	if !strings.Contains(authURL, "accounts.spotify.com") {
		t.Error("auth URL should contain Spotify accounts domain")
	}
	if !strings.Contains(authURL, "test_client_id") {
		t.Error("auth URL should contain client_id")
	}
	if !strings.Contains(authURL, "state=test_state") {
		t.Error("auth URL should carry the state token")
	}
}

func TestExchange(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, pass, ok := r.BasicAuth(); !ok || user != "test_client_id" || pass != "test_client_secret" {
				t.Error("expected HTTP Basic client authentication")
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"AT","token_type":"Bearer","refresh_token":"RT","expires_in":3600}`)
		}))
		defer server.Close()

		client := newTestClient(t, "")
		client.SetTokenURL(server.URL)

		token, err := client.Exchange(context.Background(), "auth_code")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "AT" || token.RefreshToken != "RT" {
			t.Errorf("unexpected token: %+v", token)
		}
	})

	t.Run("Vendor Rejects Code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		}))
		defer server.Close()

		client := newTestClient(t, "")
		client.SetTokenURL(server.URL)

		_, err := client.Exchange(context.Background(), "bad_code")
		if !errors.Is(err, shared.ErrTokenExchange) {
			t.Errorf("expected ErrTokenExchange, got %v", err)
		}
	})

	t.Run("Malformed Token Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"token_type":"Bearer"}`)
		}))
		defer server.Close()

		client := newTestClient(t, "")
		client.SetTokenURL(server.URL)

		_, err := client.Exchange(context.Background(), "auth_code")
		if !errors.Is(err, shared.ErrMalformedTokenResponse) {
			t.Errorf("expected ErrMalformedTokenResponse, got %v", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("Keeps Old Refresh Token When Omitted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, _, ok := r.BasicAuth(); !ok || user != "test_client_id" {
				t.Error("refresh grant must carry client authentication")
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"NEW","token_type":"Bearer","expires_in":3600}`)
		}))
		defer server.Close()

		client := newTestClient(t, "")
		client.SetTokenURL(server.URL)

		token, err := client.Refresh(context.Background(), "OLD_RT")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "NEW" {
			t.Errorf("expected refreshed access token, got %s", token.AccessToken)
		}
		if token.RefreshToken != "OLD_RT" {
			t.Errorf("expected old refresh token to be kept, got %s", token.RefreshToken)
		}
	})

	t.Run("Empty Refresh Token", func(t *testing.T) {
		client := newTestClient(t, "")

		_, err := client.Refresh(context.Background(), "")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Vendor Rejects Refresh", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
		}))
		defer server.Close()

		client := newTestClient(t, "")
		client.SetTokenURL(server.URL)

		_, err := client.Refresh(context.Background(), "RT")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})
}

// savedTracksServer serves /me/tracks pages from a fixed library of ids.
func savedTracksServer(t *testing.T, trackIDs []string, requestedOffsets *[]int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/me/tracks") {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit != 50 {
			t.Errorf("expected limit=50, got %d", limit)
		}
		*requestedOffsets = append(*requestedOffsets, offset)

		end := offset + limit
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		items := []map[string]any{}
		if offset < len(trackIDs) {
			for _, id := range trackIDs[offset:end] {
				items = append(items, map[string]any{"track": map[string]any{"id": id}})
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": items,
			"total": len(trackIDs),
		})
	}))
}

func TestAllSavedTrackIDs(t *testing.T) {
	t.Run("Pages Until Short Page", func(t *testing.T) {
		library := make([]string, 137)
		for i := range library {
			library[i] = fmt.Sprintf("track_%03d", i)
		}

		var offsets []int
		server := savedTracksServer(t, library, &offsets)
		defer server.Close()

		client := newTestClient(t, server.URL)

		ids, err := client.AllSavedTrackIDs(context.Background(), "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(ids) != 137 {
			t.Errorf("expected 137 ids, got %d", len(ids))
		}
		if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 50 || offsets[2] != 100 {
			t.Errorf("expected offsets [0 50 100], got %v", offsets)
		}
		if ids[0] != "track_000" || ids[136] != "track_136" {
			t.Error("expected library order to be preserved")
		}
	})

	t.Run("Exact Page Boundary Makes One Extra Request", func(t *testing.T) {
		library := make([]string, 100)
		for i := range library {
			library[i] = fmt.Sprintf("track_%03d", i)
		}

		var offsets []int
		server := savedTracksServer(t, library, &offsets)
		defer server.Close()

		client := newTestClient(t, server.URL)

		ids, err := client.AllSavedTrackIDs(context.Background(), "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(ids) != 100 {
			t.Errorf("expected 100 ids, got %d", len(ids))
		}
		if len(offsets) != 3 {
			t.Errorf("expected 3 requests (last one empty), got %d", len(offsets))
		}
	})

	t.Run("Skips Null Tracks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[{"track":{"id":"a"}},{"track":null},{"track":{"id":"b"}}],"total":3}`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		ids, err := client.AllSavedTrackIDs(context.Background(), "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Errorf("expected [a b], got %v", ids)
		}
	})

	t.Run("Non-2xx Fails Whole Call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		ids, err := client.AllSavedTrackIDs(context.Background(), "token")
		if !errors.Is(err, shared.ErrSavedTracksFetch) {
			t.Errorf("expected ErrSavedTracksFetch, got %v", err)
		}
		if ids != nil {
			t.Error("expected no partial result")
		}
	})
}

func TestTemposForTracks(t *testing.T) {
	t.Run("Batches Of One Hundred In Order", func(t *testing.T) {
		ids := make([]string, 250)
		for i := range ids {
			ids[i] = fmt.Sprintf("id_%03d", i)
		}

		var batchSizes []int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := strings.Split(r.URL.Query().Get("ids"), ",")
			batchSizes = append(batchSizes, len(requested))

			features := make([]map[string]any, len(requested))
			for i, id := range requested {
				features[i] = map[string]any{"id": id, "tempo": 120.0, "uri": "spotify:track:" + id, "duration_ms": 200000.0}
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"audio_features": features})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features, err := client.TemposForTracks(context.Background(), ids, "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(batchSizes) != 3 || batchSizes[0] != 100 || batchSizes[1] != 100 || batchSizes[2] != 50 {
			t.Errorf("expected batches [100 100 50], got %v", batchSizes)
		}
		if len(features) != 250 {
			t.Fatalf("expected 250 features, got %d", len(features))
		}
		if features[0].ID != "id_000" || features[249].ID != "id_249" {
			t.Error("expected feature order to match input order")
		}
	})

	t.Run("Skips Null Features", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"audio_features":[{"id":"a","tempo":190},null,{"id":"c","tempo":185}]}`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features, err := client.TemposForTracks(context.Background(), []string{"a", "b", "c"}, "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(features) != 2 || features[0].ID != "a" || features[1].ID != "c" {
			t.Errorf("expected features [a c], got %v", features)
		}
	})

	t.Run("Failing Chunk Reports Start Index", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}

			requested := strings.Split(r.URL.Query().Get("ids"), ",")
			features := make([]map[string]any, len(requested))
			for i, id := range requested {
				features[i] = map[string]any{"id": id, "tempo": 150.0}
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"audio_features": features})
		}))
		defer server.Close()

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = fmt.Sprintf("id_%03d", i)
		}

		client := newTestClient(t, server.URL)

		features, err := client.TemposForTracks(context.Background(), ids, "token")
		if features != nil {
			t.Error("expected no partial result")
		}

		var chunkErr *ChunkError
		if !errors.As(err, &chunkErr) {
			t.Fatalf("expected ChunkError, got %v", err)
		}
		if chunkErr.Start != 100 {
			t.Errorf("expected chunk start 100, got %d", chunkErr.Start)
		}
		if !errors.Is(err, shared.ErrAudioFeaturesFetch) {
			t.Error("ChunkError should unwrap to ErrAudioFeaturesFetch")
		}
	})
}

func TestQueueSongs(t *testing.T) {
	feature := func(id string, minutes float64) models.AudioFeature {
		return models.AudioFeature{
			ID:         id,
			Tempo:      190,
			URI:        "spotify:track:" + id,
			DurationMS: minutes * 60 * 1000,
		}
	}

	t.Run("Crossing Track Is Queued Then Loop Stops", func(t *testing.T) {
		var queued []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queued = append(queued, r.URL.Query().Get("uri"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features := []models.AudioFeature{feature("a", 4), feature("b", 4), feature("c", 4), feature("d", 4)}

		total, err := client.QueueSongs(context.Background(), features, "token", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(queued) != 3 {
			t.Errorf("expected 3 tracks queued, got %d", len(queued))
		}
		if shared.FormatMinutes(total) != "12.00" {
			t.Errorf("expected 12.00 minutes, got %s", shared.FormatMinutes(total))
		}
	})

	t.Run("Under Budget Queues Everything", func(t *testing.T) {
		count := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count++
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features := []models.AudioFeature{feature("a", 4), feature("b", 4)}

		total, err := client.QueueSongs(context.Background(), features, "token", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 tracks queued, got %d", count)
		}
		if shared.FormatMinutes(total) != "8.00" {
			t.Errorf("expected 8.00 minutes, got %s", shared.FormatMinutes(total))
		}
	})

	t.Run("Per-Track Failure Is Skipped", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features := []models.AudioFeature{feature("a", 3), feature("b", 3), feature("c", 3)}

		total, err := client.QueueSongs(context.Background(), features, "token", 60)
		if err != nil {
			t.Fatalf("per-track failure must not abort the loop, got %v", err)
		}
		if shared.FormatMinutes(total) != "6.00" {
			t.Errorf("expected 6.00 minutes from the two queued tracks, got %s", shared.FormatMinutes(total))
		}
	})

	t.Run("Unplayable Tracks Are Skipped", func(t *testing.T) {
		count := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count++
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		features := []models.AudioFeature{
			{ID: "no_uri", DurationMS: 200000},
			{ID: "no_duration", URI: "spotify:track:x"},
			feature("ok", 2),
		}

		total, err := client.QueueSongs(context.Background(), features, "token", 60)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 track queued, got %d", count)
		}
		if shared.FormatMinutes(total) != "2.00" {
			t.Errorf("expected 2.00 minutes, got %s", shared.FormatMinutes(total))
		}
	})
}

func TestUserPlaylists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/playlists" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"pl1","name":"Morning Run","tracks":{"total":12},"public":true}],"total":1}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	playlists, err := client.UserPlaylists(context.Background(), "token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(playlists))
	}
	if playlists[0].Name != "Morning Run" || playlists[0].TrackCount != 12 {
		t.Errorf("unexpected playlist: %+v", playlists[0])
	}
}

func TestProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token" {
				t.Error("expected Bearer token header")
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"alice","display_name":"Alice","email":"alice@example.com"}`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		profile, err := client.Profile(context.Background(), "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.ID != "alice" {
			t.Errorf("expected user id alice, got %s", profile.ID)
		}
	})

	t.Run("Expired Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		_, err := client.Profile(context.Background(), "token")
		if !errors.Is(err, shared.ErrProfileFetch) {
			t.Errorf("expected ErrProfileFetch, got %v", err)
		}
	})
}
