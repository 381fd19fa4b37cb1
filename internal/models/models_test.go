package models

import (
	"testing"
	"time"
)

func TestCredential(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		valid := NewCredential(1, "alice", "access", 3600, "refresh")
		if err := valid.Validate(); err != nil {
			t.Errorf("expected valid credential, got %v", err)
		}

		noUser := NewCredential(1, "", "access", 3600, "refresh")
		if err := noUser.Validate(); err == nil {
			t.Error("expected error for missing user id")
		}

		noToken := NewCredential(1, "alice", "", 3600, "refresh")
		if err := noToken.Validate(); err == nil {
			t.Error("expected error for missing access token")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()

		fresh := NewCredential(1, "alice", "access", 3600, "refresh")
		if fresh.Expired(now) {
			t.Error("credential written just now must not be expired")
		}

		stale := NewCredential(1, "alice", "access", 3600, "refresh")
		stale.SetUpdatedAt(now.Add(-2 * time.Hour))
		if !stale.Expired(now) {
			t.Error("credential older than its lifetime must be expired")
		}

		// Inside the skew window counts as expired so a refresh happens
		// before the token lapses mid-request.
		almostExpired := NewCredential(1, "alice", "access", 60, "refresh")
		almostExpired.SetUpdatedAt(now.Add(-45 * time.Second))
		if !almostExpired.Expired(now) {
			t.Error("credential inside the skew window must count as expired")
		}

		unknownLifetime := NewCredential(1, "alice", "access", 0, "refresh")
		unknownLifetime.SetUpdatedAt(now.Add(-24 * time.Hour))
		if unknownLifetime.Expired(now) {
			t.Error("credential without a lifetime never reads as expired")
		}
	})

	t.Run("Token Overwrite", func(t *testing.T) {
		credential := NewCredential(1, "alice", "access_1", 3600, "refresh_1")
		credential.SetID("row-id")

		credential.SetAccessToken("access_2")
		credential.SetExpiresIn(1800)
		credential.SetRefreshToken("refresh_2")

		if credential.ID() != "row-id" {
			t.Error("identity must survive token overwrites")
		}
		if credential.AccessToken() != "access_2" || credential.RefreshToken() != "refresh_2" {
			t.Error("expected latest token set")
		}
		if credential.ExpiresIn() != 1800 {
			t.Errorf("expected expires_in 1800, got %d", credential.ExpiresIn())
		}
	})
}
