package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/pacelist/pacelist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestCredentialRepository(t *testing.T) {
	t.Run("Upsert Inserts New Credential", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		credential, err := repo.Upsert("alice", "access_1", 3600, "refresh_1")
		if err != nil {
			t.Fatalf("failed to upsert credential: %v", err)
		}

		if credential.ID() == "" {
			t.Error("credential ID should be set after insert")
		}
		if credential.UserID() != "alice" {
			t.Errorf("expected user_id alice, got %s", credential.UserID())
		}
		if credential.AccessToken() != "access_1" {
			t.Errorf("expected access_1, got %s", credential.AccessToken())
		}
	})

	t.Run("Second Login Overwrites Same Row", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		first, err := repo.Upsert("alice", "access_1", 3600, "refresh_1")
		if err != nil {
			t.Fatalf("failed to upsert credential: %v", err)
		}

		second, err := repo.Upsert("alice", "access_2", 1800, "refresh_2")
		if err != nil {
			t.Fatalf("failed to upsert credential again: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("expected row id to be stable, got %s then %s", first.ID(), second.ID())
		}

		stored, err := repo.GetByUserID("alice")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if stored.AccessToken() != "access_2" || stored.RefreshToken() != "refresh_2" {
			t.Errorf("expected latest token set, got %s / %s", stored.AccessToken(), stored.RefreshToken())
		}
		if stored.ExpiresIn() != 1800 {
			t.Errorf("expected expires_in 1800, got %d", stored.ExpiresIn())
		}

		all, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list credentials: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected exactly one row for alice, got %d", len(all))
		}
	})

	t.Run("Upsert Is Idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		if _, err := repo.Upsert("alice", "access_1", 3600, "refresh_1"); err != nil {
			t.Fatalf("failed to upsert credential: %v", err)
		}
		if _, err := repo.Upsert("alice", "access_1", 3600, "refresh_1"); err != nil {
			t.Fatalf("repeated upsert should succeed: %v", err)
		}

		stored, err := repo.GetByUserID("alice")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if stored.AccessToken() != "access_1" {
			t.Errorf("expected access_1, got %s", stored.AccessToken())
		}
	})

	t.Run("Separate Users Get Separate Rows", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		if _, err := repo.Upsert("alice", "access_a", 3600, "refresh_a"); err != nil {
			t.Fatalf("failed to upsert alice: %v", err)
		}
		if _, err := repo.Upsert("bob", "access_b", 3600, "refresh_b"); err != nil {
			t.Fatalf("failed to upsert bob: %v", err)
		}

		all, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list credentials: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(all))
		}
		if all[0].Sequence() >= all[1].Sequence() {
			t.Error("expected list ordered by sequence")
		}
	})

	t.Run("GetByUserID Unknown User", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		_, err := repo.GetByUserID("nobody")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AccessTokenByUserID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		if _, err := repo.Upsert("alice", "access_1", 3600, "refresh_1"); err != nil {
			t.Fatalf("failed to upsert credential: %v", err)
		}

		token, err := repo.AccessTokenByUserID("alice")
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if token != "access_1" {
			t.Errorf("expected access_1, got %s", token)
		}

		if _, err := repo.AccessTokenByUserID("nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Get By Row ID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)

		created, err := repo.Upsert("alice", "access_1", 3600, "refresh_1")
		if err != nil {
			t.Fatalf("failed to upsert credential: %v", err)
		}

		retrieved, err := repo.Get(created.ID())
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if retrieved.UserID() != "alice" {
			t.Errorf("expected alice, got %s", retrieved.UserID())
		}
		if retrieved.CreatedAt().After(time.Now()) {
			t.Error("created_at should not be in the future")
		}
	})
}
