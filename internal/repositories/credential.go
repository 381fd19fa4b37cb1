package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pacelist/pacelist/internal/models"
	"github.com/pacelist/pacelist/internal/shared"
)

// CredentialRepository persists [models.Credential] rows keyed by Spotify user id.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert looks up the credential for userID and overwrites its token fields if
// present, or inserts a new row with a fresh id, sequence, and created_at.
//
// Repeated upserts with identical arguments leave an equivalent row; the row
// id never changes once assigned.
func (r *CredentialRepository) Upsert(userID, accessToken string, expiresIn int, refreshToken string) (*models.Credential, error) {
	existing, err := r.GetByUserID(userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()

	if existing != nil {
		existing.SetAccessToken(accessToken)
		existing.SetExpiresIn(expiresIn)
		existing.SetRefreshToken(refreshToken)
		existing.SetUpdatedAt(now)

		if err := existing.Validate(); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		query := `
			UPDATE credentials
			SET access_token = ?, expires_in = ?, refresh_token = ?, updated_at = ?
			WHERE user_id = ?
		`
		if _, err := r.db.Exec(query, accessToken, expiresIn, refreshToken, now, userID); err != nil {
			return nil, fmt.Errorf("failed to update credential: %w", err)
		}

		return existing, nil
	}

	sequence, err := NextSequence(r.db, "credentials")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	credential := models.NewCredential(sequence, userID, accessToken, expiresIn, refreshToken)
	credential.SetID(shared.GenerateID())

	if err := credential.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO credentials (id, sequence, user_id, access_token, expires_in, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, credential.ID(), sequence, userID, accessToken, expiresIn, refreshToken, credential.CreatedAt(), credential.UpdatedAt())
	if err != nil {
		return nil, fmt.Errorf("failed to insert credential: %w", err)
	}

	return credential, nil
}

// GetByUserID retrieves the credential for a Spotify user id.
//
// Returns [ErrNotFound] when no credential is stored for the user.
func (r *CredentialRepository) GetByUserID(userID string) (*models.Credential, error) {
	query := `
		SELECT id, sequence, user_id, access_token, expires_in, refresh_token, created_at, updated_at
		FROM credentials
		WHERE user_id = ?
	`

	return r.scanRow(r.db.QueryRow(query, userID))
}

// Get retrieves a credential by row id.
func (r *CredentialRepository) Get(id string) (*models.Credential, error) {
	query := `
		SELECT id, sequence, user_id, access_token, expires_in, refresh_token, created_at, updated_at
		FROM credentials
		WHERE id = ?
	`

	return r.scanRow(r.db.QueryRow(query, id))
}

// AccessTokenByUserID returns the stored access token for a user, or
// [ErrNotFound] when the user has never completed a login.
func (r *CredentialRepository) AccessTokenByUserID(userID string) (string, error) {
	credential, err := r.GetByUserID(userID)
	if err != nil {
		return "", err
	}
	return credential.AccessToken(), nil
}

// List retrieves all stored credentials ordered by sequence.
func (r *CredentialRepository) List() ([]*models.Credential, error) {
	query := `
		SELECT id, sequence, user_id, access_token, expires_in, refresh_token, created_at, updated_at
		FROM credentials
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		credential, err := r.scanRows(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return credentials, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *CredentialRepository) scanRow(row *sql.Row) (*models.Credential, error) {
	credential, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return credential, nil
}

func (r *CredentialRepository) scanRows(rows *sql.Rows) (*models.Credential, error) {
	credential, err := scanCredential(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}
	return credential, nil
}

func scanCredential(row scannable) (*models.Credential, error) {
	var (
		id           string
		sequence     int
		userID       string
		accessToken  string
		expiresIn    int
		refreshToken string
		createdAt    time.Time
		updatedAt    time.Time
	)

	if err := row.Scan(&id, &sequence, &userID, &accessToken, &expiresIn, &refreshToken, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	credential := models.NewCredential(sequence, userID, accessToken, expiresIn, refreshToken)
	credential.SetID(id)
	credential.SetCreatedAt(createdAt)
	credential.SetUpdatedAt(updatedAt)

	return credential, nil
}
