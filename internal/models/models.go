package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the pacelist service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error     // Create inserts a new model into the database
	Get(id string) (T, error) // Get retrieves a model by its ID
	Update(model T) error     // Update modifies an existing model in the database
	Delete(id string) error   // Delete removes a model from the database by its ID
}

// Track represents a song from the user's saved-tracks library.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// AudioFeature holds Spotify's per-track analysis used for tempo filtering and queueing.
//
// URI is the playable reference passed to the queue endpoint; DurationMS feeds
// the cumulative duration budget.
type AudioFeature struct {
	ID         string  `json:"id"`
	Tempo      float64 `json:"tempo"`
	URI        string  `json:"uri"`
	DurationMS float64 `json:"duration_ms"`
}

// Playlist represents basic playlist metadata from the vendor.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TrackCount  int    `json:"trackCount"`
	Public      bool   `json:"public"`
}

// UserProfile represents the authenticated user's Spotify profile.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Credential is the stored OAuth token set for one Spotify user.
//
// UserID is the sole natural key: at most one Credential exists per Spotify
// user, and token fields are overwritten in place on every subsequent login
// or refresh. Rows are never deleted by this system.
type Credential struct {
	id           string
	sequence     int
	userID       string
	accessToken  string
	expiresIn    int
	refreshToken string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewCredential creates a Credential for the given Spotify user and token set.
func NewCredential(sequence int, userID, accessToken string, expiresIn int, refreshToken string) *Credential {
	now := time.Now()
	return &Credential{
		sequence:     sequence,
		userID:       userID,
		accessToken:  accessToken,
		expiresIn:    expiresIn,
		refreshToken: refreshToken,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (c *Credential) ID() string           { return c.id }
func (c *Credential) Sequence() int        { return c.sequence }
func (c *Credential) UserID() string       { return c.userID }
func (c *Credential) AccessToken() string  { return c.accessToken }
func (c *Credential) ExpiresIn() int       { return c.expiresIn }
func (c *Credential) RefreshToken() string { return c.refreshToken }
func (c *Credential) CreatedAt() time.Time { return c.createdAt }
func (c *Credential) UpdatedAt() time.Time { return c.updatedAt }

func (c *Credential) SetID(id string)            { c.id = id }
func (c *Credential) SetUpdatedAt(t time.Time)   { c.updatedAt = t }
func (c *Credential) SetCreatedAt(t time.Time)   { c.createdAt = t }
func (c *Credential) SetAccessToken(tok string)  { c.accessToken = tok }
func (c *Credential) SetExpiresIn(secs int)      { c.expiresIn = secs }
func (c *Credential) SetRefreshToken(tok string) { c.refreshToken = tok }

// Expired reports whether the access token's lifetime has elapsed relative to
// the last token write. A small skew window avoids using a token that is about
// to lapse mid-request.
func (c *Credential) Expired(now time.Time) bool {
	if c.expiresIn <= 0 {
		return false
	}
	expiry := c.updatedAt.Add(time.Duration(c.expiresIn) * time.Second)
	return !now.Add(30 * time.Second).Before(expiry)
}

// Validate checks that the credential has a user ID and an access token.
func (c *Credential) Validate() error {
	if c.userID == "" {
		return fmt.Errorf("credential user_id is required")
	}
	if c.accessToken == "" {
		return fmt.Errorf("credential access_token is required")
	}
	return nil
}
