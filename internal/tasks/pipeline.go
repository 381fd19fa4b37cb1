package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/models"
	"github.com/pacelist/pacelist/internal/repositories"
	"github.com/pacelist/pacelist/internal/services"
	"github.com/pacelist/pacelist/internal/shared"
)

// QueueOptions parameterizes one enrichment run.
type QueueOptions struct {
	TempoLow      float64 // inclusive lower bound, beats per minute
	TempoHigh     float64 // inclusive upper bound, beats per minute
	BudgetMinutes float64 // cumulative duration budget
}

// DefaultQueueOptions returns the service defaults: a 180-200 BPM band and a
// ten minute budget.
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{TempoLow: 180, TempoHigh: 200, BudgetMinutes: 10}
}

// QueueReport is the outcome of one enrichment run.
type QueueReport struct {
	NoSavedTracks bool   `json:"noSavedTracks"`           // the user's library is empty; a valid outcome, not an error
	SavedTracks   int    `json:"savedTracks"`             // ids paged from the library
	Filtered      int    `json:"filtered"`                // tracks inside the tempo band
	QueuedMinutes string `json:"queuedMinutes,omitempty"` // cumulative minutes queued, two decimal places
}

// QueuePipeline runs the tempo-filtered enrichment and queueing chain for one
// user per call.
type QueuePipeline struct {
	vendor   services.VendorClient
	store    CredentialStore
	auth     *AuthFlow
	logger   *log.Logger
	defaults QueueOptions
}

// NewQueuePipeline creates a pipeline with the given vendor client, token
// store, and auth flow (used to refresh expired tokens).
func NewQueuePipeline(vendor services.VendorClient, store CredentialStore, auth *AuthFlow, logger *log.Logger) *QueuePipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &QueuePipeline{
		vendor:   vendor,
		store:    store,
		auth:     auth,
		logger:   logger,
		defaults: DefaultQueueOptions(),
	}
}

// SetDefaults overrides the pipeline's default queue options.
func (p *QueuePipeline) SetDefaults(opts QueueOptions) {
	p.defaults = normalizeOptions(opts)
}

// EnrichAndQueue pages the user's saved tracks, fetches audio features in
// batches, filters to the tempo band, and queues the filtered tracks up to
// the duration budget.
//
// Fails with [shared.ErrUnauthorized] when no credential is stored for the
// user. An empty library short-circuits with NoSavedTracks set and no error.
func (p *QueuePipeline) EnrichAndQueue(ctx context.Context, userID string, opts QueueOptions) (*QueueReport, error) {
	opts = p.withDefaults(opts)

	credential, err := p.store.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", shared.ErrUnauthorized, userID)
		}
		return nil, err
	}

	token := credential.AccessToken()
	if credential.Expired(time.Now()) && credential.RefreshToken() != "" {
		refreshed, err := p.auth.Refresh(ctx, credential.RefreshToken())
		if err != nil {
			return nil, err
		}

		updated, err := p.store.Upsert(userID, refreshed.AccessToken, expirySeconds(refreshed), refreshed.RefreshToken)
		if err != nil {
			return nil, err
		}

		token = updated.AccessToken()
		p.logger.Info("refreshed expired token", "user_id", userID)
	}

	ids, err := p.vendor.AllSavedTrackIDs(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &QueueReport{NoSavedTracks: true}, nil
	}

	features, err := p.vendor.TemposForTracks(ctx, ids, token)
	if err != nil {
		return nil, err
	}

	filtered := FilterByTempo(features, opts.TempoLow, opts.TempoHigh)

	minutes, err := p.vendor.QueueSongs(ctx, filtered, token, opts.BudgetMinutes)
	if err != nil {
		return nil, err
	}

	return &QueueReport{
		SavedTracks:   len(ids),
		Filtered:      len(filtered),
		QueuedMinutes: shared.FormatMinutes(minutes),
	}, nil
}

// FilterByTempo returns the features whose tempo lies inside [low, high],
// boundaries included, preserving input order.
//
// Filtering is a plain sequence transformation applied after decoding, never
// coupled to the JSON layer.
func FilterByTempo(features []models.AudioFeature, low, high float64) []models.AudioFeature {
	filtered := make([]models.AudioFeature, 0, len(features))
	for _, feature := range features {
		if feature.Tempo >= low && feature.Tempo <= high {
			filtered = append(filtered, feature)
		}
	}
	return filtered
}

func (p *QueuePipeline) withDefaults(opts QueueOptions) QueueOptions {
	if opts.TempoLow == 0 && opts.TempoHigh == 0 {
		opts.TempoLow = p.defaults.TempoLow
		opts.TempoHigh = p.defaults.TempoHigh
	}
	if opts.BudgetMinutes == 0 {
		opts.BudgetMinutes = p.defaults.BudgetMinutes
	}
	return opts
}

func normalizeOptions(opts QueueOptions) QueueOptions {
	fallback := DefaultQueueOptions()
	if opts.TempoLow == 0 && opts.TempoHigh == 0 {
		opts.TempoLow = fallback.TempoLow
		opts.TempoHigh = fallback.TempoHigh
	}
	if opts.BudgetMinutes == 0 {
		opts.BudgetMinutes = fallback.BudgetMinutes
	}
	return opts
}
