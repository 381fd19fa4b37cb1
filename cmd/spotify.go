package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pacelist/pacelist/internal/repositories"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/pacelist/pacelist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpotifyPlaylists lists the playlists of a user with a stored credential.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	userID := cmd.String("user")

	vendor, err := r.vendorClient(config)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewCredentialRepository(db)
	token, err := repo.AccessTokenByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: no stored credential for user %s, run 'pacelist serve' and log in first", shared.ErrUnauthorized, userID)
		}
		return err
	}

	playlists, err := vendor.UserPlaylists(ctx, token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Playlists for %s (%d):\n", userID, len(playlists))
	for _, pl := range playlists {
		r.writePlain("  %s  %s (%d tracks)\n", pl.ID, pl.Name, pl.TrackCount)
	}

	return nil
}

// SpotifyQueue runs the tempo-filtered queue pipeline for a stored user.
func (r *Runner) SpotifyQueue(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	userID := cmd.String("user")

	vendor, err := r.vendorClient(config)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	_, _, pipeline, err := r.buildPipeline(db, config, vendor)
	if err != nil {
		return err
	}

	opts := tasks.QueueOptions{
		TempoLow:      cmd.Float("tempo-low"),
		TempoHigh:     cmd.Float("tempo-high"),
		BudgetMinutes: cmd.Float("budget"),
	}

	report, err := pipeline.EnrichAndQueue(ctx, userID, opts)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	if report.NoSavedTracks {
		return r.writePlain("No saved tracks found for %s\n", userID)
	}

	r.writePlain("✓ Queue run complete for %s\n", userID)
	r.writePlain("Saved tracks: %d\n", report.SavedTracks)
	r.writePlain("In tempo band: %d\n", report.Filtered)
	return r.writePlain("Queued: %s minutes\n", report.QueuedMinutes)
}
