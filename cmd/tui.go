package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pacelist/pacelist/internal/repositories"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/pacelist/pacelist/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist browsing and queue runs.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
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

	repo, _, pipeline, err := r.buildPipeline(db, config, vendor)
	if err != nil {
		return err
	}

	token, err := repo.AccessTokenByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: no stored credential for user %s, run 'pacelist serve' and log in first", shared.ErrUnauthorized, userID)
		}
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/pacelist-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, vendor, pipeline, userID, token)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
