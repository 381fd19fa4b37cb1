package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pacelist/pacelist/internal/server"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP service: OAuth login and callback, the queue
// endpoint, and playlist listing. Blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = int(port)
	}

	vendor, err := r.vendorClient(config)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, flow, pipeline, err := r.buildPipeline(db, config, vendor)
	if err != nil {
		return err
	}

	app := server.NewApp(config, vendor, flow, pipeline, store, r.logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(runCtx)
}
