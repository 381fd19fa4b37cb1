package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/services"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/pacelist/pacelist/internal/tasks"
)

// App owns the assembled router and the underlying http.Server.
type App struct {
	router *BasicRouter
	server *http.Server
	logger *log.Logger
}

// NewApp wires the endpoint handlers, middleware, and sessions into a
// runnable application.
func NewApp(config *shared.Config, vendor services.VendorClient, flow *tasks.AuthFlow, pipeline *tasks.QueuePipeline, store tasks.CredentialStore, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	sessions := NewSessionManager(config.Server.SessionSecret)

	router := NewBasicRouter()
	router.Use(RequestLogger(logger), Recoverer(logger))
	router.Handler(NewAuthHandler(flow, sessions, logger))
	router.Handler(NewQueueHandler(pipeline, sessions, logger))
	router.Handler(NewPlaylistsHandler(vendor, store, sessions, logger))
	router.Handler(&HealthHandler{})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &App{
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Router exposes the assembled handler, mainly for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a.logger.Info("shutting down")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
