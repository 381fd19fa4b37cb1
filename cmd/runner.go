package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pacelist/pacelist/internal/repositories"
	"github.com/pacelist/pacelist/internal/services"
	"github.com/pacelist/pacelist/internal/shared"
	"github.com/pacelist/pacelist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	vendor services.VendorClient
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Vendor services.VendorClient
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		vendor: opts.Vendor,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the Runner's logger, used when the TUI takes over stderr.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, spotifyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file named by the --config flag, falling back
// to defaults when the file is absent or unreadable.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}

	if _, err := os.Stat(path); err != nil {
		r.logger.Warn("config file not found, using defaults", "path", path)
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return r.config
	}

	r.config = config
	return config
}

// openDatabase opens and configures the sqlite database named in config.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db, nil
}

// vendorClient returns the injected vendor client when one was provided,
// otherwise builds a Spotify client from the config credentials.
func (r *Runner) vendorClient(config *shared.Config) (services.VendorClient, error) {
	if r.vendor != nil {
		return r.vendor, nil
	}

	client, err := services.NewSpotifyClient(config.Credentials.Spotify.Map(), r.logger)
	if err != nil {
		return nil, err
	}

	if config.Vendor.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(config.Vendor.TimeoutSeconds) * time.Second)
	}
	if config.Vendor.RequestsPerSecond > 0 {
		client.SetRequestsPerSecond(config.Vendor.RequestsPerSecond)
	}

	r.vendor = client
	return client, nil
}

// buildPipeline assembles the credential repository, auth flow, and queue
// pipeline over an open database handle.
func (r *Runner) buildPipeline(db *sql.DB, config *shared.Config, vendor services.VendorClient) (*repositories.CredentialRepository, *tasks.AuthFlow, *tasks.QueuePipeline, error) {
	auth, ok := vendor.(tasks.Authenticator)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: vendor client cannot authenticate", shared.ErrMissingCredentials)
	}

	repo := repositories.NewCredentialRepository(db)
	flow := tasks.NewAuthFlow(auth, repo, r.logger)
	pipeline := tasks.NewQueuePipeline(vendor, repo, flow, r.logger)
	pipeline.SetDefaults(tasks.QueueOptions{
		TempoLow:      config.Queue.TempoLow,
		TempoHigh:     config.Queue.TempoHigh,
		BudgetMinutes: config.Queue.DurationBudgetMinutes,
	})

	return repo, flow, pipeline, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
