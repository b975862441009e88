package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlistcake/internal/repositories"
	"github.com/desertthunder/playlistcake/internal/services"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/desertthunder/playlistcake/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the Spotify client are opened on first use so that commands like
// `cake setup` work before credentials exist.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	db          *sql.DB
	ownsDB      bool
	client      tasks.Client
	spotify     *services.SpotifyService
	engine      *tasks.Engine
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB      // opened from the config when nil
	Client     tasks.Client // a Spotify service is built from the config when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		db:          opts.DB,
		client:      opts.Client,
		openBrowser: shared.OpenBrowser,
	}
	if r.client != nil {
		r.engine = tasks.NewEngine(r.client, shared.WithLogger(r.logger, "component", "engine"))
	}
	return r
}

// load reads the config named by --config unless one was injected, and applies the log level.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" && r.configPath == "" {
		r.configPath = path
	}

	if r.config == nil {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			config = shared.DefaultConfig()
		case err != nil:
			return ctx, err
		}
		r.config = config
	}

	level, err := r.config.Log.ParseLevel()
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// close releases the database opened by [Runner.database]. An injected database is left open.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// database opens the configured SQLite database and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

// service builds the Spotify service from the config without installing a token.
func (r *Runner) service() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	config := r.cfg()
	if err := config.Credentials.Spotify.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set client_id and client_secret in %s)", err, r.configPath)
	}
	ttl, err := config.API.TTL()
	if err != nil {
		return nil, err
	}

	opts := services.SpotifyOpts{
		BaseURL:           config.API.BaseURL,
		RequestsPerSecond: config.API.RequestsPerSecond,
		CacheTTL:          ttl,
		Logger:            r.logger,
		OnTokenRefresh: func(tok *oauth2.Token) {
			if err := r.saveTokens(tok); err != nil {
				r.logger.Warn("failed to persist refreshed token", "err", err)
			}
		},
	}
	if ttl > 0 {
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		opts.Cache = repositories.NewResponseCache(db)
	}

	srv, err := services.NewSpotifyService(config.Credentials.Spotify.Credentials(), opts)
	if err != nil {
		return nil, err
	}
	r.spotify = srv
	return srv, nil
}

// pipeline returns the engine, authenticating the Spotify service with the stored token on first use.
func (r *Runner) pipeline(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	srv, err := r.service()
	if err != nil {
		return nil, err
	}
	if err := srv.SetToken(ctx, r.cfg().Credentials.Spotify.Token()); err != nil {
		return nil, fmt.Errorf("%w (run `cake auth` first)", err)
	}

	r.client = srv
	r.engine = tasks.NewEngine(srv, shared.WithLogger(r.logger, "component", "engine"))
	return r.engine, nil
}

// saveTokens stores tok in the config and writes it to the config path, when one is set.
func (r *Runner) saveTokens(tok *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}
	if tok == nil {
		return fmt.Errorf("%w: token cannot be nil", shared.ErrInvalidArgument)
	}

	r.config.Credentials.Spotify.SetToken(tok)
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("tokens saved", "path", r.configPath)
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, listCommand, buildCommand, historyCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
	return r.writePlain(format+"\n", args...)
}
