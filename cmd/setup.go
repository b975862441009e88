package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				return err
			}
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			r.config = config
			r.writePlainln("%s", formatter.Success("Config created at %s", r.configPath))
		}
	}

	config := r.cfg()
	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.writePlainln("%s", formatter.Success("Database ready at %s (schema version %d)", config.Database.Path, version))

	if config.Credentials.Spotify.Validate() != nil {
		r.writePlainln("\nNext steps:")
		r.writePlainln("1. Create an app at https://developer.spotify.com/dashboard")
		r.writePlainln("2. Set client_id and client_secret under [credentials.spotify] in %s", r.configPath)
		r.writePlainln("3. Run 'cake auth'")
	}
	return nil
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recent migration",
			},
		},
		Action: r.Setup,
	}
}
