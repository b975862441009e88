package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "cake",
		Usage:   "Bake Spotify playlists from your library, top charts and recommendations",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("CAKE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output, including every API request",
			},
		},
		Before:   r.load,
		After:    r.close,
		Commands: r.register(),
	}
}
