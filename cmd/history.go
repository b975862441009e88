package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/repositories"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	ID         string `json:"id"`
	Sequence   int    `json:"sequence"`
	Name       string `json:"name"`
	SpotifyID  string `json:"spotify_id"`
	Recipe     string `json:"recipe"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
	CreatedAt  string `json:"created_at"`
}

// History lists playlists written by `cake build`, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	playlists, err := repositories.NewPlaylistRepository(db).List(map[string]any{
		"recipe": cmd.String("recipe"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, len(playlists))
		for i, p := range playlists {
			entries[i] = historyEntry{
				ID:         p.ID(),
				Sequence:   p.Sequence(),
				Name:       p.Name(),
				SpotifyID:  p.SpotifyID(),
				Recipe:     p.Recipe(),
				TrackCount: p.TrackCount(),
				Public:     p.Public(),
				CreatedAt:  p.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		return r.writeJSON(entries, true)
	}
	return r.writePlainln("%s", formatter.HistoryTable(playlists))
}

// HistoryForget removes a record from the history. The Spotify playlist is left alone.
func (r *Runner) HistoryForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: record id", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	if err := repositories.NewPlaylistRepository(db).Delete(id); err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Success("Forgot %s", id))
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List playlists written by cake build",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Show at most this many records",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "recipe",
				Usage: "Only show playlists built from this recipe file name",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "forget",
				Usage: "Remove a record from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.HistoryForget,
			},
		},
	}
}
