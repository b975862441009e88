package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/repositories"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/desertthunder/playlistcake/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Build runs a recipe and writes the resulting tracks to a Spotify playlist.
//
// With --dry-run the tracks are printed instead and nothing is written.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("recipe")
	if path == "" {
		return fmt.Errorf("%w: recipe file", shared.ErrMissingArgument)
	}
	recipe, err := tasks.LoadRecipe(path)
	if err != nil {
		return err
	}
	if name := cmd.String("name"); name != "" {
		recipe.Name = name
	}
	if id := cmd.String("playlist"); id != "" {
		recipe.PlaylistID = id
	}
	if cmd.IsSet("public") {
		recipe.Public = cmd.Bool("public")
	}

	engine, err := r.pipeline(ctx)
	if err != nil {
		return err
	}
	stream, err := engine.Build(ctx, recipe)
	if err != nil {
		return fmt.Errorf("recipe %s: %w", path, err)
	}

	if cmd.Bool("dry-run") {
		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		kind, _ := stream.Kind()
		items, err := stream.Collect()
		if err != nil {
			return err
		}
		return formatter.Write(r.output, format, recipe.Name, kind, items)
	}

	if recipe.PlaylistID == "" && recipe.Name == "" {
		return fmt.Errorf("%w: recipe needs a name or playlist_id (or pass --name)", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.printProgress(update)
		}
	}()

	opts := tasks.WriteOpts{PlaylistID: recipe.PlaylistID, Name: recipe.Name, Public: recipe.Public}
	result, writeErr := engine.WritePlaylist(ctx, progress, opts, stream)
	close(progress)
	<-done

	if result != nil && result.Playlist.ID() != "" {
		if err := r.recordBuild(recipe, filepath.Base(path), result); err != nil {
			r.logger.Warn("failed to record playlist history", "err", err)
		}
	}
	if writeErr != nil {
		return writeErr
	}

	r.writePlainln("%s", formatter.Success("Added %d tracks to %s", result.Added, playlistLabel(result.Playlist, recipe)))
	if url, ok := result.Playlist["url"].(string); ok && url != "" {
		r.writePlainln("  %s", url)
	}
	return nil
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Done:
		r.logger.Debug(update.Message, "phase", update.Phase)
	case tasks.AddTracks:
		r.writePlainln("  %s", update.Message)
	default:
		r.writePlainln("→ %s", update.Message)
	}
}

// recordBuild adds the write to the generated playlist history. Appends to a known playlist update
// its record instead.
func (r *Runner) recordBuild(recipe *tasks.Recipe, recipeName string, result *tasks.WriteResult) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	repo := repositories.NewPlaylistRepository(db)
	spotifyID := result.Playlist.ID()

	if recipe.PlaylistID != "" {
		existing, err := repo.GetBySpotifyID(spotifyID)
		switch {
		case err == nil:
			existing.SetTrackCount(existing.TrackCount() + result.Added)
			return repo.Update(existing)
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
	}

	public := recipe.Public
	if v, ok := result.Playlist["public"].(bool); ok {
		public = v
	}
	record := models.NewGeneratedPlaylist(0, playlistLabel(result.Playlist, recipe), spotifyID, recipeName, result.Added, public)
	return repo.Create(record)
}

func playlistLabel(pl models.Item, recipe *tasks.Recipe) string {
	if name := pl.Name(); name != "" {
		return name
	}
	if recipe.Name != "" {
		return recipe.Name
	}
	return pl.ID()
}

func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Run a recipe and write the result to a Spotify playlist",
		UsageText: "cake build <recipe.toml> [options]",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "recipe",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Print the tracks instead of writing a playlist",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Override the recipe's playlist name",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Append to this playlist id instead of creating one",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Create the playlist as public",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Dry-run output format: text, markdown, csv or json",
				Value:   string(formatter.Text),
			},
		},
		Action: r.Build,
	}
}
