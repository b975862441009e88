package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/desertthunder/playlistcake/internal/tasks"
	"github.com/urfave/cli/v3"
)

// List prints the items of a single source, e.g. `cake list top_artists --time-range short_term`.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: source (one of %s)", shared.ErrMissingArgument, strings.Join(tasks.SourceTypes, ", "))
	}
	if !slices.Contains(tasks.SourceTypes, source) {
		return fmt.Errorf("%w: unknown source %q (one of %s)", shared.ErrInvalidArgument, source, strings.Join(tasks.SourceTypes, ", "))
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.pipeline(ctx)
	if err != nil {
		return err
	}

	spec := tasks.SourceSpec{
		Type:       source,
		MaxResults: int(cmd.Int("max")),
		TimeRange:  cmd.String("time-range"),
		IDs:        cmd.StringSlice("ids"),
		Name:       cmd.String("name"),
		Artists:    cmd.StringSlice("seed-artists"),
		Tracks:     cmd.StringSlice("seed-tracks"),
		Genres:     cmd.StringSlice("seed-genres"),
	}
	stream, err := engine.Source(ctx, spec)
	if err != nil {
		return err
	}
	if n := int(cmd.Int("take")); n > 0 {
		stream = pipeline.Take(stream, n)
	}

	kind, _ := stream.Kind()
	items, err := stream.Collect()
	if err != nil {
		return err
	}
	r.logger.Debug("listed source", "source", source, "kind", kind, "items", len(items))

	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := formatter.Write(f, format, source, kind, items); err != nil {
			return err
		}
		return r.writePlainln("%s", formatter.Success("Wrote %d %s to %s", len(items), kind, path))
	}
	return formatter.Write(r.output, format, source, kind, items)
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "Print the items of one source",
		UsageText: "cake list <source> [options]\n\nSources: " + strings.Join(tasks.SourceTypes, ", "),
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "source",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum number of items to request (0 for all)",
			},
			&cli.IntFlag{
				Name:  "take",
				Usage: "Stop after this many items",
			},
			&cli.StringFlag{
				Name:  "time-range",
				Usage: "Top items period: short_term, medium_term or long_term",
				Value: string(tasks.MediumTerm),
			},
			&cli.StringSliceFlag{
				Name:  "ids",
				Usage: "Ids for the tracks, albums, artists and playlists sources",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Artist name for find_artist",
			},
			&cli.StringSliceFlag{
				Name:  "seed-artists",
				Usage: "Artist ids seeding the recommendations source",
			},
			&cli.StringSliceFlag{
				Name:  "seed-tracks",
				Usage: "Track ids seeding the recommendations source",
			},
			&cli.StringSliceFlag{
				Name:  "seed-genres",
				Usage: "Genres seeding the recommendations source",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   string(formatter.Text),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.List,
	}
}
