package tasks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// Recipe describes a playlist as one source followed by a list of stages.
type Recipe struct {
	Name        string      `toml:"name"`
	Description string      `toml:"description"`
	Public      bool        `toml:"public"`
	PlaylistID  string      `toml:"playlist_id"` // append here instead of creating a playlist
	Source      SourceSpec  `toml:"source"`
	Stages      []StageSpec `toml:"stages"`
}

// SourceSpec selects the stream a recipe starts from.
type SourceSpec struct {
	Type       string             `toml:"type"`
	MaxResults int                `toml:"max_results"`
	TimeRange  string             `toml:"time_range"`
	IDs        []string           `toml:"ids"`
	Name       string             `toml:"name"`
	Artists    []string           `toml:"artists"`
	Tracks     []string           `toml:"tracks"`
	Genres     []string           `toml:"genres"`
	Tuneables  map[string]float64 `toml:"tuneables"`
}

// StageSpec is one step of a recipe. Which fields apply depends on Type.
type StageSpec struct {
	Type       string             `toml:"type"`
	Limit      int                `toml:"limit"`
	Count      int                `toml:"count"`
	Start      int                `toml:"start"`
	End        int                `toml:"end"`
	After      string             `toml:"after"`
	Before     string             `toml:"before"`
	Invert     bool               `toml:"invert"`
	By         string             `toml:"by"`
	Order      string             `toml:"order"`
	AlbumType  string             `toml:"album_type"`
	SeedSize   int                `toml:"seed_size"`
	MaxPerSeed int                `toml:"max_per_seed"`
	MaxResults int                `toml:"max_results"`
	Artists    []string           `toml:"artists"`
	Tracks     []string           `toml:"tracks"`
	Genres     []string           `toml:"genres"`
	Tuneables  map[string]float64 `toml:"tuneables"`
}

// SourceTypes lists the source names a recipe or `cake list` accepts.
var SourceTypes = []string{
	"saved_tracks", "saved_albums", "saved_artists", "followed_artists",
	"top_artists", "top_tracks", "user_playlists",
	"tracks", "albums", "artists", "playlists",
	"find_artist", "recommendations",
}

// ParseRecipe decodes a TOML recipe. Unknown keys are rejected.
func ParseRecipe(data []byte) (*Recipe, error) {
	var r Recipe
	md, err := toml.Decode(string(data), &r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown recipe keys %s", shared.ErrInvalidInput, strings.Join(keys, ", "))
	}
	if r.Source.Type == "" {
		return nil, fmt.Errorf("%w: recipe has no source", shared.ErrMissingArgument)
	}
	return &r, nil
}

// LoadRecipe reads and parses a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	return ParseRecipe(data)
}

// Build compiles a recipe into a stream. Nothing is fetched until the stream is consumed,
// except the requests a stage needs to validate its input.
func (e *Engine) Build(ctx context.Context, r *Recipe) (*Stream, error) {
	s, err := e.Source(ctx, r.Source)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", r.Source.Type, err)
	}
	for i, stage := range r.Stages {
		if s, err = e.Apply(ctx, s, stage); err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i+1, stage.Type, err)
		}
	}
	return s, nil
}

// Source opens the stream a [SourceSpec] names.
func (e *Engine) Source(ctx context.Context, spec SourceSpec) (*Stream, error) {
	refs := func(kind pipeline.Kind) (*Stream, error) {
		if len(spec.IDs) == 0 {
			return nil, fmt.Errorf("%w: ids", shared.ErrMissingArgument)
		}
		return pipeline.FromSlice(kind, models.Refs(spec.IDs...)...), nil
	}

	switch spec.Type {
	case "saved_tracks":
		return e.SavedTracks(ctx, LibraryOpts{MaxResults: spec.MaxResults}), nil
	case "saved_albums":
		return e.SavedAlbums(ctx, LibraryOpts{MaxResults: spec.MaxResults}), nil
	case "saved_artists":
		return e.SavedArtists(ctx, spec.MaxResults), nil
	case "followed_artists":
		return e.FollowedArtists(ctx, spec.MaxResults), nil
	case "top_artists", "top_tracks":
		tr, err := ParseTimeRange(spec.TimeRange)
		if err != nil {
			return nil, err
		}
		if spec.Type == "top_artists" {
			return e.TopArtists(ctx, tr, spec.MaxResults), nil
		}
		return e.TopTracks(ctx, tr, spec.MaxResults), nil
	case "user_playlists":
		return e.UserPlaylists(ctx, spec.MaxResults), nil
	case "tracks":
		in, err := refs(pipeline.Tracks)
		if err != nil {
			return nil, err
		}
		return e.SeveralTracks(ctx, in), nil
	case "albums":
		in, err := refs(pipeline.Albums)
		if err != nil {
			return nil, err
		}
		return e.SeveralAlbums(ctx, in), nil
	case "artists":
		in, err := refs(pipeline.Artists)
		if err != nil {
			return nil, err
		}
		return e.SeveralArtists(ctx, in), nil
	case "playlists":
		return refs(pipeline.Playlists)
	case "find_artist":
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: name", shared.ErrMissingArgument)
		}
		artist, err := e.FindArtist(ctx, spec.Name)
		if err != nil {
			return nil, err
		}
		return pipeline.FromSlice(pipeline.Artists, artist), nil
	case "recommendations":
		tuneables, err := ParseTuneables(spec.Tuneables)
		if err != nil {
			return nil, err
		}
		seed := Seed{Artists: spec.Artists, Tracks: spec.Tracks, Genres: spec.Genres}
		return e.Recommendations(ctx, seed, spec.MaxResults, tuneables)
	default:
		return nil, fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, spec.Type)
	}
}

// Apply adds one stage to s.
func (e *Engine) Apply(ctx context.Context, s *Stream, stage StageSpec) (*Stream, error) {
	switch stage.Type {
	case "unique":
		return Unique(s), nil
	case "artist_variety":
		return ArtistVariety(s, stage.Limit), nil
	case "take":
		return pipeline.Take(s, stage.Count), nil
	case "shuffle":
		return pipeline.Shuffle(s, e.rng), nil
	case "sample":
		if stage.Count <= 0 {
			return nil, fmt.Errorf("%w: sample count must be positive", shared.ErrInvalidArgument)
		}
		return pipeline.Sample(s, stage.Count, e.rng), nil
	case "audio_features":
		return e.WithAudioFeatures(ctx, s), nil
	case "tuneables":
		tuneables, err := ParseTuneables(stage.Tuneables)
		if err != nil {
			return nil, err
		}
		return e.FilterTuneables(ctx, s, tuneables, stage.Invert), nil
	case "release_year":
		if stage.End == 0 {
			stage.End = time.Now().Year()
		}
		return e.FilterReleaseYear(ctx, s, stage.Start, stage.End, stage.Invert)
	case "added_at":
		after, err := parseTime(stage.After, time.Time{})
		if err != nil {
			return nil, err
		}
		before, err := parseTime(stage.Before, time.Now())
		if err != nil {
			return nil, err
		}
		return FilterAddedAt(s, after, before), nil
	case "sort":
		return e.sort(ctx, s, stage)
	case "albums":
		return e.SeveralAlbums(ctx, s), nil
	case "tracks":
		return e.SeveralTracks(ctx, s), nil
	case "artists":
		return e.SeveralArtists(ctx, s), nil
	case "tracks_from_albums":
		return e.TracksFromAlbums(ctx, s), nil
	case "artists_albums":
		return e.ArtistsAlbums(ctx, s, stage.AlbumType), nil
	case "artists_top_tracks":
		return e.ArtistsTopTracks(ctx, s), nil
	case "playlist_tracks":
		return e.PlaylistsTracks(ctx, s), nil
	case "recommendations", "recommended_albums":
		size := stage.SeedSize
		if size == 0 {
			size = MaxSeeds
		}
		seeds, err := Seeds(s, size)
		if err != nil {
			return nil, err
		}
		tuneables, err := ParseTuneables(stage.Tuneables)
		if err != nil {
			return nil, err
		}
		opts := BatchOpts{
			SupplArtists: stage.Artists,
			SupplTracks:  stage.Tracks,
			Genres:       stage.Genres,
			MaxPerSeed:   stage.MaxPerSeed,
			MaxResults:   stage.MaxResults,
			Tuneables:    tuneables,
		}
		if stage.Type == "recommended_albums" {
			return e.RecommendedAlbums(ctx, seeds, opts)
		}
		return e.BatchRecommendations(ctx, seeds, opts)
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", shared.ErrInvalidArgument, stage.Type)
	}
}

func (e *Engine) sort(ctx context.Context, s *Stream, stage StageSpec) (*Stream, error) {
	var order pipeline.Order
	switch stage.Order {
	case "", "asc":
		order = pipeline.Ascending
	case "desc":
		order = pipeline.Descending
	default:
		return nil, fmt.Errorf("%w: sort order %q", shared.ErrInvalidArgument, stage.Order)
	}
	if stage.By == "" {
		return nil, fmt.Errorf("%w: sort needs a key", shared.ErrMissingArgument)
	}

	if _, ok := Margins[stage.By]; ok && stage.By != "popularity" {
		return e.SortTracks(ctx, s, ByAudioFeature(stage.By), order), nil
	}
	return pipeline.SortBy[models.Item, float64](s, ByField(stage.By), order), nil
}

// parseTime accepts a date or an RFC 3339 timestamp. An empty value yields def.
func parseTime(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", shared.ErrInvalidArgument, v)
}
