package tasks

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/samber/lo"
)

// MaxSeeds is the most seeds a recommendation request may combine.
const MaxSeeds = 5

// Seed holds the seeds of one recommendation request.
type Seed struct {
	Artists []string
	Tracks  []string
	Genres  []string
}

// Len counts the combined seeds.
func (s Seed) Len() int {
	return len(s.Artists) + len(s.Tracks) + len(s.Genres)
}

// Validate rejects an empty seed and one with more than [MaxSeeds] entries.
func (s Seed) Validate() error {
	switch n := s.Len(); {
	case n == 0:
		return fmt.Errorf("%w: no seeds", shared.ErrMissingArgument)
	case n > MaxSeeds:
		return fmt.Errorf("%w: got %d", shared.ErrTooManySeeds, n)
	}
	return nil
}

func (s Seed) params() url.Values {
	params := url.Values{}
	for key, ids := range map[string][]string{"seed_artists": s.Artists, "seed_tracks": s.Tracks, "seed_genres": s.Genres} {
		if len(ids) > 0 {
			params.Set(key, strings.Join(ids, ","))
		}
	}
	return params
}

// Seeds groups the ids of in into seed groups of size, each id appearing once across the whole stream.
//
// size must be between 1 and [MaxSeeds]. The last group may be short.
func Seeds(in *Stream, size int) (*pipeline.Stream[[]string], error) {
	if size < 1 || size > MaxSeeds {
		return nil, fmt.Errorf("%w: got %d", shared.ErrInvalidSeedSize, size)
	}

	ids := Unique(in)
	return pipeline.Derive(in, func(yield func([]string, error) bool) {
		for chunk, err := range pipeline.Chunk(ids.All(), size) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(itemIDs(chunk), nil) {
				return
			}
		}
	}), nil
}

// Recommendations yields up to maxResults recommended tracks for seed. maxResults <= 0 means the
// remote API's maximum of 100.
func (e *Engine) Recommendations(ctx context.Context, seed Seed, maxResults int, tuneables []Tuneable) (*Stream, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return e.recommendations(ctx, seed, maxResults, tuneables), nil
}

func (e *Engine) recommendations(ctx context.Context, seed Seed, maxResults int, tuneables []Tuneable) *Stream {
	params := seed.params()
	params.Set("limit", strconv.Itoa(pipeline.Limit(maxResults, 100)))
	setParams(params, tuneables)
	return e.paginate(ctx, pipeline.Tracks, pipeline.Request{
		Operation:  models.OpRecommendations,
		Params:     params,
		ItemsPath:  pipeline.Key("tracks"),
		MaxResults: maxResults,
	})
}

// BatchOpts configures [Engine.BatchRecommendations].
type BatchOpts struct {
	SupplArtists []string   // artist ids added to every request
	SupplTracks  []string   // track ids added to every request
	Genres       []string   // genres added to every request
	MaxPerSeed   int        // cap per seed group, default 50
	MaxResults   int        // overall cap, 0 means unlimited
	Tuneables    []Tuneable // passed through to every request
}

// BatchRecommendations issues one recommendation request per seed group and chains the results.
//
// The seed stream must hold artist or track ids, as produced by [Seeds] from an artist or track stream.
// Once MaxResults tracks have been yielded no further group is requested.
func (e *Engine) BatchRecommendations(ctx context.Context, seeds *pipeline.Stream[[]string], opts BatchOpts) (*Stream, error) {
	kind, err := seeds.Kind()
	if err != nil {
		return nil, err
	}
	if kind != pipeline.Artists && kind != pipeline.Tracks {
		return nil, fmt.Errorf("%w: recommendations seeded from %s", shared.ErrUnsupportedKind, kind)
	}

	opts.SupplArtists, opts.SupplTracks = lo.Uniq(opts.SupplArtists), lo.Uniq(opts.SupplTracks)
	static := Seed{Artists: opts.SupplArtists, Tracks: opts.SupplTracks, Genres: opts.Genres}
	if n := static.Len(); n >= MaxSeeds {
		return nil, fmt.Errorf("%w: %d supplemental seeds leave no room for a seed group", shared.ErrTooManySeeds, n)
	}
	perSeed := opts.MaxPerSeed
	if perSeed <= 0 {
		perSeed = 50
	}

	return pipeline.New(pipeline.Tracks, func(yield func(models.Item, error) bool) {
		count := 0
		for group, err := range seeds.All() {
			if err != nil {
				yield(nil, err)
				return
			}

			seed := Seed{
				Artists: slices.Clone(opts.SupplArtists),
				Tracks:  slices.Clone(opts.SupplTracks),
				Genres:  opts.Genres,
			}
			if kind == pipeline.Artists {
				seed.Artists = append(seed.Artists, group...)
			} else {
				seed.Tracks = append(seed.Tracks, group...)
			}
			if err := seed.Validate(); err != nil {
				yield(nil, err)
				return
			}

			e.logger.Debug("recommendations", "group", group, "seeds", seed.Len())
			for track, err := range e.recommendations(ctx, seed, perSeed, opts.Tuneables).All() {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(track, nil) {
					return
				}
				count++
				if opts.MaxResults > 0 && count >= opts.MaxResults {
					return
				}
			}
		}
	}), nil
}

// RecommendedAlbums yields the albums of batch recommendations, each album once.
func (e *Engine) RecommendedAlbums(ctx context.Context, seeds *pipeline.Stream[[]string], opts BatchOpts) (*Stream, error) {
	maxAlbums := opts.MaxResults
	opts.MaxResults = 0

	tracks, err := e.BatchRecommendations(ctx, seeds, opts)
	if err != nil {
		return nil, err
	}

	albums := pipeline.New(pipeline.Albums, func(yield func(models.Item, error) bool) {
		for track, err := range tracks.All() {
			if err != nil {
				yield(nil, err)
				return
			}
			album, err := track.Object("album")
			if err != nil {
				yield(nil, fmt.Errorf("track %s: %w", track.ID(), err))
				return
			}
			if !yield(album, nil) {
				return
			}
		}
	})
	return pipeline.Take(Unique(albums), maxAlbums), nil
}
