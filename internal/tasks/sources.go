package tasks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// TimeRange is the affinity window of the top-items endpoints.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// ParseTimeRange validates a time range name. An empty name selects [MediumTerm].
func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case "":
		return MediumTerm, nil
	case ShortTerm, MediumTerm, LongTerm:
		return r, nil
	default:
		return "", fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, s)
	}
}

// LibraryOpts configures the saved-library sources.
type LibraryOpts struct {
	MaxResults int  // 0 means the whole library
	Unwrap     bool // yield the saved object instead of the {added_at, track|album} entry
}

const pageLimit = 50

func limitParams(maxResults, maxLimit int) url.Values {
	return url.Values{"limit": {strconv.Itoa(pipeline.Limit(maxResults, maxLimit))}}
}

func (e *Engine) paginate(ctx context.Context, kind pipeline.Kind, req pipeline.Request) *Stream {
	if err := e.ready(); err != nil {
		return pipeline.Fail[models.Item](kind, err)
	}
	e.logger.Debug("paginate", "operation", req.Operation, "max", req.MaxResults)
	return pipeline.New(kind, pipeline.Paginate(ctx, e.client, req))
}

// unwrap replaces each library entry with the object stored under key.
func unwrap(in *Stream, key string) *Stream {
	return pipeline.Derive(in, func(yield func(models.Item, error) bool) {
		for entry, err := range in.All() {
			if err != nil {
				yield(nil, err)
				return
			}
			obj, err := entry.Object(key)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(obj, nil) {
				return
			}
		}
	})
}

func (e *Engine) library(ctx context.Context, op models.Operation, kind pipeline.Kind, key string, opts LibraryOpts) *Stream {
	s := e.paginate(ctx, kind, pipeline.Request{
		Operation:  op,
		Params:     limitParams(opts.MaxResults, pageLimit),
		ItemsPath:  pipeline.Key("items"),
		NextPath:   pipeline.Key("next"),
		MaxResults: opts.MaxResults,
	})
	if opts.Unwrap {
		return unwrap(s, key)
	}
	return s
}

// SavedTracks yields the user's saved tracks as {added_at, track} entries, or bare tracks with opts.Unwrap.
func (e *Engine) SavedTracks(ctx context.Context, opts LibraryOpts) *Stream {
	return e.library(ctx, models.OpSavedTracks, pipeline.Tracks, "track", opts)
}

// SavedAlbums yields the user's saved albums as {added_at, album} entries, or bare albums with opts.Unwrap.
func (e *Engine) SavedAlbums(ctx context.Context, opts LibraryOpts) *Stream {
	return e.library(ctx, models.OpSavedAlbums, pipeline.Albums, "album", opts)
}

// FollowedArtists yields the artists the user follows.
func (e *Engine) FollowedArtists(ctx context.Context, maxResults int) *Stream {
	params := limitParams(maxResults, pageLimit)
	params.Set("type", "artist")
	return e.paginate(ctx, pipeline.Artists, pipeline.Request{
		Operation:  models.OpFollowedArtists,
		Params:     params,
		ItemsPath:  pipeline.Keys("artists", "items"),
		NextPath:   pipeline.Keys("artists", "next"),
		MaxResults: maxResults,
	})
}

// SavedArtists yields every artist credited on a saved album or saved track, then every followed artist,
// each artist once.
func (e *Engine) SavedArtists(ctx context.Context, maxResults int) *Stream {
	credited := func(in *Stream) *Stream {
		return pipeline.Derive(in, func(yield func(models.Item, error) bool) {
			for item, err := range in.All() {
				if err != nil {
					yield(nil, err)
					return
				}
				artists, err := item.Objects("artists")
				if err != nil {
					yield(nil, err)
					return
				}
				for _, artist := range artists {
					if !yield(artist, nil) {
						return
					}
				}
			}
		})
	}

	all := pipeline.Concat(pipeline.Artists,
		credited(e.SavedAlbums(ctx, LibraryOpts{Unwrap: true})),
		credited(e.SavedTracks(ctx, LibraryOpts{Unwrap: true})),
		e.FollowedArtists(ctx, 0),
	)
	return pipeline.Take(Unique(all), maxResults)
}

func (e *Engine) top(ctx context.Context, op models.Operation, kind pipeline.Kind, timeRange TimeRange, maxResults int) *Stream {
	if timeRange == "" {
		timeRange = MediumTerm
	}
	params := limitParams(maxResults, pageLimit)
	params.Set("time_range", string(timeRange))
	return e.paginate(ctx, kind, pipeline.Request{
		Operation:  op,
		Params:     params,
		ItemsPath:  pipeline.Key("items"),
		NextPath:   pipeline.Key("next"),
		MaxResults: maxResults,
	})
}

// TopArtists yields the user's top artists over timeRange.
func (e *Engine) TopArtists(ctx context.Context, timeRange TimeRange, maxResults int) *Stream {
	return e.top(ctx, models.OpTopArtists, pipeline.Artists, timeRange, maxResults)
}

// TopTracks yields the user's top tracks over timeRange.
func (e *Engine) TopTracks(ctx context.Context, timeRange TimeRange, maxResults int) *Stream {
	return e.top(ctx, models.OpTopTracks, pipeline.Tracks, timeRange, maxResults)
}

// UserPlaylists yields the current user's playlists as simplified playlist objects.
func (e *Engine) UserPlaylists(ctx context.Context, maxResults int) *Stream {
	return e.paginate(ctx, pipeline.Playlists, pipeline.Request{
		Operation:  models.OpUserPlaylists,
		Params:     limitParams(maxResults, pageLimit),
		ItemsPath:  pipeline.Key("items"),
		NextPath:   pipeline.Key("next"),
		MaxResults: maxResults,
	})
}

// each runs source for every value of in and chains the results under kind.
func each(in *Stream, kind pipeline.Kind, source func(models.Item) *Stream) *Stream {
	return pipeline.New(kind, func(yield func(models.Item, error) bool) {
		for item, err := range in.All() {
			if err != nil {
				yield(nil, err)
				return
			}
			for out, err := range source(item).All() {
				if !yield(out, err) || err != nil {
					return
				}
			}
		}
	})
}

// PlaylistsTracks yields the tracks of every playlist, in playlist order.
//
// Entries without a track (removed or unavailable items) are skipped.
func (e *Engine) PlaylistsTracks(ctx context.Context, playlists *Stream) *Stream {
	return each(playlists, pipeline.Tracks, func(pl models.Item) *Stream {
		entries := e.paginate(ctx, pipeline.Tracks, pipeline.Request{
			Operation: models.OpPlaylistTracks,
			Params:    url.Values{"playlist_id": {pl.ID()}, "limit": {"100"}},
			ItemsPath: pipeline.Key("items"),
			NextPath:  pipeline.Key("next"),
		})
		return pipeline.Derive(entries, func(yield func(models.Item, error) bool) {
			for entry, err := range entries.All() {
				if err != nil {
					yield(nil, err)
					return
				}
				track, err := entry.Object("track")
				if err != nil {
					e.logger.Debug("skipping playlist entry", "playlist", pl.ID(), "err", err)
					continue
				}
				if !yield(track, nil) {
					return
				}
			}
		})
	})
}

// ArtistsAlbums yields the full album objects of every artist's releases in the user's market.
//
// albumType restricts the release groups (album, single, appears_on, compilation); empty means album.
func (e *Engine) ArtistsAlbums(ctx context.Context, artists *Stream, albumType string) *Stream {
	if albumType == "" {
		albumType = "album"
	}

	simple := each(artists, pipeline.Albums, func(artist models.Item) *Stream {
		country, err := e.UserCountry(ctx)
		if err != nil {
			return pipeline.Fail[models.Item](pipeline.Albums, err)
		}
		return e.paginate(ctx, pipeline.Albums, pipeline.Request{
			Operation: models.OpArtistAlbums,
			Params: url.Values{
				"artist_id":      {artist.ID()},
				"market":         {country},
				"include_groups": {albumType},
				"limit":          {strconv.Itoa(pageLimit)},
			},
			ItemsPath: pipeline.Key("items"),
			NextPath:  pipeline.Key("next"),
		})
	})
	return e.SeveralAlbums(ctx, simple)
}

// ArtistsTopTracks yields every artist's top tracks in the user's market.
func (e *Engine) ArtistsTopTracks(ctx context.Context, artists *Stream) *Stream {
	return each(artists, pipeline.Tracks, func(artist models.Item) *Stream {
		country, err := e.UserCountry(ctx)
		if err != nil {
			return pipeline.Fail[models.Item](pipeline.Tracks, err)
		}
		return e.paginate(ctx, pipeline.Tracks, pipeline.Request{
			Operation: models.OpArtistTopTracks,
			Params:    url.Values{"artist_id": {artist.ID()}, "market": {country}},
			ItemsPath: pipeline.Key("tracks"),
		})
	})
}

// TracksFromAlbums yields the full track objects of every track on the given full albums.
func (e *Engine) TracksFromAlbums(ctx context.Context, albums *Stream) *Stream {
	simple := pipeline.New(pipeline.Tracks, func(yield func(models.Item, error) bool) {
		for album, err := range albums.All() {
			if err != nil {
				yield(nil, err)
				return
			}
			tracks, err := album.Object("tracks")
			if err != nil {
				yield(nil, fmt.Errorf("album %s: %w", album.ID(), err))
				return
			}
			items, err := tracks.Objects("items")
			if err != nil {
				yield(nil, fmt.Errorf("album %s: %w", album.ID(), err))
				return
			}
			for _, track := range items {
				if !yield(track, nil) {
					return
				}
			}
		}
	})
	return e.SeveralTracks(ctx, simple)
}
