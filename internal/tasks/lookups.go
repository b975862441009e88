package tasks

import (
	"context"
	"fmt"
	"iter"
	"net/url"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// idOf picks the id an input contributes to a batch lookup.
type idOf func(models.Item) (string, error)

func ownID(item models.Item) (string, error) { return item.ID(), nil }

// lookup resolves seq in batches of kind's size and yields each result paired with the input it came from.
//
// Inputs may be full objects or [models.Ref] values; only the ids picked by id are sent.
func (e *Engine) lookup(ctx context.Context, seq iter.Seq2[models.Item, error], kind models.LookupKind, id idOf) iter.Seq2[[2]models.Item, error] {
	return func(yield func([2]models.Item, error) bool) {
		if err := e.ready(); err != nil {
			yield([2]models.Item{}, err)
			return
		}

		for chunk, err := range pipeline.Chunk(seq, kind.BatchSize()) {
			if err != nil {
				yield([2]models.Item{}, err)
				return
			}

			ids := make([]string, len(chunk))
			for i, item := range chunk {
				if ids[i], err = id(item); err != nil {
					yield([2]models.Item{}, err)
					return
				}
			}
			e.logger.Debug("batch lookup", "kind", kind, "ids", len(ids))
			results, err := e.client.Lookup(ctx, kind, ids)
			if err != nil {
				yield([2]models.Item{}, fmt.Errorf("%s lookup: %w", kind, err))
				return
			}
			if len(results) != len(ids) {
				yield([2]models.Item{}, fmt.Errorf("%w: %s lookup returned %d results for %d ids", shared.ErrAPIRequest, kind, len(results), len(ids)))
				return
			}

			for i, result := range results {
				if !yield([2]models.Item{chunk[i], result}, nil) {
					return
				}
			}
		}
	}
}

// several replaces each input with its looked-up object, skipping ids the remote API does not know.
func (e *Engine) several(ctx context.Context, in *Stream, kind models.LookupKind, out pipeline.Kind) *Stream {
	return pipeline.New(out, func(yield func(models.Item, error) bool) {
		for pair, err := range e.lookup(ctx, in.All(), kind, ownID) {
			if err != nil {
				yield(nil, err)
				return
			}
			if pair[1] == nil {
				e.logger.Debug("lookup miss", "kind", kind, "id", pair[0].ID())
				continue
			}
			if !yield(pair[1], nil) {
				return
			}
		}
	})
}

// SeveralAlbums resolves albums or album ids to full album objects, 20 per request.
func (e *Engine) SeveralAlbums(ctx context.Context, in *Stream) *Stream {
	return e.several(ctx, in, models.LookupAlbums, pipeline.Albums)
}

// SeveralTracks resolves tracks or track ids to full track objects, 50 per request.
func (e *Engine) SeveralTracks(ctx context.Context, in *Stream) *Stream {
	return e.several(ctx, in, models.LookupTracks, pipeline.Tracks)
}

// SeveralArtists resolves artists or artist ids to full artist objects, 50 per request.
func (e *Engine) SeveralArtists(ctx context.Context, in *Stream) *Stream {
	return e.several(ctx, in, models.LookupArtists, pipeline.Artists)
}

// WithAudioFeatures attaches audio features to every track, 100 per request.
//
// The input track itself is yielded with features stored under [models.FeaturesKey].
// Tracks the remote API has no features for are yielded unchanged.
func (e *Engine) WithAudioFeatures(ctx context.Context, in *Stream) *Stream {
	return pipeline.Derive(in, func(yield func(models.Item, error) bool) {
		for pair, err := range e.lookup(ctx, in.All(), models.LookupAudioFeatures, ownID) {
			if err != nil {
				yield(nil, err)
				return
			}
			track, features := pair[0], pair[1]
			if features != nil {
				track.SetFeatures(features)
			}
			if !yield(track, nil) {
				return
			}
		}
	})
}

func (e *Engine) fetchObject(ctx context.Context, op models.Operation, params url.Values) (models.Item, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	page, err := e.client.FetchPage(ctx, op, params)
	if err != nil {
		return nil, err
	}
	item, err := pipeline.DecodeItem(page, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, op)
	}
	return item, nil
}

// FullAlbum returns the full album object for a partial album or ref.
// An album that already carries its tracks is returned as is.
func (e *Engine) FullAlbum(ctx context.Context, album models.Item) (models.Item, error) {
	if album.Has("tracks") {
		return album, nil
	}
	return e.fetchObject(ctx, models.OpAlbum, url.Values{"album_id": {album.ID()}})
}

// FullTrack returns the full track object for a partial track or ref.
// A track that already carries its album is returned as is.
func (e *Engine) FullTrack(ctx context.Context, track models.Item) (models.Item, error) {
	if track.Has("album") {
		return track, nil
	}
	return e.fetchObject(ctx, models.OpTrack, url.Values{"track_id": {track.ID()}})
}

// search returns the first hit for query in the user's market.
func (e *Engine) search(ctx context.Context, query string, kind pipeline.Kind) (models.Item, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	country, err := e.UserCountry(ctx)
	if err != nil {
		return nil, err
	}

	singular := string(kind[:len(kind)-1])
	req := pipeline.Request{
		Operation: models.OpSearch,
		Params: url.Values{
			"q":      {query},
			"type":   {singular},
			"limit":  {"1"},
			"market": {country},
		},
		ItemsPath:  pipeline.Keys(string(kind), "items"),
		MaxResults: 1,
	}
	for item, err := range pipeline.Paginate(ctx, e.client, req) {
		if err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, fmt.Errorf("%w: no %s matching %q", shared.ErrNotFound, singular, query)
}

// FindArtist returns the first artist matching name.
func (e *Engine) FindArtist(ctx context.Context, name string) (models.Item, error) {
	return e.search(ctx, fmt.Sprintf("artist:%s", name), pipeline.Artists)
}

// FindAlbum returns the full album object of the first album matching artist and name.
func (e *Engine) FindAlbum(ctx context.Context, artist, name string) (models.Item, error) {
	album, err := e.search(ctx, fmt.Sprintf("artist:%s album:%s", artist, name), pipeline.Albums)
	if err != nil {
		return nil, err
	}
	return e.FullAlbum(ctx, album)
}

// FindTrack returns the first track matching artist and name.
func (e *Engine) FindTrack(ctx context.Context, artist, name string) (models.Item, error) {
	return e.search(ctx, fmt.Sprintf("artist:%s track:%s", artist, name), pipeline.Tracks)
}
