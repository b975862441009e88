package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// Unique yields each item the first time its id is seen.
func Unique(in *Stream) *Stream {
	seen := make(map[string]struct{})
	return pipeline.Filter(in, func(item models.Item) (bool, error) {
		id := item.ID()
		if _, ok := seen[id]; ok {
			return false, nil
		}
		seen[id] = struct{}{}
		return true, nil
	})
}

// ArtistVariety yields at most limit tracks per first-listed artist. Tracks past the limit are dropped.
// A limit below 1 is treated as 1.
func ArtistVariety(in *Stream, limit int) *Stream {
	if limit < 1 {
		limit = 1
	}
	counts := make(map[string]int)
	return pipeline.Filter(in, func(track models.Item) (bool, error) {
		artist, err := track.FirstArtistID()
		if err != nil {
			return false, fmt.Errorf("track %s: %w", track.ID(), err)
		}
		if counts[artist] >= limit {
			return false, nil
		}
		counts[artist]++
		return true, nil
	})
}

var releaseLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ReleaseYear parses an album's release_date, which may carry day, month or year precision.
func ReleaseYear(album models.Item) (int, error) {
	raw, err := album.String("release_date")
	if err != nil {
		return 0, err
	}
	for _, layout := range releaseLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Year(), nil
		}
	}
	return 0, fmt.Errorf("%w: release date %q", shared.ErrInvalidInput, raw)
}

func trackAlbumID(track models.Item) (string, error) {
	id, err := track.AlbumID()
	if err != nil {
		return "", fmt.Errorf("track %s: %w", track.ID(), err)
	}
	return id, nil
}

func inYears(album models.Item, start, end int) (bool, error) {
	year, err := ReleaseYear(album)
	if err != nil {
		return false, fmt.Errorf("album %s: %w", album.ID(), err)
	}
	return start <= year && year <= end, nil
}

// FilterReleaseYear yields albums, or tracks by their album, released within [start, end].
// With invert set it yields exactly the items outside the range, including tracks whose album is unknown.
//
// Track streams cost one album lookup per 20 tracks. Streams of any other kind are rejected.
func (e *Engine) FilterReleaseYear(ctx context.Context, in *Stream, start, end int, invert bool) (*Stream, error) {
	kind, err := in.Kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case pipeline.Albums:
		return pipeline.Filter(in, func(album models.Item) (bool, error) {
			ok, err := inYears(album, start, end)
			return ok != invert, err
		}), nil
	case pipeline.Tracks:
		return pipeline.Derive(in, func(yield func(models.Item, error) bool) {
			for pair, err := range e.lookup(ctx, in.All(), models.LookupAlbums, trackAlbumID) {
				if err != nil {
					yield(nil, err)
					return
				}
				track, album := pair[0], pair[1]
				if album == nil {
					// no release date to compare, so the track is outside any range
					if invert && !yield(track, nil) {
						return
					}
					continue
				}
				ok, err := inYears(album, start, end)
				if err != nil {
					yield(nil, err)
					return
				}
				if ok != invert && !yield(track, nil) {
					return
				}
			}
		}), nil
	default:
		return nil, fmt.Errorf("%w: release year filter on %s", shared.ErrUnsupportedKind, kind)
	}
}

// FilterAddedAt yields the saved object of every library entry added within [start, end].
//
// Timestamps are compared as wall-clock times; their zones are ignored.
func FilterAddedAt(in *Stream, start, end time.Time) *Stream {
	start, end = wallClock(start), wallClock(end)
	return pipeline.Derive(in, func(yield func(models.Item, error) bool) {
		for entry, err := range in.All() {
			if err != nil {
				yield(nil, err)
				return
			}
			raw, err := entry.String("added_at")
			if err != nil {
				yield(nil, err)
				return
			}
			added, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				yield(nil, fmt.Errorf("%w: added_at %q", shared.ErrInvalidInput, raw))
				return
			}
			added = wallClock(added)
			if added.Before(start) || added.After(end) {
				continue
			}

			out := entry
			for _, key := range []string{"track", "album"} {
				if obj, err := entry.Object(key); err == nil {
					out = obj
					break
				}
			}
			if !yield(out, nil) {
				return
			}
		}
	})
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FilterTuneables enriches tracks with audio features and yields those that satisfy every tuneable.
// With invert set it yields exactly the tracks that fail at least one.
func (e *Engine) FilterTuneables(ctx context.Context, in *Stream, tuneables []Tuneable, invert bool) *Stream {
	return pipeline.Filter(e.WithAudioFeatures(ctx, in), func(track models.Item) (bool, error) {
		ok, err := Matches(track, tuneables)
		if err != nil {
			return false, fmt.Errorf("track %s: %w", track.ID(), err)
		}
		return ok != invert, nil
	})
}

// SortKey extracts a numeric sort key from a track.
type SortKey func(models.Item) (float64, error)

// ByAudioFeature sorts by an attached audio feature.
func ByAudioFeature(attr string) SortKey {
	return func(track models.Item) (float64, error) {
		features, err := track.Features()
		if err != nil {
			return 0, fmt.Errorf("track %s: %w", track.ID(), err)
		}
		return features.Float(attr)
	}
}

// ByField sorts by a numeric top-level field such as popularity.
func ByField(name string) SortKey {
	return func(item models.Item) (float64, error) { return item.Float(name) }
}

// SortTracks enriches tracks with audio features and sorts them by key.
func (e *Engine) SortTracks(ctx context.Context, in *Stream, key SortKey, order pipeline.Order) *Stream {
	return pipeline.SortBy[models.Item, float64](e.WithAudioFeatures(ctx, in), key, order)
}
