package models

import (
	"fmt"
)

// FeaturesKey is the reserved field under which audio-feature data is attached to a track.
const FeaturesKey = "audio_features"

// Item is a decoded JSON object returned by the Spotify Web API: a track, album, artist,
// playlist or library entry (an object wrapping a track or album with an added_at timestamp).
//
// Items are treated as read-only, with one exception: [Item.SetFeatures] attaches audio features to a track.
type Item map[string]any

// Ref returns an Item that carries only an id.
//
// Stages that accept items accept refs too; only the id is read from them.
func Ref(id string) Item {
	return Item{"id": id}
}

// Refs maps ids to [Ref] items.
func Refs(ids ...string) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Ref(id)
	}
	return items
}

// ID returns the item's id field, or "" when absent.
func (i Item) ID() string {
	s, _ := i["id"].(string)
	return s
}

// URI returns the item's uri field, or "" when absent.
func (i Item) URI() string {
	s, _ := i["uri"].(string)
	return s
}

// Name returns the item's name field, or "" when absent.
func (i Item) Name() string {
	s, _ := i["name"].(string)
	return s
}

// Has reports whether the field is present.
func (i Item) Has(key string) bool {
	_, ok := i[key]
	return ok
}

// String returns a string field or an error when it is missing or not a string.
func (i Item) String(key string) (string, error) {
	v, ok := i[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, not a string", ErrFieldType, key, v)
	}
	return s, nil
}

// Float returns a numeric field as float64.
//
// JSON numbers decode to float64; ints are accepted for items built in code.
func (i Item) Float(key string) (float64, error) {
	v, ok := i[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, not a number", ErrFieldType, key, v)
	}
}

// Object returns a nested object field.
func (i Item) Object(key string) (Item, error) {
	v, ok := i[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	switch o := v.(type) {
	case Item:
		return o, nil
	case map[string]any:
		return Item(o), nil
	default:
		return nil, fmt.Errorf("%w: %q is %T, not an object", ErrFieldType, key, v)
	}
}

// Objects returns a nested array of objects.
func (i Item) Objects(key string) ([]Item, error) {
	v, ok := i[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	switch arr := v.(type) {
	case []Item:
		return arr, nil
	case []any:
		items := make([]Item, 0, len(arr))
		for n, el := range arr {
			switch o := el.(type) {
			case Item:
				items = append(items, o)
			case map[string]any:
				items = append(items, Item(o))
			default:
				return nil, fmt.Errorf("%w: %q[%d] is %T, not an object", ErrFieldType, key, n, el)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: %q is %T, not an array", ErrFieldType, key, v)
	}
}

// FirstArtistID returns the id of the first listed artist of a track or album.
func (i Item) FirstArtistID() (string, error) {
	artists, err := i.Objects("artists")
	if err != nil {
		return "", err
	}
	if len(artists) == 0 {
		return "", fmt.Errorf("%w: %q is empty", ErrMissingField, "artists")
	}
	return artists[0].ID(), nil
}

// AlbumID returns the id of a track's album.
func (i Item) AlbumID() (string, error) {
	album, err := i.Object("album")
	if err != nil {
		return "", err
	}
	return album.ID(), nil
}

// Features returns the audio features attached by [Item.SetFeatures].
func (i Item) Features() (Item, error) {
	return i.Object(FeaturesKey)
}

// SetFeatures attaches audio features to the item in place.
func (i Item) SetFeatures(features Item) {
	i[FeaturesKey] = features
}
