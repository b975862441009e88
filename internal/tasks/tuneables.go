package tasks

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/samber/lo"
)

// Margins holds the tolerance of a target_ tuneable per attribute.
// Attributes missing here are not tuneable.
var Margins = map[string]float64{
	"acousticness":     0.1,
	"danceability":     0.1,
	"duration_ms":      10000,
	"energy":           0.1,
	"instrumentalness": 0.1,
	"key":              0,
	"liveness":         0.1,
	"loudness":         1,
	"mode":             0,
	"popularity":       5,
	"speechiness":      0.1,
	"tempo":            8,
	"time_signature":   0,
	"valence":          0.1,
}

// Bound is the comparison a tuneable applies.
type Bound string

const (
	Min    Bound = "min"
	Max    Bound = "max"
	Target Bound = "target"
)

// Tuneable constrains one track attribute, e.g. target_energy=0.8.
type Tuneable struct {
	Bound     Bound
	Attribute string
	Value     float64
}

// ParseTuneable splits a min_, max_ or target_ key.
//
// The attribute name is not checked here; an unknown attribute fails when a track is matched against it.
func ParseTuneable(key string, value float64) (Tuneable, error) {
	for _, b := range []Bound{Min, Max, Target} {
		if attr, ok := strings.CutPrefix(key, string(b)+"_"); ok && attr != "" {
			return Tuneable{Bound: b, Attribute: attr, Value: value}, nil
		}
	}
	return Tuneable{}, fmt.Errorf("%w: tuneable %q needs a min_, max_ or target_ prefix", shared.ErrInvalidArgument, key)
}

// ParseTuneables parses a key/value set in key order.
func ParseTuneables(values map[string]float64) ([]Tuneable, error) {
	keys := lo.Keys(values)
	slices.Sort(keys)

	tuneables := make([]Tuneable, 0, len(keys))
	for _, key := range keys {
		t, err := ParseTuneable(key, values[key])
		if err != nil {
			return nil, err
		}
		tuneables = append(tuneables, t)
	}
	return tuneables, nil
}

// Key renders the tuneable as the remote API's parameter name.
func (t Tuneable) Key() string {
	return string(t.Bound) + "_" + t.Attribute
}

func (t Tuneable) String() string {
	return t.Key() + "=" + strconv.FormatFloat(t.Value, 'f', -1, 64)
}

// Match reports whether track satisfies the tuneable.
//
// Popularity is read from the track itself; every other attribute from its attached audio features.
// A track missing the value fails the tuneable, whether its audio features or just the attribute are absent.
// A value of the wrong type is an error.
func (t Tuneable) Match(track models.Item) (bool, error) {
	margin, ok := Margins[t.Attribute]
	if !ok {
		return false, fmt.Errorf("%w: %q", shared.ErrUnknownAttribute, t.Attribute)
	}

	v, err := t.value(track)
	if errors.Is(err, models.ErrMissingField) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch t.Bound {
	case Min:
		return v >= t.Value, nil
	case Max:
		return v <= t.Value, nil
	case Target:
		return t.Value-margin <= v && v <= t.Value+margin, nil
	default:
		return false, fmt.Errorf("%w: bound %q", shared.ErrInvalidArgument, t.Bound)
	}
}

// value reads the attribute from the track for popularity and from its audio features otherwise.
func (t Tuneable) value(track models.Item) (float64, error) {
	if strings.HasSuffix(t.Attribute, "popularity") {
		return track.Float(t.Attribute)
	}
	features, err := track.Features()
	if err != nil {
		return 0, err
	}
	return features.Float(t.Attribute)
}

// Matches reports whether track satisfies every tuneable.
func Matches(track models.Item, tuneables []Tuneable) (bool, error) {
	for _, t := range tuneables {
		ok, err := t.Match(track)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// setParams adds tuneables to recommendation request parameters.
func setParams(params url.Values, tuneables []Tuneable) {
	for _, t := range tuneables {
		params.Set(t.Key(), strconv.FormatFloat(t.Value, 'f', -1, 64))
	}
}

// TuneablesFromFeatures turns an audio-feature object into target_ tuneables, one per attribute.
// With no attributes given, every tuneable attribute present in features is used.
func TuneablesFromFeatures(features models.Item, attrs ...string) ([]Tuneable, error) {
	if len(attrs) == 0 {
		attrs = lo.Filter(lo.Keys(Margins), func(attr string, _ int) bool { return features.Has(attr) })
	}
	attrs = slices.Sorted(slices.Values(attrs))

	tuneables := make([]Tuneable, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := Margins[attr]; !ok {
			return nil, fmt.Errorf("%w: %q", shared.ErrUnknownAttribute, attr)
		}
		v, err := features.Float(attr)
		if err != nil {
			return nil, err
		}
		tuneables = append(tuneables, Tuneable{Bound: Target, Attribute: attr, Value: v})
	}
	return tuneables, nil
}
