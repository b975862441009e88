package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	tu "github.com/desertthunder/playlistcake/internal/testing"
)

const slowEvenings = `
name = "Slow evenings"
public = true

[source]
type = "top_artists"
time_range = "short_term"
max_results = 3

[[stages]]
type = "recommendations"
seed_size = 2
max_per_seed = 2
[stages.tuneables]
max_energy = 0.4

[[stages]]
type = "artist_variety"
limit = 1
`

func TestParseRecipe(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		r, err := ParseRecipe([]byte(slowEvenings))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Name != "Slow evenings" || !r.Public || r.Source.Type != "top_artists" || r.Source.MaxResults != 3 {
			t.Errorf("unexpected recipe %+v", r)
		}
		if len(r.Stages) != 2 || r.Stages[0].Tuneables["max_energy"] != 0.4 || r.Stages[1].Limit != 1 {
			t.Errorf("unexpected stages %+v", r.Stages)
		}
	})

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "Unknown Key", data: "[source]\ntype = \"saved_tracks\"\ncolour = \"red\"\n", wantErr: shared.ErrInvalidInput},
		{name: "No Source", data: "name = \"x\"\n", wantErr: shared.ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecipe([]byte(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("Syntax Error", func(t *testing.T) {
		if _, err := ParseRecipe([]byte("[source\n")); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("LoadRecipe", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recipe.toml")
		if err := os.WriteFile(path, []byte(slowEvenings), 0644); err != nil {
			t.Fatal(err)
		}
		if r, err := LoadRecipe(path); err != nil || r.Name != "Slow evenings" {
			t.Errorf("got %+v, %v", r, err)
		}
		if _, err := LoadRecipe(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Top Artists To Recommendations", func(t *testing.T) {
		client := tu.NewFakeClient().
			Script(tu.PageKey(models.OpTopArtists, ""), tu.Page("", models.Refs("a1", "a2", "a3")...)).
			Script(tu.PageKey(models.OpRecommendations, ""), rawPage("tracks", track("r1", "x"), track("r2", "x")))

		r, err := ParseRecipe([]byte(slowEvenings))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, err := newEngine(client).Build(ctx, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(t, s); !slices.Equal(got, []string{"r1"}) {
			t.Errorf("got %v, want [r1]", got)
		}

		if n := client.FetchesOf(models.OpRecommendations); n != 2 {
			t.Fatalf("expected 2 recommendation requests, got %d", n)
		}
		p := client.Fetches[1].Params
		if p.Get("seed_artists") != "a1,a2" || p.Get("max_energy") != "0.4" || p.Get("limit") != "2" {
			t.Errorf("unexpected params %v", p)
		}
	})

	t.Run("Library Filters", func(t *testing.T) {
		key := tu.PageKey(models.OpSavedAlbums, "")
		client := tu.NewFakeClient().Script(key, tu.Page("",
			models.Item{"added_at": "2019-05-01T00:00:00Z", "album": album("a", "1985")},
			models.Item{"added_at": "2023-05-01T00:00:00Z", "album": album("b", "1987")},
			models.Item{"added_at": "2023-06-01T00:00:00Z", "album": album("c", "2015")},
		))
		r := &Recipe{
			Source: SourceSpec{Type: "saved_albums"},
			Stages: []StageSpec{
				{Type: "added_at", After: "2020-01-01"},
				{Type: "release_year", Start: 1980, End: 1990},
			},
		}

		s, err := newEngine(client).Build(ctx, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(t, s); !slices.Equal(got, []string{"b"}) {
			t.Errorf("got %v, want [b]", got)
		}
	})

	t.Run("Sort By Field", func(t *testing.T) {
		r := &Recipe{
			Source: SourceSpec{Type: "tracks", IDs: []string{"1", "2", "3"}},
			Stages: []StageSpec{{Type: "sort", By: "popularity", Order: "desc"}, {Type: "take", Count: 2}},
		}
		client := tu.NewFakeClient().Store(models.LookupTracks,
			models.Item{"id": "1", "popularity": 10.0},
			models.Item{"id": "2", "popularity": 70.0},
			models.Item{"id": "3", "popularity": 40.0},
		)
		s, err := newEngine(client).Build(ctx, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(t, s); !slices.Equal(got, []string{"2", "3"}) {
			t.Errorf("got %v, want [2 3]", got)
		}
	})

	t.Run("Sample Keeps Kind", func(t *testing.T) {
		r := &Recipe{
			Source: SourceSpec{Type: "playlists", IDs: []string{"p1", "p2", "p3"}},
			Stages: []StageSpec{{Type: "sample", Count: 2}},
		}
		s, err := newEngine(tu.NewFakeClient()).Build(ctx, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if k, _ := s.Kind(); k != pipeline.Playlists {
			t.Errorf("expected kind %q, got %q", pipeline.Playlists, k)
		}
		if got := idsOf(t, s); len(got) != 2 {
			t.Errorf("expected 2 playlists, got %v", got)
		}
	})

	errorTests := []struct {
		name    string
		recipe  Recipe
		wantErr error
	}{
		{
			name:    "Unknown Source",
			recipe:  Recipe{Source: SourceSpec{Type: "radio"}},
			wantErr: shared.ErrInvalidArgument,
		},
		{
			name:    "Missing Ids",
			recipe:  Recipe{Source: SourceSpec{Type: "albums"}},
			wantErr: shared.ErrMissingArgument,
		},
		{
			name:    "Unknown Stage",
			recipe:  Recipe{Source: SourceSpec{Type: "saved_tracks"}, Stages: []StageSpec{{Type: "explode"}}},
			wantErr: shared.ErrInvalidArgument,
		},
		{
			name:    "Bad Tuneable",
			recipe:  Recipe{Source: SourceSpec{Type: "saved_tracks"}, Stages: []StageSpec{{Type: "tuneables", Tuneables: map[string]float64{"energy": 1}}}},
			wantErr: shared.ErrInvalidArgument,
		},
		{
			name:    "Bad Seed Size",
			recipe:  Recipe{Source: SourceSpec{Type: "top_artists"}, Stages: []StageSpec{{Type: "recommendations", SeedSize: 9}}},
			wantErr: shared.ErrInvalidSeedSize,
		},
		{
			name:    "Release Year On Artists",
			recipe:  Recipe{Source: SourceSpec{Type: "followed_artists"}, Stages: []StageSpec{{Type: "release_year", Start: 1990}}},
			wantErr: shared.ErrUnsupportedKind,
		},
		{
			name:    "Bad Time",
			recipe:  Recipe{Source: SourceSpec{Type: "saved_tracks"}, Stages: []StageSpec{{Type: "added_at", After: "yesterday"}}},
			wantErr: shared.ErrInvalidArgument,
		},
		{
			name:    "Bad Sort Order",
			recipe:  Recipe{Source: SourceSpec{Type: "saved_tracks"}, Stages: []StageSpec{{Type: "sort", By: "tempo", Order: "sideways"}}},
			wantErr: shared.ErrInvalidArgument,
		},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newEngine(tu.NewFakeClient()).Build(ctx, &tt.recipe); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
