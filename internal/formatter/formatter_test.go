package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

func sampleTracks() []models.Item {
	return []models.Item{
		{
			"id":      "track1",
			"name":    "Song One",
			"artists": []any{map[string]any{"id": "a1", "name": "Artist One"}, map[string]any{"id": "a2", "name": "Guest"}},
			"album":   map[string]any{"id": "al1", "name": "Album One"},
		},
		{
			"id":      "track2",
			"name":    "Song, Two",
			"artists": []any{map[string]any{"id": "a3", "name": "Artist Two"}},
			"album":   map[string]any{"id": "al2", "name": "Album Two"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", Text},
		{"text", Text},
		{"MD", Markdown},
		{"markdown", Markdown},
		{"csv", CSV},
		{"json", JSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRowOf(t *testing.T) {
	tests := []struct {
		name string
		kind pipeline.Kind
		item models.Item
		want Row
	}{
		{
			name: "Track",
			kind: pipeline.Tracks,
			item: sampleTracks()[0],
			want: Row{Name: "Song One", Artists: "Artist One, Guest", Detail: "Album One", ID: "track1"},
		},
		{
			name: "Album",
			kind: pipeline.Albums,
			item: models.Item{"id": "al1", "name": "Album", "release_date": "1999-04", "artists": []any{map[string]any{"name": "X"}}},
			want: Row{Name: "Album", Artists: "X", Detail: "1999-04", ID: "al1"},
		},
		{
			name: "Artist",
			kind: pipeline.Artists,
			item: models.Item{"id": "a1", "name": "Low", "genres": []any{"slowcore", "indie"}},
			want: Row{Name: "Low", Detail: "slowcore, indie", ID: "a1"},
		},
		{
			name: "Playlist Owner Fallback",
			kind: pipeline.Playlists,
			item: models.Item{"id": "p1", "name": "Mix", "owner": map[string]any{"id": "u1"}},
			want: Row{Name: "Mix", Detail: "u1", ID: "p1"},
		},
		{
			name: "Bare Ref",
			kind: pipeline.Tracks,
			item: models.Ref("t9"),
			want: Row{ID: "t9"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RowOf(tt.kind, tt.item); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestItemsCSV(t *testing.T) {
	data, err := ItemsCSV(pipeline.Tracks, sampleTracks())
	if err != nil {
		t.Fatalf("ItemsCSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "#,Name,Artists,Album,ID" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[2][1] != "Song, Two" {
		t.Errorf("expected quoted comma to survive, got %q", records[2][1])
	}
}

func TestItemsMarkdown(t *testing.T) {
	output := string(ItemsMarkdown("Slow Evenings", pipeline.Tracks, sampleTracks()))

	for _, want := range []string{
		"# Slow Evenings",
		"**Tracks**: 2",
		"1. Artist One, Guest - Song One (Album One)",
		"2. Artist Two - Song, Two (Album Two)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("markdown missing %q:\n%s", want, output)
		}
	}

	untyped := string(ItemsMarkdown("", pipeline.Untyped, nil))
	if !strings.Contains(untyped, "**Items**: 0") || strings.Contains(untyped, "#") {
		t.Errorf("unexpected untyped markdown %q", untyped)
	}
}

func TestItemsJSON(t *testing.T) {
	data, err := ItemsJSON(sampleTracks())
	if err != nil {
		t.Fatalf("ItemsJSON failed: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0]["id"] != "track1" {
		t.Errorf("unexpected decoded items %v", decoded)
	}

	empty, _ := ItemsJSON(nil)
	if strings.TrimSpace(string(empty)) != "[]" {
		t.Errorf("expected an empty array, got %q", empty)
	}
}

func TestItemsTable(t *testing.T) {
	output := ItemsTable("Top Tracks", pipeline.Tracks, sampleTracks())

	for _, want := range []string{"Top Tracks", "Album", "Song One", "Artist Two", "track2", "2 tracks"} {
		if !strings.Contains(output, want) {
			t.Errorf("table missing %q:\n%s", want, output)
		}
	}
}

func TestWrite(t *testing.T) {
	for _, f := range []Format{Text, Markdown, CSV, JSON} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, f, "Mix", pipeline.Tracks, sampleTracks()); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if !strings.Contains(buf.String(), "track1") {
				t.Errorf("output missing track id:\n%s", buf.String())
			}
		})
	}

	if err := Write(&bytes.Buffer{}, Format("xml"), "", pipeline.Tracks, nil); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestHistoryTable(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if out := HistoryTable(nil); !strings.Contains(out, "No playlists") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Rows", func(t *testing.T) {
		created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
		p := models.RestoreGeneratedPlaylist("id1", 7, "Slow Evenings", "sp1", "evenings.toml", 42, true, created, created, nil)

		out := HistoryTable([]*models.GeneratedPlaylist{p})
		for _, want := range []string{"Slow Evenings", "42", "public", "evenings.toml", "2025-03-01 12:00", "sp1"} {
			if !strings.Contains(out, want) {
				t.Errorf("history missing %q:\n%s", want, out)
			}
		}
	})
}

func TestStatusMessages(t *testing.T) {
	if out := Success("added %d tracks", 3); !strings.Contains(out, "added 3 tracks") {
		t.Errorf("unexpected success message %q", out)
	}
	if out := Warning("could not open %s", "browser"); !strings.Contains(out, "could not open browser") {
		t.Errorf("unexpected warning message %q", out)
	}
}
