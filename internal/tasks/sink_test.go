package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	tu "github.com/desertthunder/playlistcake/internal/testing"
)

func manyTracks(n int) *Stream {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Ref(fmt.Sprintf("t%03d", i))
	}
	return pipeline.FromSlice(pipeline.Tracks, items...)
}

func TestWritePlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates And Appends In Batches", func(t *testing.T) {
		client := tu.NewFakeClient()
		progress := make(chan ProgressUpdate, 20)

		result, err := newEngine(client).WritePlaylist(ctx, progress, WriteOpts{Name: "Mix", Public: true}, manyTracks(230))
		close(progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Added != 230 || result.Playlist.ID() != "pl-1" {
			t.Errorf("unexpected result %+v", result)
		}
		if client.AddCalls != 3 || len(client.Added["pl-1"]) != 230 {
			t.Errorf("expected 230 tracks over 3 requests, got %d over %d", len(client.Added["pl-1"]), client.AddCalls)
		}
		if client.Added["pl-1"][229] != "t229" {
			t.Errorf("tracks out of order: last is %q", client.Added["pl-1"][229])
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{ResolveUser, CreatePlaylist, CreatePlaylist, AddTracks, AddTracks, AddTracks, Done}
		if fmt.Sprint(phases) != fmt.Sprint(want) {
			t.Errorf("got phases %v, want %v", phases, want)
		}
	})

	t.Run("Appends To Existing Playlist", func(t *testing.T) {
		client := tu.NewFakeClient()
		result, err := newEngine(client).WritePlaylist(ctx, nil, WriteOpts{PlaylistID: "existing"}, manyTracks(5))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.Created) != 0 || len(client.Added["existing"]) != 5 || result.Added != 5 {
			t.Errorf("unexpected writes: created %d, added %v", len(client.Created), client.Added)
		}
	})

	t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		if _, err := newEngine(tu.NewFakeClient()).WritePlaylist(ctx, progress, WriteOpts{Name: "Mix"}, manyTracks(3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Missing Name", func(t *testing.T) {
		_, err := newEngine(tu.NewFakeClient()).WritePlaylist(ctx, nil, WriteOpts{}, manyTracks(1))
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Stream Error Keeps Earlier Batches", func(t *testing.T) {
		client := tu.NewFakeClient()
		boom := errors.New("boom")
		in := pipeline.Concat(pipeline.Tracks, manyTracks(150), pipeline.Fail[models.Item](pipeline.Tracks, boom))

		added, err := newEngine(client).AddToPlaylist(ctx, nil, "p", in)
		if !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
		if added != 100 || len(client.Added["p"]) != 100 {
			t.Errorf("expected the first batch to be written, got %d", added)
		}
	})

	t.Run("Add Error", func(t *testing.T) {
		client := tu.NewFakeClient()
		client.Err = errors.New("forbidden")
		_, err := newEngine(client).AddToPlaylist(ctx, nil, "p", manyTracks(1))
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Remote Errors Stay Inspectable", func(t *testing.T) {
		client := tu.NewFakeClient()
		client.Err = context.DeadlineExceeded
		engine := newEngine(client)

		_, addErr := engine.AddToPlaylist(ctx, nil, "p", manyTracks(1))
		_, writeErr := engine.WritePlaylist(ctx, nil, WriteOpts{Name: "Mix"}, manyTracks(1))
		for name, err := range map[string]error{"add": addErr, "create": writeErr} {
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("%s: expected ErrAPIRequest, got %v", name, err)
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("%s: expected the deadline error to be wrapped, got %v", name, err)
			}
		}
	})
}

func TestPhase(t *testing.T) {
	tests := map[Phase]string{
		ResolveUser:    "resolve_user",
		CreatePlaylist: "create_playlist",
		AddTracks:      "add_tracks",
		Done:           "done",
		Phase(99):      "",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
