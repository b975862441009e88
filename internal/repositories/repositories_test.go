package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "generated_playlists")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewGeneratedPlaylist(0, "Slow Evenings", "sp1", "evenings.toml", 25, false)

		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if playlist.ID() == "" {
			t.Error("playlist ID should be set after creation")
		}
		if playlist.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", playlist.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewGeneratedPlaylist(0, "Slow Evenings", "sp1", "evenings.toml", 25, true)
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		retrieved, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.Name() != "Slow Evenings" || retrieved.SpotifyID() != "sp1" || retrieved.Recipe() != "evenings.toml" {
			t.Errorf("unexpected playlist %+v", retrieved)
		}
		if retrieved.TrackCount() != 25 || !retrieved.Public() {
			t.Errorf("expected 25 public tracks, got %d (public=%v)", retrieved.TrackCount(), retrieved.Public())
		}
		if retrieved.CreatedAt().IsZero() || retrieved.DeletedAt() != nil {
			t.Errorf("unexpected timestamps: created %v, deleted %v", retrieved.CreatedAt(), retrieved.DeletedAt())
		}
	})

	t.Run("GetBySpotifyID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		first := models.NewGeneratedPlaylist(0, "Mix", "sp1", "a.toml", 10, false)
		second := models.NewGeneratedPlaylist(0, "Mix", "sp1", "a.toml", 20, false)
		for _, p := range []*models.GeneratedPlaylist{first, second} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		latest, err := repo.GetBySpotifyID("sp1")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if latest.ID() != second.ID() {
			t.Errorf("expected the most recent record, got sequence %d", latest.Sequence())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "a.toml", 10, false)
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		playlist.SetTrackCount(110)
		if err := repo.Update(playlist); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		retrieved, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.TrackCount() != 110 {
			t.Errorf("expected 110 tracks, got %d", retrieved.TrackCount())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "a.toml", 10, false)
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		if err := repo.Delete(playlist.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(playlist.ID()); err == nil {
			t.Error("expected error when getting deleted playlist")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		for _, p := range []*models.GeneratedPlaylist{
			models.NewGeneratedPlaylist(0, "One", "sp1", "a.toml", 1, false),
			models.NewGeneratedPlaylist(0, "Two", "sp2", "b.toml", 2, false),
			models.NewGeneratedPlaylist(0, "Three", "sp3", "a.toml", 3, false),
		} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"All Newest First", map[string]any{}, []string{"Three", "Two", "One"}},
			{"By Recipe", map[string]any{"recipe": "a.toml"}, []string{"Three", "One"}},
			{"By Spotify ID", map[string]any{"spotify_id": "sp2"}, []string{"Two"}},
			{"Limit", map[string]any{"limit": 2}, []string{"Three", "Two"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				playlists, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list playlists: %v", err)
				}
				if len(playlists) != len(tt.want) {
					t.Fatalf("expected %d playlists, got %d", len(tt.want), len(playlists))
				}
				for i, p := range playlists {
					if p.Name() != tt.want[i] {
						t.Errorf("position %d: expected %s, got %s", i, tt.want[i], p.Name())
					}
				}
			})
		}
	})
}

func TestResponseCache(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	newCache := func(t *testing.T) (*ResponseCache, *time.Time) {
		db := setupTestDB(t)
		t.Cleanup(func() { db.Close() })

		now := base
		cache := NewResponseCache(db)
		cache.now = func() time.Time { return now }
		return cache, &now
	}

	t.Run("Miss", func(t *testing.T) {
		cache, _ := newCache(t)

		body, ok, err := cache.Get(ctx, "https://api.spotify.com/v1/me/tracks")
		if err != nil || ok || body != nil {
			t.Errorf("expected a miss, got %q, %v, %v", body, ok, err)
		}
	})

	t.Run("Hit Until Expiry", func(t *testing.T) {
		cache, now := newCache(t)

		if err := cache.Set(ctx, "k", []byte(`{"items":[]}`), time.Hour); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		body, ok, err := cache.Get(ctx, "k")
		if err != nil || !ok || string(body) != `{"items":[]}` {
			t.Errorf("expected a hit, got %q, %v, %v", body, ok, err)
		}

		*now = base.Add(time.Hour)
		if _, ok, _ := cache.Get(ctx, "k"); ok {
			t.Error("expected the entry to expire")
		}
	})

	t.Run("Set Replaces", func(t *testing.T) {
		cache, _ := newCache(t)

		cache.Set(ctx, "k", []byte("old"), time.Hour)
		cache.Set(ctx, "k", []byte("new"), time.Hour)

		body, _, _ := cache.Get(ctx, "k")
		if string(body) != "new" {
			t.Errorf("expected the replaced body, got %q", body)
		}
	})

	t.Run("Prune And Stats", func(t *testing.T) {
		cache, now := newCache(t)

		cache.Set(ctx, "short", []byte("12345"), time.Minute)
		cache.Set(ctx, "long", []byte("123"), time.Hour)
		*now = base.Add(2 * time.Minute)

		stats, err := cache.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to read stats: %v", err)
		}
		if stats.Entries != 2 || stats.Expired != 1 || stats.Bytes != 8 {
			t.Errorf("unexpected stats %+v", stats)
		}

		removed, err := cache.Prune(ctx)
		if err != nil || removed != 1 {
			t.Errorf("expected 1 pruned entry, got %d, %v", removed, err)
		}
		if _, ok, _ := cache.Get(ctx, "long"); !ok {
			t.Error("unexpired entry should survive pruning")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		cache, _ := newCache(t)

		cache.Set(ctx, "a", []byte("1"), time.Hour)
		cache.Set(ctx, "b", []byte("2"), time.Hour)

		removed, err := cache.Clear(ctx)
		if err != nil || removed != 2 {
			t.Errorf("expected 2 cleared entries, got %d, %v", removed, err)
		}
	})
}
