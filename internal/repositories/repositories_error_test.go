package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/shared"
)

func TestPlaylistRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			if err := repo.Create(models.NewGeneratedPlaylist(0, "", "sp1", "", 0, false)); err == nil {
				t.Fatal("expected validation error for empty name")
			}
			if err := repo.Create(models.NewGeneratedPlaylist(0, "Mix", "", "", 0, false)); err == nil {
				t.Fatal("expected validation error for empty spotify id")
			}
		})

		t.Run("ValidationDoesNotConsumeSequence", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			repo.Create(models.NewGeneratedPlaylist(0, "", "sp1", "", 0, false))

			playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "", 0, false)
			if err := repo.Create(playlist); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			if playlist.Sequence() != 1 {
				t.Errorf("expected sequence 1, got %d", playlist.Sequence())
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := repo.GetBySpotifyID("nonexistent"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "", 0, false)
			playlist.SetID("nonexistent-id")

			if err := repo.Update(playlist); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("Deleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "", 0, false)
			if err := repo.Create(playlist); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			if err := repo.Delete(playlist.ID()); err != nil {
				t.Fatalf("failed to delete playlist: %v", err)
			}

			if err := repo.Update(playlist); err == nil {
				t.Fatal("expected error when updating deleted playlist")
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "", 0, false)
			if err := repo.Create(playlist); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			playlist.SetTrackCount(-1)

			if err := repo.Update(playlist); err == nil {
				t.Fatal("expected validation error for negative track count")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("Twice", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewGeneratedPlaylist(0, "Mix", "sp1", "", 0, false)
			if err := repo.Create(playlist); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
			if err := repo.Delete(playlist.ID()); err != nil {
				t.Fatalf("failed to delete playlist: %v", err)
			}
			if err := repo.Delete(playlist.ID()); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		if _, err := NewPlaylistRepository(db).List(nil); err == nil {
			t.Error("expected error listing from a closed database")
		}
		cache := NewResponseCache(db)
		if _, _, err := cache.Get(context.Background(), "k"); err == nil {
			t.Error("expected error reading from a closed database")
		}
		if err := cache.Set(context.Background(), "k", nil, time.Hour); err == nil {
			t.Error("expected error writing to a closed database")
		}
	})
}
