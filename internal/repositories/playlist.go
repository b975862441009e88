package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/shared"
)

const playlistColumns = `id, sequence, name, spotify_id, recipe, track_count, public, created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.GeneratedPlaylist], the history of
// playlists written by recipe runs.
type PlaylistRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.GeneratedPlaylist] = (*PlaylistRepository)(nil)

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist record with a generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.GeneratedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "generated_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO generated_playlists (id, sequence, name, spotify_id, recipe, track_count, public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.Name(),
		playlist.SpotifyID(),
		playlist.Recipe(),
		playlist.TrackCount(),
		playlist.Public(),
		playlist.CreatedAt().UTC(),
		playlist.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.SetID(id)
	playlist.SetSequence(sequence)
	return nil
}

// Get retrieves a playlist record by ID, excluding soft-deleted records
func (r *PlaylistRepository) Get(id string) (*models.GeneratedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM generated_playlists WHERE id = ? AND deleted_at IS NULL`
	return scanPlaylist(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves the most recent record for a Spotify playlist
func (r *PlaylistRepository) GetBySpotifyID(spotifyID string) (*models.GeneratedPlaylist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM generated_playlists
		WHERE spotify_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`
	return scanPlaylist(r.db.QueryRow(query, spotifyID))
}

// Update stores the name, track count and visibility of an existing record
func (r *PlaylistRepository) Update(playlist *models.GeneratedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE generated_playlists
		SET name = ?, track_count = ?, public = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, playlist.Name(), playlist.TrackCount(), playlist.Public(), now.UTC(), playlist.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := expectRow(result, playlist.ID()); err != nil {
		return err
	}

	playlist.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a playlist record by ID. The Spotify playlist is left alone.
func (r *PlaylistRepository) Delete(id string) error {
	query := `UPDATE generated_playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves records matching the given criteria, newest first.
//
// Supported criteria: "recipe" (string), "spotify_id" (string) and "limit" (int).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.GeneratedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM generated_playlists WHERE deleted_at IS NULL`
	args := []any{}

	if recipe, ok := criteria["recipe"].(string); ok && recipe != "" {
		query += " AND recipe = ?"
		args = append(args, recipe)
	}
	if spotifyID, ok := criteria["spotify_id"].(string); ok && spotifyID != "" {
		query += " AND spotify_id = ?"
		args = append(args, spotifyID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.GeneratedPlaylist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row scanner) (*models.GeneratedPlaylist, error) {
	var (
		id         string
		sequence   int
		name       string
		spotifyID  string
		recipe     string
		trackCount int
		public     bool
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &spotifyID, &recipe, &trackCount, &public, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestoreGeneratedPlaylist(id, sequence, name, spotifyID, recipe, trackCount, public, createdAt, updatedAt, deleted), nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %s (or already deleted)", shared.ErrNotFound, id)
	}
	return nil
}
