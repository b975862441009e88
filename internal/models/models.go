// package models defines the data model for the playlist builder
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// GeneratedPlaylist records a playlist written to Spotify by a recipe run.
type GeneratedPlaylist struct {
	id         string
	sequence   int
	name       string
	spotifyID  string
	recipe     string
	trackCount int
	public     bool
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

var _ Model = (*GeneratedPlaylist)(nil)

// NewGeneratedPlaylist creates a [GeneratedPlaylist] with timestamps set to now.
func NewGeneratedPlaylist(sequence int, name, spotifyID, recipe string, trackCount int, public bool) *GeneratedPlaylist {
	now := time.Now()
	return &GeneratedPlaylist{
		sequence:   sequence,
		name:       name,
		spotifyID:  spotifyID,
		recipe:     recipe,
		trackCount: trackCount,
		public:     public,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreGeneratedPlaylist rebuilds a [GeneratedPlaylist] from stored columns.
func RestoreGeneratedPlaylist(id string, sequence int, name, spotifyID, recipe string, trackCount int, public bool, createdAt, updatedAt time.Time, deletedAt *time.Time) *GeneratedPlaylist {
	return &GeneratedPlaylist{
		id:         id,
		sequence:   sequence,
		name:       name,
		spotifyID:  spotifyID,
		recipe:     recipe,
		trackCount: trackCount,
		public:     public,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		deletedAt:  deletedAt,
	}
}

func (p *GeneratedPlaylist) ID() string            { return p.id }
func (p *GeneratedPlaylist) Sequence() int         { return p.sequence }
func (p *GeneratedPlaylist) Name() string          { return p.name }
func (p *GeneratedPlaylist) SpotifyID() string     { return p.spotifyID }
func (p *GeneratedPlaylist) Recipe() string        { return p.recipe }
func (p *GeneratedPlaylist) TrackCount() int       { return p.trackCount }
func (p *GeneratedPlaylist) Public() bool          { return p.public }
func (p *GeneratedPlaylist) CreatedAt() time.Time  { return p.createdAt }
func (p *GeneratedPlaylist) UpdatedAt() time.Time  { return p.updatedAt }
func (p *GeneratedPlaylist) DeletedAt() *time.Time { return p.deletedAt }

func (p *GeneratedPlaylist) SetID(id string)           { p.id = id }
func (p *GeneratedPlaylist) SetSequence(seq int)       { p.sequence = seq }
func (p *GeneratedPlaylist) SetTrackCount(n int)       { p.trackCount = n }
func (p *GeneratedPlaylist) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *GeneratedPlaylist) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks required fields.
func (p *GeneratedPlaylist) Validate() error {
	if strings.TrimSpace(p.name) == "" {
		return fmt.Errorf("name is required")
	}
	if p.spotifyID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if p.trackCount < 0 {
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}
