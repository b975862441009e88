package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
)

// AddBatchSize is the most tracks the remote API accepts per append request.
const AddBatchSize = 100

// WriteOpts selects the playlist a stream is written to.
type WriteOpts struct {
	PlaylistID string // append to this playlist; when empty a new one named Name is created
	Name       string
	Public     bool
}

// WriteResult describes a finished playlist write.
type WriteResult struct {
	Playlist models.Item // the target playlist; only the id is set when appending to an existing one
	Added    int         // tracks appended
}

// CreatePlaylist creates an empty playlist owned by the current user.
func (e *Engine) CreatePlaylist(ctx context.Context, progress chan<- ProgressUpdate, name string, public bool) (models.Item, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, resolveUserUpdate())
	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve current user: %w", shared.ErrAPIRequest, err)
	}

	e.sendProgress(progress, createPlaylistUpdate(name))
	pl, err := e.client.CreatePlaylist(ctx, user.ID(), name, public)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create playlist: %w", shared.ErrAPIRequest, err)
	}
	e.sendProgress(progress, createdPlaylistUpdate(pl))
	return pl, nil
}

// AddToPlaylist appends every track of the stream to a playlist, [AddBatchSize] tracks per request.
//
// Tracks are appended as they arrive; an error from the stream leaves earlier batches in place.
func (e *Engine) AddToPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, tracks *Stream) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	added, batch := 0, 0
	for chunk, err := range pipeline.Chunk(tracks.All(), AddBatchSize) {
		if err != nil {
			return added, err
		}
		batch++

		ids := itemIDs(chunk)
		e.logger.Debug("add tracks", "playlist", playlistID, "batch", batch, "tracks", len(ids))
		if err := e.client.AddToPlaylist(ctx, playlistID, ids); err != nil {
			return added, fmt.Errorf("%w: failed to add tracks: %w", shared.ErrAPIRequest, err)
		}
		added += len(ids)
		e.sendProgress(progress, addTracksUpdate(batch, added))
	}
	e.sendProgress(progress, doneUpdate(playlistID, added))
	return added, nil
}

// WritePlaylist writes tracks to the playlist opts selects, creating it first when needed.
func (e *Engine) WritePlaylist(ctx context.Context, progress chan<- ProgressUpdate, opts WriteOpts, tracks *Stream) (*WriteResult, error) {
	result := &WriteResult{Playlist: models.Ref(opts.PlaylistID)}
	if opts.PlaylistID == "" {
		pl, err := e.CreatePlaylist(ctx, progress, opts.Name, opts.Public)
		if err != nil {
			return nil, err
		}
		result.Playlist = pl
	}

	added, err := e.AddToPlaylist(ctx, progress, result.Playlist.ID(), tracks)
	result.Added = added
	if err != nil {
		return result, err
	}
	return result, nil
}
