package tasks

import (
	"fmt"

	"github.com/desertthunder/playlistcake/internal/models"
)

// ProgressUpdate represents a progress event during a playlist write.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveUser Phase = iota
	CreatePlaylist
	AddTracks
	Done
)

func (p Phase) String() string {
	switch p {
	case ResolveUser:
		return "resolve_user"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Done:
		return "done"
	default:
		return ""
	}
}

func resolveUserUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveUser,
		Step:    1,
		Total:   1,
		Message: "Resolving current user...",
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func createdPlaylistUpdate(pl models.Item) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name(), pl.ID()),
		Data:    pl,
	}
}

func addTracksUpdate(batch, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    batch,
		Message: fmt.Sprintf("[batch %d] %d tracks added", batch, added),
		Data:    added,
	}
}

func doneUpdate(playlistID string, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %d tracks written to %s", added, playlistID),
		Data:    added,
	}
}
