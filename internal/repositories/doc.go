// Package repositories implements SQLite persistence for playlistcake.
//
// Key Implementations:
//   - [PlaylistRepository] : history of playlists written by `cake build`, with soft deletes
//   - [ResponseCache] : TTL cache of Spotify GET responses, plugged into the Spotify service
//
// Sequence numbers give history records a stable, human-readable order independent of UUIDs.
// [NextSequence] atomically increments per-table counters kept in dedicated sequence tables.
package repositories
