// Package models defines the values that flow through playlist pipelines and the persisted records kept by the CLI.
//
// The package contains two categories of types:
//
// 1. Remote objects: decoded Spotify Web API JSON
//   - [Item] : a track, album, artist, playlist or library entry, addressed by field name
//   - [Operation] : a named paginated endpoint
//   - [LookupKind] : a named batch lookup endpoint with its batch size
//
// 2. Persistent Entities: Database-backed models
//   - [GeneratedPlaylist] : a playlist written by a recipe run
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
