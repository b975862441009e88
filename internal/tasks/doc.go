// Package tasks builds playlist pipelines on top of the Spotify Web API.
//
// # Stages
//
// Every stage takes and returns a [Stream], a lazy sequence of [models.Item] tagged with the
// kind of object it yields. Stages fall into three groups:
//
//  1. Sources fetch from the remote API through [Engine]: the saved library, followed and top
//     artists, top tracks, playlists, recommendations and batch lookups.
//  2. Filters and transforms reshape a stream: [Unique], [ArtistVariety], [FilterAddedAt],
//     [Engine.FilterReleaseYear], [Engine.FilterTuneables], [Engine.SortTracks], plus the generic
//     stages of the pipeline package (take, shuffle, sample).
//  3. Sinks write a stream back: [Engine.CreatePlaylist], [Engine.AddToPlaylist] and
//     [Engine.WritePlaylist].
//
// Batch lookups group their input so each request stays under the remote API's id limit
// (20 albums, 50 tracks or artists, 100 audio features) and re-emit results in input order.
//
// # Recipes
//
// A [Recipe] is the TOML form of a pipeline: one source and a list of stages, compiled by
// [Engine.Build].
//
//	name = "Slow evenings"
//
//	[source]
//	type = "top_artists"
//	time_range = "short_term"
//	max_results = 10
//
//	[[stages]]
//	type = "recommendations"
//	seed_size = 2
//	[stages.tuneables]
//	max_energy = 0.4
//
//	[[stages]]
//	type = "artist_variety"
//	limit = 2
//
// # Progress Reporting
//
// Sinks report progress on an optional channel. Updates use select with default so a slow
// reader never blocks a write.
package tasks
