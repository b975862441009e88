package models

import "fmt"

var (
	ErrMissingField = fmt.Errorf("missing field")
	ErrFieldType    = fmt.Errorf("unexpected field type")
)

// Operation names a paginated or single-object endpoint of the remote API.
//
// Path parameters (e.g. an artist id) travel in the request params under the names listed per operation.
type Operation string

const (
	OpSavedTracks     Operation = "saved_tracks"      // GET /me/tracks
	OpSavedAlbums     Operation = "saved_albums"      // GET /me/albums
	OpFollowedArtists Operation = "followed_artists"  // GET /me/following?type=artist
	OpTopArtists      Operation = "top_artists"       // GET /me/top/artists
	OpTopTracks       Operation = "top_tracks"        // GET /me/top/tracks
	OpUserPlaylists   Operation = "user_playlists"    // GET /me/playlists
	OpPlaylistTracks  Operation = "playlist_tracks"   // GET /playlists/{playlist_id}/tracks
	OpArtistAlbums    Operation = "artist_albums"     // GET /artists/{artist_id}/albums
	OpArtistTopTracks Operation = "artist_top_tracks" // GET /artists/{artist_id}/top-tracks
	OpAlbum           Operation = "album"             // GET /albums/{album_id}
	OpTrack           Operation = "track"             // GET /tracks/{track_id}
	OpRecommendations Operation = "recommendations"   // GET /recommendations
	OpSearch          Operation = "search"            // GET /search
)

// LookupKind names a batch lookup endpoint: N ids in, N objects out, in order.
type LookupKind string

const (
	LookupAlbums        LookupKind = "albums"         // GET /albums?ids=, max 20
	LookupTracks        LookupKind = "tracks"         // GET /tracks?ids=, max 50
	LookupArtists       LookupKind = "artists"        // GET /artists?ids=, max 50
	LookupAudioFeatures LookupKind = "audio_features" // GET /audio-features?ids=, max 100
)

// BatchSize returns the remote API's maximum number of ids per lookup request.
func (k LookupKind) BatchSize() int {
	switch k {
	case LookupAlbums:
		return 20
	case LookupTracks, LookupArtists:
		return 50
	case LookupAudioFeatures:
		return 100
	default:
		return 0
	}
}
