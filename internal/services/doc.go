// Package services implements the remote side of the pipeline engine for the Spotify Web API.
//
// # Reads
//
// [SpotifyService.FetchPage], [SpotifyService.FetchCursor] and [SpotifyService.Lookup] issue raw GET
// requests and hand the response body to the engine unparsed; the engine pulls items and next-page
// cursors out of it with gjson paths. GET responses can be stored in a [Cache] for a configured TTL.
//
// # Writes
//
// Playlist creation, track insertion and the user profile go through the typed zmb3/spotify client,
// sharing the same authenticated HTTP client.
//
// # Authentication
//
// The service uses OAuth2 authorization code flow. [SpotifyService.AuthURL] and [SpotifyService.Exchange]
// drive the login; [SpotifyService.SetToken] installs a stored token. Expired access tokens are
// refreshed on first use and reported to SpotifyOpts.OnTokenRefresh so they can be persisted.
//
// # Errors
//
// Response statuses map onto sentinels from the shared package:
//   - 401: [shared.ErrNotAuthenticated]
//   - 404: [shared.ErrNotFound]
//   - 429 and 5xx: [shared.ErrServiceUnavailable]
//   - anything else: [shared.ErrAPIRequest]
package services
