// Package server runs the short-lived local HTTP server that receives the Spotify OAuth2 callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// [BasicRouter] uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, trades the authorization code for a token through an
// [Exchanger] and sends the result through a channel. Only the first callback is processed.
//
// # Usage
//
// `cake auth` calls [Start] on the configured host and port, opens the authorization URL in a browser,
// waits on [OAuthHandler.Result] and shuts the server down.
package server
