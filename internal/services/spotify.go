// Spotify Web API implementation of tasks.Client
//
// Reference: https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
	"github.com/desertthunder/playlistcake/internal/shared"
	"github.com/tidwall/gjson"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL     = "https://api.spotify.com/v1"
	DefaultRedirectURI = "http://127.0.0.1:3000/callback"
)

// Scopes lists the permissions `cake auth` asks for.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// operationPaths maps operations to endpoint templates. {name} segments are filled from
// the request params of the same name.
var operationPaths = map[models.Operation]string{
	models.OpSavedTracks:     "/me/tracks",
	models.OpSavedAlbums:     "/me/albums",
	models.OpFollowedArtists: "/me/following",
	models.OpTopArtists:      "/me/top/artists",
	models.OpTopTracks:       "/me/top/tracks",
	models.OpUserPlaylists:   "/me/playlists",
	models.OpPlaylistTracks:  "/playlists/{playlist_id}/tracks",
	models.OpArtistAlbums:    "/artists/{artist_id}/albums",
	models.OpArtistTopTracks: "/artists/{artist_id}/top-tracks",
	models.OpAlbum:           "/albums/{album_id}",
	models.OpTrack:           "/tracks/{track_id}",
	models.OpRecommendations: "/recommendations",
	models.OpSearch:          "/search",
}

type lookupEndpoint struct {
	path string
	key  string // response field holding the result list
}

var lookupEndpoints = map[models.LookupKind]lookupEndpoint{
	models.LookupAlbums:        {path: "/albums", key: "albums"},
	models.LookupTracks:        {path: "/tracks", key: "tracks"},
	models.LookupArtists:       {path: "/artists", key: "artists"},
	models.LookupAudioFeatures: {path: "/audio-features", key: "audio_features"},
}

// SpotifyOpts tunes a [SpotifyService]. The zero value is usable.
type SpotifyOpts struct {
	BaseURL           string            // defaults to [DefaultBaseURL]
	RequestsPerSecond float64           // 0 disables the client-side rate limit
	Cache             Cache             // optional GET response cache
	CacheTTL          time.Duration     // 0 disables caching even when Cache is set
	Logger            *log.Logger       // defaults to stderr
	Transport         http.RoundTripper // base transport, defaults to [http.DefaultTransport]
	OnTokenRefresh    func(*oauth2.Token)
}

// SpotifyService implements the remote side of the pipeline engine over the Spotify Web API.
//
// Reads go through raw GET requests so pages reach the engine untouched; playlist writes and the
// user profile go through the typed [spotify.Client].
type SpotifyService struct {
	config     *oauth2.Config
	opts       SpotifyOpts
	baseURL    string
	logger     *log.Logger
	transport  *transport
	token      *oauth2.Token
	httpClient *http.Client
	api        *spotify.Client
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 client credentials.
func NewSpotifyService(credentials map[string]string, opts SpotifyOpts) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		opts:      opts,
		baseURL:   baseURL,
		logger:    shared.WithLogger(opts.Logger, "service", "spotify"),
		transport: newTransport(opts.Transport, opts.RequestsPerSecond, opts.Logger),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// oauthContext routes token requests through the service's transport.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: s.transport})
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}
	if err := s.SetToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// SetToken authenticates the service with a stored token. Expired access tokens are refreshed on
// first use, and every new token is reported to OnTokenRefresh.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return shared.ErrNotAuthenticated
	}
	if !token.Valid() && token.RefreshToken == "" {
		return fmt.Errorf("%w: access token expired", shared.ErrNoRefreshToken)
	}

	src := &notifyingSource{
		src:  s.config.TokenSource(s.oauthContext(ctx), token),
		last: token.AccessToken,
		fn:   s.opts.OnTokenRefresh,
	}
	s.token = token
	s.httpClient = &http.Client{Transport: &oauth2.Transport{Source: src, Base: s.transport}}
	s.api = spotify.New(s.httpClient, spotify.WithBaseURL(s.baseURL+"/"))
	return nil
}

// Authenticated reports whether a token has been installed.
func (s *SpotifyService) Authenticated() bool {
	return s.httpClient != nil
}

// notifyingSource reports tokens that differ from the last one seen.
type notifyingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	last string
	fn   func(*oauth2.Token)
}

func (n *notifyingSource) Token() (*oauth2.Token, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	tok, err := n.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if tok.AccessToken != n.last {
		n.last = tok.AccessToken
		if n.fn != nil {
			n.fn(tok)
		}
	}
	return tok, nil
}

// endpoint fills the path template of op from params and returns the remaining params as the query.
func (s *SpotifyService) endpoint(op models.Operation, params url.Values) (string, error) {
	tmpl, ok := operationPaths[op]
	if !ok {
		return "", fmt.Errorf("%w: operation %q", shared.ErrInvalidArgument, op)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}

	var b strings.Builder
	b.WriteString(s.baseURL)
	for rest := tmpl; rest != ""; {
		before, after, found := strings.Cut(rest, "{")
		b.WriteString(before)
		if !found {
			break
		}
		name, tail, _ := strings.Cut(after, "}")
		value := query.Get(name)
		if value == "" {
			return "", fmt.Errorf("%w: %s needs %s", shared.ErrMissingArgument, op, name)
		}
		b.WriteString(url.PathEscape(value))
		query.Del(name)
		rest = tail
	}

	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String(), nil
}

// get performs an authenticated GET and returns the raw body, consulting the cache first.
func (s *SpotifyService) get(ctx context.Context, rawURL string) (pipeline.Page, error) {
	if !s.Authenticated() {
		return nil, fmt.Errorf("%w: call SetToken or Exchange first", shared.ErrNotAuthenticated)
	}

	caching := s.opts.Cache != nil && s.opts.CacheTTL > 0
	if caching {
		body, ok, err := s.opts.Cache.Get(ctx, rawURL)
		if err != nil {
			s.logger.Warn("cache read failed", "err", err)
		} else if ok {
			s.logger.Debug("cache hit", "url", rawURL)
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	if caching {
		if err := s.opts.Cache.Set(ctx, rawURL, body, s.opts.CacheTTL); err != nil {
			s.logger.Warn("cache write failed", "err", err)
		}
	}
	return body, nil
}

// statusError maps a non-2xx response to a sentinel error carrying the API's message.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}

	var sentinel error
	switch {
	case status == http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case status == http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: spotify API status %d: %s", sentinel, status, msg)
}

// apiError maps an error from the typed client the same way [statusError] maps raw responses.
func apiError(err error) error {
	var se spotify.Error
	if errors.As(err, &se) {
		return statusError(se.Status, []byte(fmt.Sprintf(`{"error":{"message":%q}}`, se.Message)))
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}

func (s *SpotifyService) FetchPage(ctx context.Context, op models.Operation, params url.Values) (pipeline.Page, error) {
	rawURL, err := s.endpoint(op, params)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, rawURL)
}

// FetchCursor follows a next-page URL returned by a previous page.
func (s *SpotifyService) FetchCursor(ctx context.Context, cursor string) (pipeline.Page, error) {
	if !strings.HasPrefix(cursor, s.baseURL+"/") {
		return nil, fmt.Errorf("%w: cursor %q is not a %s URL", shared.ErrInvalidInput, cursor, s.Name())
	}
	return s.get(ctx, cursor)
}

// Lookup resolves up to kind.BatchSize() ids in one request.
func (s *SpotifyService) Lookup(ctx context.Context, kind models.LookupKind, ids []string) ([]models.Item, error) {
	ep, ok := lookupEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: lookup kind %q", shared.ErrInvalidArgument, kind)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if n := kind.BatchSize(); len(ids) > n {
		return nil, fmt.Errorf("%w: maximum %d %s ids per request, got %d", shared.ErrInvalidArgument, n, kind, len(ids))
	}

	query := url.Values{"ids": {strings.Join(ids, ",")}}
	page, err := s.get(ctx, s.baseURL+ep.path+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	items, err := pipeline.DecodeItems(page, pipeline.Key(ep.key))
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", kind, err)
	}
	return items, nil
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (models.Item, error) {
	if !s.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return models.Item{
		"id":           user.ID,
		"display_name": user.DisplayName,
		"uri":          string(user.URI),
		"country":      user.Country,
		"email":        user.Email,
		"product":      user.Product,
	}, nil
}

// CreatePlaylist creates an empty playlist owned by ownerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (models.Item, error) {
	if !s.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	pl, err := s.api.CreatePlaylistForUser(ctx, ownerID, name, "", public, false)
	if err != nil {
		return nil, apiError(err)
	}
	return models.Item{
		"id":     pl.ID.String(),
		"name":   pl.Name,
		"uri":    string(pl.URI),
		"url":    pl.ExternalURLs["spotify"],
		"public": pl.IsPublic,
		"owner":  map[string]any{"id": pl.Owner.ID},
	}, nil
}

// AddToPlaylist appends tracks to a playlist. The caller keeps each call within 100 tracks.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if !s.Authenticated() {
		return shared.ErrNotAuthenticated
	}
	if len(trackIDs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}
	if _, err := s.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return apiError(err)
	}
	return nil
}
