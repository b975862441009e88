package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/playlistcake/internal/shared"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the authorization code callback. It accepts one callback; later ones get a 400.
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	results   chan OAuthResult
	once      sync.Once
	hit       atomic.Bool
}

// NewOAuthHandler creates a handler that accepts callbacks carrying state.
func NewOAuthHandler(exchanger Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		results:   make(chan OAuthResult, 1),
	}
}

// Routes returns the mux pattern of the callback.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hit.CompareAndSwap(false, true) {
		render(w, http.StatusBadRequest, "Already handled", "This login link was already used. Run cake auth again.")
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		render(w, http.StatusBadRequest, "Login failed", "The state parameter did not match this login attempt.")
		return
	}

	code := query.Get("code")
	if code == "" {
		reason := query.Get("error")
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, reason, query.Get("error_description"))})
		render(w, http.StatusBadRequest, "Login failed", "Spotify returned: "+reason)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		render(w, http.StatusInternalServerError, "Login failed", "The authorization code could not be exchanged for a token.")
		return
	}

	h.Send(OAuthResult{Token: token})
	render(w, http.StatusOK, "Logged in to Spotify", "You can close this window and return to the terminal.")
}

// Send delivers result unless one was already sent.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>cake: {{.Title}}</title>
  <style>
    body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center;
           height: 100vh; margin: 0; background: #121212; color: #eee; }
    main { text-align: center; }
    h1 { color: {{if .OK}}#1DB954{{else}}#E22134{{end}}; }
  </style>
</head>
<body>
  <main>
    <h1>{{.Title}}</h1>
    <p>{{.Message}}</p>
  </main>
</body>
</html>
`))

func render(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, struct {
		OK             bool
		Title, Message string
	}{status == http.StatusOK, title, message})
}
