package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/desertthunder/playlistcake/internal/pipeline"
)

// FetchCall records one page request made to a [FakeClient].
type FetchCall struct {
	Op     models.Operation
	Params url.Values
}

// LookupCall records one batch lookup made to a [FakeClient].
type LookupCall struct {
	Kind models.LookupKind
	IDs  []string
}

// FakeClient is a scripted remote API.
//
// Pages are keyed by [PageKey] and served in order; a page links to the next one with a
// cursor built by [Cursor]. Lookups resolve ids through Objects; unknown ids come back nil.
type FakeClient struct {
	Pages   map[string][]string
	Objects map[models.LookupKind]map[string]models.Item
	User    models.Item
	Err     error // returned by every call when set

	Fetches   []FetchCall
	Cursors   []string
	Lookups   []LookupCall
	Created   []models.Item
	Added     map[string][]string
	AddCalls  int
	UserCalls int
}

// NewFakeClient returns an empty [FakeClient] whose current user is "me" in country "SE".
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Pages:   map[string][]string{},
		Objects: map[models.LookupKind]map[string]models.Item{},
		User:    models.Item{"id": "me", "country": "SE"},
		Added:   map[string][]string{},
	}
}

var pathParams = []string{"playlist_id", "artist_id", "album_id", "track_id"}

// PageKey names the page script for op, scoped to a path id when the operation takes one.
func PageKey(op models.Operation, id string) string {
	if id == "" {
		return string(op)
	}
	return string(op) + "/" + id
}

// Cursor builds the next-page cursor pointing at page n of the script under key.
func Cursor(key string, n int) string {
	return fmt.Sprintf("fake://%s#%d", key, n)
}

// Page renders a page body with items under "items" and an optional next cursor.
func Page(next string, items ...models.Item) string {
	if items == nil {
		items = []models.Item{}
	}
	body := map[string]any{"items": items, "next": nil}
	if next != "" {
		body["next"] = next
	}
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Script sets the pages served for key.
func (c *FakeClient) Script(key string, pages ...string) *FakeClient {
	c.Pages[key] = pages
	return c
}

// Store registers lookup results for kind.
func (c *FakeClient) Store(kind models.LookupKind, items ...models.Item) *FakeClient {
	if c.Objects[kind] == nil {
		c.Objects[kind] = map[string]models.Item{}
	}
	for _, item := range items {
		c.Objects[kind][item.ID()] = item
	}
	return c
}

// StoreAs registers a lookup result under an explicit id, e.g. audio features keyed by track id.
func (c *FakeClient) StoreAs(kind models.LookupKind, id string, item models.Item) *FakeClient {
	if c.Objects[kind] == nil {
		c.Objects[kind] = map[string]models.Item{}
	}
	c.Objects[kind][id] = item
	return c
}

func (c *FakeClient) page(key string, n int) (pipeline.Page, error) {
	pages, ok := c.Pages[key]
	if !ok || n >= len(pages) {
		return nil, fmt.Errorf("no page %d scripted for %s", n, key)
	}
	return pipeline.Page(pages[n]), nil
}

func (c *FakeClient) FetchPage(ctx context.Context, op models.Operation, params url.Values) (pipeline.Page, error) {
	c.Fetches = append(c.Fetches, FetchCall{Op: op, Params: params})
	if c.Err != nil {
		return nil, c.Err
	}
	var id string
	for _, p := range pathParams {
		if v := params.Get(p); v != "" {
			id = v
			break
		}
	}
	return c.page(PageKey(op, id), 0)
}

func (c *FakeClient) FetchCursor(ctx context.Context, cursor string) (pipeline.Page, error) {
	c.Cursors = append(c.Cursors, cursor)
	if c.Err != nil {
		return nil, c.Err
	}
	rest, ok := strings.CutPrefix(cursor, "fake://")
	if !ok {
		return nil, fmt.Errorf("bad cursor %q", cursor)
	}
	i := strings.LastIndex(rest, "#")
	if i < 0 {
		return nil, fmt.Errorf("bad cursor %q", cursor)
	}
	var n int
	if _, err := fmt.Sscanf(rest[i+1:], "%d", &n); err != nil {
		return nil, fmt.Errorf("bad cursor %q: %w", cursor, err)
	}
	return c.page(rest[:i], n)
}

func (c *FakeClient) Lookup(ctx context.Context, kind models.LookupKind, ids []string) ([]models.Item, error) {
	c.Lookups = append(c.Lookups, LookupCall{Kind: kind, IDs: append([]string(nil), ids...)})
	if c.Err != nil {
		return nil, c.Err
	}
	if n := kind.BatchSize(); len(ids) > n {
		return nil, fmt.Errorf("%s lookup of %d ids exceeds %d", kind, len(ids), n)
	}
	out := make([]models.Item, len(ids))
	for i, id := range ids {
		if item, ok := c.Objects[kind][id]; ok {
			out[i] = maps.Clone(item)
		}
	}
	return out, nil
}

func (c *FakeClient) CurrentUser(ctx context.Context) (models.Item, error) {
	c.UserCalls++
	if c.Err != nil {
		return nil, c.Err
	}
	if c.User == nil {
		return nil, fmt.Errorf("no current user")
	}
	return c.User, nil
}

func (c *FakeClient) CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (models.Item, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	pl := models.Item{
		"id":     fmt.Sprintf("pl-%d", len(c.Created)+1),
		"name":   name,
		"public": public,
		"owner":  map[string]any{"id": ownerID},
	}
	c.Created = append(c.Created, pl)
	return pl, nil
}

func (c *FakeClient) AddToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	c.AddCalls++
	if c.Err != nil {
		return c.Err
	}
	c.Added[playlistID] = append(c.Added[playlistID], trackIDs...)
	return nil
}

// FetchesOf counts page requests for op.
func (c *FakeClient) FetchesOf(op models.Operation) int {
	n := 0
	for _, f := range c.Fetches {
		if f.Op == op {
			n++
		}
	}
	return n
}
