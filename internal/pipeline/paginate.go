package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/desertthunder/playlistcake/internal/models"
	"github.com/tidwall/gjson"
)

// Page is one raw JSON response body.
type Page []byte

// Path addresses a value nested inside a [Page].
//
// A nil Path addresses the whole page. Empty-string entries are skipped.
type Path []string

// Key returns a single-key [Path].
func Key(key string) Path { return Path{key} }

// Keys returns a multi-key [Path].
func Keys(keys ...string) Path { return Path(keys) }

// String renders the path in gjson syntax.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p {
		if k == "" {
			continue
		}
		parts = append(parts, gjson.Escape(k))
	}
	return strings.Join(parts, ".")
}

// Lookup returns the value at the path, or [ErrPathNotFound] when any key along it is missing.
func (p Path) Lookup(page Page) (gjson.Result, error) {
	if !gjson.ValidBytes(page) {
		return gjson.Result{}, ErrMalformedPage
	}

	res := gjson.ParseBytes(page)
	for _, k := range p {
		if k == "" {
			continue
		}
		if !res.IsObject() {
			return gjson.Result{}, fmt.Errorf("%w: %q", ErrPathNotFound, p.String())
		}
		res = res.Get(gjson.Escape(k))
		if !res.Exists() {
			return gjson.Result{}, fmt.Errorf("%w: %q", ErrPathNotFound, p.String())
		}
	}
	return res, nil
}

// PageFetcher fetches pages from the remote API.
type PageFetcher interface {
	// FetchPage requests the first page of a paginated operation.
	FetchPage(ctx context.Context, op models.Operation, params url.Values) (Page, error)
	// FetchCursor requests the page a continuation cursor points at.
	FetchCursor(ctx context.Context, cursor string) (Page, error)
}

// Request describes a paginated fetch.
type Request struct {
	Operation  models.Operation
	Params     url.Values
	ItemsPath  Path // where the item list lives; nil means the page itself is the list
	NextPath   Path // where the next-page cursor lives; nil means a single page
	MaxResults int  // 0 means unlimited
}

// Paginate yields every item of a paginated collection, following next-page cursors.
//
// Iteration stops without further fetches once MaxResults items have been yielded.
// A missing next-page cursor, or one that is null, false, zero or empty, ends pagination.
// An empty first page ends it too; later empty pages are skipped while the cursor continues.
// A missing item list is an error.
func Paginate(ctx context.Context, f PageFetcher, req Request) iter.Seq2[models.Item, error] {
	return func(yield func(models.Item, error) bool) {
		page, err := f.FetchPage(ctx, req.Operation, req.Params)
		if err != nil {
			yield(nil, err)
			return
		}

		count := 0
		for first := true; ; first = false {
			list, err := req.ItemsPath.Lookup(page)
			if err != nil {
				yield(nil, fmt.Errorf("%s items: %w", req.Operation, err))
				return
			}
			if !list.IsArray() {
				yield(nil, fmt.Errorf("%w: %s items at %q are not a list", ErrMalformedPage, req.Operation, req.ItemsPath.String()))
				return
			}

			items := list.Array()
			if first && len(items) == 0 {
				return
			}
			for _, raw := range items {
				if req.MaxResults > 0 && count >= req.MaxResults {
					return
				}
				item, err := decodeItem(raw)
				if err != nil {
					yield(nil, fmt.Errorf("%s: %w", req.Operation, err))
					return
				}
				count++
				if !yield(item, nil) {
					return
				}
			}
			if req.MaxResults > 0 && count >= req.MaxResults {
				return
			}

			cursor, ok := nextCursor(page, req.NextPath)
			if !ok {
				return
			}
			page, err = f.FetchCursor(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// nextCursor extracts the continuation cursor. A lookup failure here means the collection is exhausted.
func nextCursor(page Page, path Path) (string, bool) {
	if path == nil {
		return "", false
	}
	res, err := path.Lookup(page)
	if err != nil {
		return "", false
	}
	switch res.Type {
	case gjson.Null, gjson.False:
		return "", false
	case gjson.Number:
		if res.Num == 0 {
			return "", false
		}
	case gjson.String:
		if res.Str == "" {
			return "", false
		}
	}
	return res.String(), true
}

func decodeItem(raw gjson.Result) (models.Item, error) {
	switch raw.Type {
	case gjson.Null:
		return nil, nil
	case gjson.JSON:
		if !raw.IsObject() {
			break
		}
		var item models.Item
		if err := json.Unmarshal([]byte(raw.Raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		return item, nil
	case gjson.String:
		return models.Ref(raw.Str), nil
	}
	return nil, fmt.Errorf("%w: unexpected item %s", ErrMalformedPage, raw.Raw)
}

// DecodeItems decodes a JSON array of objects. Null entries decode to nil items.
func DecodeItems(data []byte, path Path) ([]models.Item, error) {
	list, err := path.Lookup(data)
	if err != nil {
		return nil, err
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformedPage, path.String())
	}
	raws := list.Array()
	items := make([]models.Item, len(raws))
	for i, raw := range raws {
		item, err := decodeItem(raw)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// DecodeItem decodes the JSON object at path.
func DecodeItem(data []byte, path Path) (models.Item, error) {
	res, err := path.Lookup(data)
	if err != nil {
		return nil, err
	}
	return decodeItem(res)
}

// Limit returns the per-request page size: maxResults when it is set and below maxLimit, otherwise maxLimit.
func Limit(maxResults, maxLimit int) int {
	if maxResults > 0 && maxResults < maxLimit {
		return maxResults
	}
	return maxLimit
}
