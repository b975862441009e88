// package services talks to the Spotify Web API on behalf of the pipeline engine.
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Cache stores raw GET response bodies by request URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// transport applies the client-side rate limit and logs every request at debug level.
type transport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	logger  *log.Logger
}

func newTransport(base http.RoundTripper, rps float64, logger *log.Logger) *transport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &transport{base: base, limiter: rate.NewLimiter(limit, 1), logger: logger}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("request failed", "method", req.Method, "url", req.URL.Redacted(), "err", err)
		return nil, err
	}
	t.logger.Debug("request", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "took", time.Since(start))
	return resp, nil
}
