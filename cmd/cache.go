package main

import (
	"context"

	"github.com/desertthunder/playlistcake/internal/formatter"
	"github.com/desertthunder/playlistcake/internal/repositories"
	"github.com/urfave/cli/v3"
)

func (r *Runner) responseCache() (*repositories.ResponseCache, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewResponseCache(db), nil
}

// CacheClear deletes every cached API response.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.responseCache()
	if err != nil {
		return err
	}
	removed, err := cache.Clear(ctx)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Success("Removed %d cached responses", removed))
}

// CachePrune deletes expired cached responses.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.responseCache()
	if err != nil {
		return err
	}
	removed, err := cache.Prune(ctx)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Success("Removed %d expired responses", removed))
}

// CacheStats prints the size of the response cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.responseCache()
	if err != nil {
		return err
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		return err
	}

	ttl := r.cfg().API.CacheTTL
	if ttl == "" {
		ttl = "0"
	}
	r.writePlainln("Entries: %d (%d expired)", stats.Entries, stats.Expired)
	r.writePlainln("Size: %d bytes", stats.Bytes)
	return r.writePlainln("TTL: %s", ttl)
}

// cacheCommand manages the local cache of Spotify API responses
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "cache",
		Usage:  "Inspect or empty the local API response cache",
		Action: r.CacheStats,
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Delete every cached response",
				Action: r.CacheClear,
			},
			{
				Name:   "prune",
				Usage:  "Delete expired responses",
				Action: r.CachePrune,
			},
			{
				Name:   "stats",
				Usage:  "Show cache size",
				Action: r.CacheStats,
			},
		},
	}
}
