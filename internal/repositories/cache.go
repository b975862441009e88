package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playlistcake/internal/services"
)

// ResponseCache stores Spotify GET responses in SQLite. It implements [services.Cache].
type ResponseCache struct {
	db  *sql.DB
	now func() time.Time
}

var _ services.Cache = (*ResponseCache)(nil)

// NewResponseCache creates a new ResponseCache with the given database connection
func NewResponseCache(db *sql.DB) *ResponseCache {
	return &ResponseCache{db: db, now: time.Now}
}

// Get returns the cached body for key. Expired entries are reported as misses.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		body      []byte
		expiresAt time.Time
	)
	err := c.db.QueryRowContext(ctx, `SELECT body, expires_at FROM response_cache WHERE key = ?`, key).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if !c.now().Before(expiresAt) {
		return nil, false, nil
	}
	return body, true, nil
}

// Set stores body under key until ttl elapses, replacing any previous entry.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	now := c.now().UTC()
	query := `
		INSERT INTO response_cache (key, body, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	if _, err := c.db.ExecContext(ctx, query, key, body, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *ResponseCache) Prune(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return result.RowsAffected()
}

// Clear deletes every entry and returns how many were removed.
func (c *ResponseCache) Clear(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM response_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

// CacheStats summarizes the cache table.
type CacheStats struct {
	Entries int
	Expired int
	Bytes   int64
}

// Stats counts entries, expired entries and stored bytes.
func (c *ResponseCache) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(body)), 0)
		FROM response_cache
	`
	if err := c.db.QueryRowContext(ctx, query, c.now().UTC()).Scan(&stats.Entries, &stats.Expired, &stats.Bytes); err != nil {
		return stats, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}
