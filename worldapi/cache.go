package worldapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/worldlens/dbopen"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS world_search_cache (
	name       TEXT PRIMARY KEY,
	world_id   TEXT NOT NULL,
	world_name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Cache memoises successful name→world lookups in SQLite. Searches for
// the same name dominate the workload: a popular post keeps being
// scrolled past by different sessions.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens (or creates) the cache database at path. ttl bounds
// how long an entry is served; 0 means entries never expire.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(cacheSchema))
	if err != nil {
		return nil, fmt.Errorf("worldapi: open cache: %w", err)
	}
	return NewCache(db, ttl), nil
}

// NewCache wraps an existing database handle. The schema must already
// be applied (dbopen.WithSchema(CacheSchema) in tests).
func NewCache(db *sql.DB, ttl time.Duration) *Cache {
	return &Cache{db: db, ttl: ttl, now: time.Now}
}

// CacheSchema is exported for test database setup.
const CacheSchema = cacheSchema

// Get returns the cached world for a name. Expired entries are deleted
// on the way out.
func (c *Cache) Get(ctx context.Context, name string) (worldID, worldName string, ok bool) {
	var createdAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT world_id, world_name, created_at FROM world_search_cache WHERE name = ?`,
		name).Scan(&worldID, &worldName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false
	}
	if err != nil {
		slog.Warn("worldapi: cache get failed", "name", name, "error", err)
		return "", "", false
	}

	if c.ttl > 0 && c.now().Unix()-createdAt > int64(c.ttl.Seconds()) {
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM world_search_cache WHERE name = ?`, name); err != nil {
			slog.Warn("worldapi: cache expire failed", "name", name, "error", err)
		}
		return "", "", false
	}
	return worldID, worldName, true
}

// Put stores (or replaces) a lookup result.
func (c *Cache) Put(ctx context.Context, name, worldID, worldName string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO world_search_cache (name, world_id, world_name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			world_id = excluded.world_id,
			world_name = excluded.world_name,
			created_at = excluded.created_at`,
		name, worldID, worldName, c.now().Unix())
	if err != nil {
		return fmt.Errorf("worldapi: cache put: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
