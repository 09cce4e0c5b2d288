// Package cache stores previously corrected comment texts so unchanged
// comments skip the correction service on later runs.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"neospeller/internal/textutil"
)

// Cache is an in-memory map of corrected comments, optionally backed by
// PostgreSQL. With a nil pool it is memory-only and scoped to the process.
type Cache struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	memory map[string]string // hash → corrected text
}

// New creates a cache. Pass nil to run without a database.
func New(pool *pgxpool.Pool) *Cache {
	return &Cache{
		pool:   pool,
		memory: make(map[string]string),
	}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS correction_cache (
			hash       TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			corrected  TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	return nil
}

// Get retrieves a cached correction. Returns false if not found.
func (c *Cache) Get(ctx context.Context, source string) (string, bool) {
	hash := textutil.Hash(source)

	c.mu.RLock()
	if v, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if c.pool == nil {
		return "", false
	}

	var corrected string
	err := c.pool.QueryRow(ctx,
		`SELECT corrected FROM correction_cache WHERE hash = $1`, hash).Scan(&corrected)
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = corrected
	c.mu.Unlock()

	return corrected, true
}

// Set stores a correction in memory and, when available, in PostgreSQL.
func (c *Cache) Set(ctx context.Context, source, corrected string) error {
	hash := textutil.Hash(source)

	c.mu.Lock()
	c.memory[hash] = corrected
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO correction_cache (hash, source, corrected)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET corrected = EXCLUDED.corrected`,
		hash, source, corrected)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Preload loads all stored corrections into memory.
func (c *Cache) Preload(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}

	rows, err := c.pool.Query(ctx, `SELECT hash, corrected FROM correction_cache`)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	count := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var hash, corrected string
		if err := rows.Scan(&hash, &corrected); err != nil {
			return fmt.Errorf("scan cache row: %w", err)
		}
		c.memory[hash] = corrected
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read cache rows: %w", err)
	}

	log.Info().Int("count", count).Msg("Preloaded correction cache")
	return nil
}
