// Package stmtcache maps query text to server-side prepared statement ids.
package stmtcache

import (
	"context"
	"strconv"

	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Preparer prepares a statement under the given id on the server.
type Preparer interface {
	Prepare(ctx context.Context, id, query string, tags []registry.Tag) error
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context, id, query string, tags []registry.Tag) error

// Prepare calls f.
func (f PreparerFunc) Prepare(ctx context.Context, id, query string, tags []registry.Tag) error {
	return f(ctx, id, query, tags)
}

// Stats represents cache statistics
type Stats struct {
	Hits     int64
	Misses   int64
	Failures int64
	Size     int
	HitRate  float64
}

// Cache assigns each distinct query text a sequential statement id and prepares
// it once. Entries are keyed on the text alone: a query seen again with other
// parameter types reuses the statement prepared the first time.
//
// A Cache is not safe for concurrent use; it belongs to a single connection.
type Cache struct {
	ids   map[string]string
	stats Stats
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{ids: make(map[string]string)}
}

// IDFor returns the statement id for query, preparing it on a miss. The id is
// stored only once the server acknowledged the prepare, so a failed prepare is
// attempted again on the next call. hit reports whether no round trip was made.
func (c *Cache) IDFor(ctx context.Context, p Preparer, query string, tags []registry.Tag) (id string, hit bool, err error) {
	if id, ok := c.ids[query]; ok {
		c.stats.Hits++
		c.updateHitRate()
		return id, true, nil
	}

	c.stats.Misses++
	c.updateHitRate()

	id = strconv.Itoa(len(c.ids))
	if err := p.Prepare(ctx, id, query, tags); err != nil {
		c.stats.Failures++
		return "", false, err
	}

	c.ids[query] = id
	return id, false, nil
}

// Lookup returns the id of an already prepared query.
func (c *Cache) Lookup(query string) (string, bool) {
	id, ok := c.ids[query]
	return id, ok
}

// Len returns the number of prepared statements.
func (c *Cache) Len() int {
	return len(c.ids)
}

// Reset forgets every statement. Use it only when the server session that held
// the statements is gone.
func (c *Cache) Reset() {
	c.ids = make(map[string]string)
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	stats := c.stats
	stats.Size = len(c.ids)
	return stats
}

func (c *Cache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total) * 100
	}
}
