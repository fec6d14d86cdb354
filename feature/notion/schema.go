package notion

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type schemaFetcher interface {
	GetDatabase(ctx context.Context, db Database) (*DatabaseObject, error)
}

// SchemaCache keeps database objects keyed by database name. Concurrent
// misses for the same database share one request.
type SchemaCache struct {
	fetcher schemaFetcher
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]*DatabaseObject
}

// NewSchemaCache creates an empty cache backed by fetcher.
func NewSchemaCache(fetcher schemaFetcher) *SchemaCache {
	return &SchemaCache{
		fetcher: fetcher,
		entries: make(map[string]*DatabaseObject),
	}
}

// Get returns the cached schema, fetching it on a miss.
func (c *SchemaCache) Get(ctx context.Context, db Database) (*DatabaseObject, error) {
	c.mu.RLock()
	obj, ok := c.entries[db.Name]
	c.mu.RUnlock()
	if ok {
		return obj, nil
	}
	return c.Refresh(ctx, db)
}

// Refresh fetches the schema and replaces the cached entry.
func (c *SchemaCache) Refresh(ctx context.Context, db Database) (*DatabaseObject, error) {
	v, err, _ := c.group.Do(db.Name, func() (any, error) {
		obj, err := c.fetcher.GetDatabase(ctx, db)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[db.Name] = obj
		c.mu.Unlock()
		return obj, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DatabaseObject), nil
}

// Invalidate drops the cached schema of the named database.
func (c *SchemaCache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}
