// Package cache holds small in-memory caches that sit in front of the
// database adapters. The catalog barely changes at runtime, so booking
// validation reads it through a TTL cache instead of hitting SQLite on
// every create.
package cache

import (
	"sync"
	"time"

	"fieldserve/internal/core"
)

const defaultCatalogTTL = 5 * time.Minute

type catalogEntry struct {
	category *core.Category
	service  *core.Service
	loadedAt time.Time
}

// CatalogCache wraps a CatalogRepository with read-through caching for
// category and service lookups. Writes (service stats) pass straight
// through and invalidate the cached copy.
type CatalogCache struct {
	inner core.CatalogRepository
	ttl   time.Duration

	categories map[string]*catalogEntry
	services   map[string]*catalogEntry
	mutex      sync.RWMutex
}

func NewCatalogCache(inner core.CatalogRepository, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CatalogCache{
		inner:      inner,
		ttl:        ttl,
		categories: make(map[string]*catalogEntry),
		services:   make(map[string]*catalogEntry),
	}
}

func (c *CatalogCache) GetCategory(id string) (*core.Category, error) {
	c.mutex.RLock()
	entry := c.categories[id]
	c.mutex.RUnlock()

	if entry != nil && time.Since(entry.loadedAt) < c.ttl {
		return entry.category, nil
	}

	category, err := c.inner.GetCategory(id)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.categories[id] = &catalogEntry{category: category, loadedAt: time.Now()}
	c.mutex.Unlock()

	return category, nil
}

func (c *CatalogCache) GetService(id string) (*core.Service, error) {
	c.mutex.RLock()
	entry := c.services[id]
	c.mutex.RUnlock()

	if entry != nil && time.Since(entry.loadedAt) < c.ttl {
		return entry.service, nil
	}

	service, err := c.inner.GetService(id)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.services[id] = &catalogEntry{service: service, loadedAt: time.Now()}
	c.mutex.Unlock()

	return service, nil
}

func (c *CatalogCache) UpdateServiceStats(serviceID string, stats core.ServiceStats) error {
	if err := c.inner.UpdateServiceStats(serviceID, stats); err != nil {
		return err
	}

	c.mutex.Lock()
	delete(c.services, serviceID)
	c.mutex.Unlock()

	return nil
}

// Invalidate drops all cached entries. The seeder calls this after
// rewriting the catalog.
func (c *CatalogCache) Invalidate() {
	c.mutex.Lock()
	c.categories = make(map[string]*catalogEntry)
	c.services = make(map[string]*catalogEntry)
	c.mutex.Unlock()
}
