// Package templatecache holds the session's metadata template schemas in
// memory. One writer (the refresh path), many readers.
package templatecache

import (
	"sync"
	"time"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

type Cache struct {
	mu          sync.RWMutex
	templates   []domain.Template
	byID        map[string]domain.Template
	refreshedAt time.Time
}

func New() *Cache {
	return &Cache{byID: make(map[string]domain.Template)}
}

// Replace swaps the full template set atomically. Readers never observe a
// partially refreshed cache.
func (c *Cache) Replace(templates []domain.Template) {
	byID := make(map[string]domain.Template, len(templates))
	copied := make([]domain.Template, len(templates))
	copy(copied, templates)
	for _, tpl := range copied {
		byID[tpl.ID] = tpl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = copied
	c.byID = byID
	c.refreshedAt = time.Now().UTC()
}

func (c *Cache) All() []domain.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *Cache) Get(id string) (domain.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.byID[id]
	return tpl, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
