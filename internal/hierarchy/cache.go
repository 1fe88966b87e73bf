// Package hierarchy fetches work items and walks their parent chains up to
// the classifiable unit.
package hierarchy

import (
	"sync"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

// Cache holds the work items fetched during one aggregation run. It is built
// fresh per run and discarded afterwards. Entries are write-once.
type Cache struct {
	mu      sync.RWMutex
	items   map[int]domain.WorkItem
	missing map[int]struct{}
}

func NewCache() *Cache {
	return &Cache{items: map[int]domain.WorkItem{}, missing: map[int]struct{}{}}
}

func (c *Cache) Get(id int) (domain.WorkItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wi, ok := c.items[id]
	return wi, ok
}

// Put stores wi unless the id is already cached.
func (c *Cache) Put(wi domain.WorkItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[wi.ID]; ok {
		return
	}
	c.items[wi.ID] = wi
	delete(c.missing, wi.ID)
}

func (c *Cache) PutAll(items map[int]domain.WorkItem) {
	for _, wi := range items {
		c.Put(wi)
	}
}

// MarkMissing records that the upstream has no item with this id.
func (c *Cache) MarkMissing(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; ok {
		return
	}
	c.missing[id] = struct{}{}
}

func (c *Cache) IsMissing(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.missing[id]
	return ok
}

// Known reports whether id is either cached or known to be missing.
func (c *Cache) Known(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.items[id]; ok {
		return true
	}
	_, ok := c.missing[id]
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
