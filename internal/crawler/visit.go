package crawler

import (
	"context"
	"strings"
	"sync"
)

// VisitCache remembers which resources a crawl has already scheduled.
type VisitCache interface {
	// ShouldVisit reports whether id is new. For any normalized id it
	// returns true at most once.
	ShouldVisit(ctx context.Context, id string) (bool, error)
	// Forget lets id be visited again.
	Forget(ctx context.Context, id string) error
}

func normalizeVisitID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// MemoryVisitCache is a thread-safe in-process set of visited identifiers.
type MemoryVisitCache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryVisitCache() *MemoryVisitCache {
	return &MemoryVisitCache{seen: make(map[string]struct{})}
}

func (c *MemoryVisitCache) ShouldVisit(_ context.Context, id string) (bool, error) {
	id = normalizeVisitID(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.seen[id]; exists {
		return false, nil
	}
	c.seen[id] = struct{}{}
	return true, nil
}

func (c *MemoryVisitCache) Forget(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, normalizeVisitID(id))
	return nil
}

// Len returns the number of identifiers tracked.
func (c *MemoryVisitCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
