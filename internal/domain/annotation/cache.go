package annotation

import (
	"context"
	"sync"
)

// Cache is the run-scoped identifier → Annotation memo.  Entries are written
// once and never evicted or replaced.  Claim hands each uncached identifier to
// exactly one caller; everybody else asking for it meanwhile waits for that
// caller's result instead of issuing another lookup.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]Annotation
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	ann  Annotation
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]Annotation),
		inflight: make(map[string]*flight),
	}
}

// Claim partitions ids by state.  The caller must Complete every id in
// Claim.Owned, whatever the outcome of its lookup.
type Claim struct {
	Cached  map[string]Annotation
	Owned   []string
	waiting map[string]*flight
}

// Waiting returns how many ids are being resolved by other callers.
func (c *Claim) Waiting() int { return len(c.waiting) }

// Claim looks ids up under one lock.  Lookup is exact and case-sensitive.
func (c *Cache) Claim(ids []string) *Claim {
	cl := &Claim{Cached: make(map[string]Annotation)}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if ann, ok := c.entries[id]; ok {
			cl.Cached[id] = ann
			continue
		}
		if f, ok := c.inflight[id]; ok {
			if cl.waiting == nil {
				cl.waiting = make(map[string]*flight)
			}
			cl.waiting[id] = f
			continue
		}
		c.inflight[id] = &flight{done: make(chan struct{})}
		cl.Owned = append(cl.Owned, id)
	}
	return cl
}

// Complete stores ann for id and releases its waiters.  A second Complete for
// the same id is ignored.
func (c *Cache) Complete(id string, ann Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return
	}
	c.entries[id] = ann
	if f, ok := c.inflight[id]; ok {
		f.ann = ann
		delete(c.inflight, id)
		close(f.done)
	}
}

// Wait blocks until every id owned by another caller is complete or ctx ends.
// Ids still in flight when ctx ends are missing from the result.
func (c *Claim) Wait(ctx context.Context) map[string]Annotation {
	out := make(map[string]Annotation, len(c.waiting))
	for id, f := range c.waiting {
		select {
		case <-f.done:
			out[id] = f.ann
		case <-ctx.Done():
			return out
		}
	}
	return out
}

// Get returns the cached annotation for id.
func (c *Cache) Get(id string) (Annotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ann, ok := c.entries[id]
	return ann, ok
}

// Len returns the number of cached identifiers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InFlight returns the number of identifiers currently being resolved.
func (c *Cache) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

//Personal.AI order the ending
