package revenue

import (
	"sort"
	"sync"
)

// Cache holds the latest published report per producer. Readers never observe
// a partially built report. Every producer slot carries a generation that
// Invalidate bumps; a report computed under an older generation is refused
// so a slow refresh cannot resurrect data an invalidation already dropped.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*slot
}

type slot struct {
	mu     sync.Mutex
	gen    uint64
	report *Report
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*slot)}
}

// Generation returns the producer's current generation. Take it before
// reading the data a report is computed from.
func (c *Cache) Generation(producerID string) uint64 {
	s := c.slot(producerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Publish stores r if no invalidation happened since gen was taken and
// reports whether it did.
func (c *Cache) Publish(r *Report, gen uint64) bool {
	if r == nil {
		return false
	}
	s := c.slot(r.producerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.report = r
	return true
}

// Load returns the producer's snapshot, if any.
func (c *Cache) Load(producerID string) (*Report, bool) {
	c.mu.RLock()
	s, ok := c.entries[producerID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.report != nil
}

// Invalidate drops the producer's snapshot and refuses reports computed
// before this call.
func (c *Cache) Invalidate(producerID string) {
	s := c.slot(producerID)
	s.mu.Lock()
	s.gen++
	s.report = nil
	s.mu.Unlock()
}

// Producers lists producers with a published snapshot.
func (c *Cache) Producers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for id, s := range c.entries {
		s.mu.Lock()
		if s.report != nil {
			out = append(out, id)
		}
		s.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

func (c *Cache) slot(producerID string) *slot {
	c.mu.RLock()
	s, ok := c.entries[producerID]
	c.mu.RUnlock()
	if ok {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.entries[producerID]; !ok {
		s = &slot{}
		c.entries[producerID] = s
	}
	return s
}
