package state

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Deduplicator is an in-memory set of keys with a Bloom filter in front for
// fast negative lookups.
type Deduplicator struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewDeduplicator creates a deduplicator sized for estimatedItems keys.
func NewDeduplicator(estimatedItems int) *Deduplicator {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}

	return &Deduplicator{
		filter: bloom.NewWithEstimates(uint(estimatedItems), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Add adds keys and reports how many of them were new.
func (d *Deduplicator) Add(keys ...string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, key := range keys {
		if _, exists := d.exact[key]; exists {
			continue
		}
		d.filter.AddString(key)
		d.exact[key] = struct{}{}
		added++
	}
	return added
}

// HasSeen reports whether key was added before.
func (d *Deduplicator) HasSeen(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.filter.TestString(key) {
		return false
	}
	_, exists := d.exact[key]
	return exists
}

// Count returns the number of unique keys.
func (d *Deduplicator) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.exact)
}
