package pose

import (
	"slices"
	"sync"
	"time"
)

// Header carries snapshot metadata preserved across position updates.
type Header struct {
	Stamp   time.Time
	FrameID string
	Seq     uint64
}

// Snapshot is one joint-position observation of the ghost.
type Snapshot struct {
	Header    Header
	Names     []string
	Positions []float64
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Header:    s.Header,
		Names:     slices.Clone(s.Names),
		Positions: slices.Clone(s.Positions),
	}
}

// Cache holds the latest ghost snapshot behind a reader/writer lock.
type Cache struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewCache returns an empty cache. Names and frame are kept for the cache lifetime.
func NewCache(frameID string, names []string) *Cache {
	return &Cache{
		snap: Snapshot{
			Header: Header{FrameID: frameID},
			Names:  slices.Clone(names),
		},
		now: time.Now,
	}
}

// Update replaces the stored positions wholesale and keeps the rest of the header.
func (c *Cache) Update(positions []float64) {
	next := slices.Clone(positions)
	stamp := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Positions = next
	c.snap.Header.Seq++
	c.snap.Header.Stamp = stamp
}

// Read returns an independent copy of the current snapshot.
func (c *Cache) Read() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}
