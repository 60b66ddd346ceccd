package engine

import (
	"sync"

	"github.com/kestrelworks/streamlink/internal/decode"
)

// LatestCache is a single-slot, mutex-guarded cache of the most recent
// successfully decoded sample. The engine loop is the sole writer;
// arbitrary poller goroutines read it. Readers always receive an
// independent snapshot, never a reference into the slot.
type LatestCache struct {
	mu     sync.Mutex
	sample decode.Sample
}

func NewLatestCache() *LatestCache {
	return &LatestCache{}
}

// Set replaces the slot. The value is deep-copied on the way in so a
// mutating observer callback cannot alias cached state.
func (c *LatestCache) Set(sample decode.Sample) {
	snapshot := sample.Clone()
	c.mu.Lock()
	c.sample = snapshot
	c.mu.Unlock()
}

// Get returns a snapshot of the most recent sample, or false before the
// first successful decode (and after Clear).
func (c *LatestCache) Get() (decode.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sample == nil {
		return nil, false
	}
	return c.sample.Clone(), true
}

func (c *LatestCache) Clear() {
	c.mu.Lock()
	c.sample = nil
	c.mu.Unlock()
}
