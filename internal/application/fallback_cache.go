package application

import (
	"sync"
	"time"

	"lspquotes-service/internal/domain"
)

type fallbackEntry struct {
	quotes  []domain.Quote
	written time.Time
}

// FallbackCache is an in-process copy of the last round per channel size.
// It is read only when the persistent store fails.
type FallbackCache struct {
	ttl   time.Duration
	clock Clock

	mu      sync.RWMutex
	entries map[int64]fallbackEntry
}

func NewFallbackCache(ttl time.Duration, clock Clock) *FallbackCache {
	if clock == nil {
		clock = realClock{}
	}
	return &FallbackCache{ttl: ttl, clock: clock, entries: make(map[int64]fallbackEntry)}
}

func (c *FallbackCache) Put(channelSizeSat int64, quotes []domain.Quote) {
	cp := append([]domain.Quote(nil), quotes...)
	c.mu.Lock()
	c.entries[channelSizeSat] = fallbackEntry{quotes: cp, written: c.clock.Now()}
	c.mu.Unlock()
}

// Get returns a copy of the entry if present and not expired.
func (c *FallbackCache) Get(channelSizeSat int64) ([]domain.Quote, bool) {
	c.mu.RLock()
	e, ok := c.entries[channelSizeSat]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.clock.Now().Sub(e.written) > c.ttl {
		c.mu.Lock()
		if cur, ok := c.entries[channelSizeSat]; ok && cur.written.Equal(e.written) {
			delete(c.entries, channelSizeSat)
		}
		c.mu.Unlock()
		return nil, false
	}
	return append([]domain.Quote(nil), e.quotes...), true
}
