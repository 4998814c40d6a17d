package ratelimit

import (
	"context"
	"sync"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"

	"golang.org/x/time/rate"
)

// State of a provider's cooldown window.
type State string

const (
	StateAvailable State = "available"
	StateCooling   State = "cooling"
)

type entry struct {
	limiter  *rate.Limiter
	cooldown time.Duration

	mu   sync.Mutex
	last time.Time
}

// Cooldown spaces calls to each provider by at least its cooldown.
// Callers inside the window wait for the remainder instead of being rejected.
type Cooldown struct {
	Default time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

var _ application.RateLimiter = (*Cooldown)(nil)

func NewCooldown(defaultCooldown time.Duration) *Cooldown {
	return &Cooldown{Default: defaultCooldown, entries: make(map[string]*entry)}
}

// Wait blocks until p may be called. The map lock is never held while waiting.
func (c *Cooldown) Wait(ctx context.Context, p domain.Provider) error {
	e := c.entry(p)
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.last = time.Now()
	e.mu.Unlock()
	return nil
}

// State reports whether the provider is cooling and for how much longer.
func (c *Cooldown) State(providerID string) (State, time.Duration) {
	c.mu.RLock()
	e, ok := c.entries[providerID]
	c.mu.RUnlock()
	if !ok {
		return StateAvailable, 0
	}
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()
	if last.IsZero() {
		return StateAvailable, 0
	}
	if remaining := e.cooldown - time.Since(last); remaining > 0 {
		return StateCooling, remaining
	}
	return StateAvailable, 0
}

// LastRequest returns when the provider was last let through.
func (c *Cooldown) LastRequest(providerID string) (time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[providerID]
	c.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, !e.last.IsZero()
}

func (c *Cooldown) entry(p domain.Provider) *entry {
	c.mu.RLock()
	e, ok := c.entries[p.ID]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[p.ID]; ok {
		return e
	}
	cd := p.Cooldown
	if cd <= 0 {
		cd = c.Default
	}
	limit := rate.Inf
	if cd > 0 {
		limit = rate.Every(cd)
	}
	e = &entry{limiter: rate.NewLimiter(limit, 1), cooldown: cd}
	c.entries[p.ID] = e
	return e
}
