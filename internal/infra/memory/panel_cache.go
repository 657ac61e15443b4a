package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"weekly-trivia/internal/domain"
)

// PanelCache keeps the last-known panels per profile with a TTL so that a
// long-idle client does not show week-old standings.
type PanelCache struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu      sync.RWMutex
	entries map[string]cachedPanels
}

type cachedPanels struct {
	panels    domain.Panels
	expiresAt time.Time
}

// NewPanelCache returns a cache; ttl <= 0 keeps entries forever.
func NewPanelCache(ttl time.Duration) *PanelCache {
	return &PanelCache{
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cachedPanels),
	}
}

func (c *PanelCache) LoadPanels(_ context.Context, profile string) (domain.Panels, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[profile]
	if !ok {
		return domain.Panels{}, domain.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(c.clock()) {
		return domain.Panels{}, domain.ErrNotFound
	}
	return entry.panels, nil
}

func (c *PanelCache) SavePanels(_ context.Context, profile string, panels domain.Panels) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cachedPanels{panels: panels}
	if ttl := c.ttlWithJitterLocked(); ttl > 0 {
		entry.expiresAt = c.clock().Add(ttl)
	}
	c.entries[profile] = entry
	return nil
}

func (c *PanelCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter so profiles saved together do not expire together
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
