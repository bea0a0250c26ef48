package alert

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown suppresses repeat alerts for the same zone inside a window.
// It runs strictly after validation and never changes plan or
// validation semantics; suppressed cycles are still audit-logged.
type Cooldown struct {
	client *redis.Client
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewCooldown builds a cooldown over redis. client may be nil, in which
// case an in-process map is used; the pipeline must keep working when
// redis is unconfigured or down.
func NewCooldown(client *redis.Client, window time.Duration) *Cooldown {
	return &Cooldown{
		client: client,
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Allow reports whether an alert for this zone may be emitted now, and
// records the emission if so. Redis errors degrade to the local map.
func (c *Cooldown) Allow(ctx context.Context, zoneID string) bool {
	if c.window <= 0 {
		return true
	}

	if c.client != nil {
		ok, err := c.client.SetNX(ctx, "alert_cooldown:"+zoneID, time.Now().Unix(), c.window).Result()
		if err == nil {
			return ok
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.seen[zoneID]; ok && time.Since(last) < c.window {
		return false
	}
	c.seen[zoneID] = time.Now()
	return true
}
