package events

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedup drops re-delivered detector events inside a short window.
// Detectors retry publishes, so the same event can arrive twice.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func NewDedup(maxKeys int, ttlSeconds int) *Dedup {
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{
		cache: c,
		ttl:   time.Duration(ttlSeconds) * time.Second,
	}
}

func (d *Dedup) IsDuplicate(key string) bool {
	if addedAt, ok := d.cache.Get(key); ok {
		if time.Since(addedAt) < d.ttl {
			return true
		}
	}
	d.cache.Add(key, time.Now())
	return false
}

// DedupKey buckets the timestamp to 1 second so micro-timing drift
// between retries still collapses to one key. The event_id is left out
// on purpose: retried publishes carry fresh ids, so distinct events of
// the same source, zone, and type inside one bucket are treated as
// retries and collapse to one.
func DedupKey(e *DetectionEvent) string {
	ts := e.Timestamp.Truncate(time.Second).Unix()
	return fmt.Sprintf("%s|%s|%s|%d", e.SourceID, e.ZoneID, e.EventType, ts)
}
