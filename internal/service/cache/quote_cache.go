package cache

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
)

type entry struct {
	quote *models.Quote
	exp   time.Time
}

// QuoteCache is a TTL-keyed cache of quote results shared by all
// searches. An entry past its TTL is never returned; the next Get
// deletes it and reports a miss so the caller re-fetches. Writes are
// last-writer-wins: values for the same key within a TTL are
// equivalent, so no further coordination is needed.
type QuoteCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	ttl time.Duration
}

// NewQuoteCache creates a cache with the given default TTL.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &QuoteCache{m: make(map[string]entry), ttl: ttl}
}

// Key builds the cache key for a quote lookup. The amount is bucketed
// to four significant digits so near-identical amounts share entries.
func Key(chainID, from, to string, amountIn float64) string {
	return fmt.Sprintf("%s|%s|%s|%s", chainID, from, to, bucketAmount(amountIn))
}

func bucketAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// Get returns a live entry, or (nil, false) when absent or expired.
func (c *QuoteCache) Get(key string) (*models.Quote, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.quote, true
}

// Set stores a quote under the default TTL.
func (c *QuoteCache) Set(key string, q *models.Quote) {
	c.SetWithTTL(key, q, c.ttl)
}

// SetWithTTL stores a quote with an explicit TTL.
func (c *QuoteCache) SetWithTTL(key string, q *models.Quote, ttl time.Duration) {
	c.mu.Lock()
	c.m[key] = entry{quote: q, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Purge drops all entries.
func (c *QuoteCache) Purge() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
