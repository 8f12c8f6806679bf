package cache

import (
	"testing"
	"time"

	"RouteForge/internal/domain/models"
)

func TestQuoteCacheHitWithinTTL(t *testing.T) {
	c := NewQuoteCache(time.Minute)
	key := Key("ethereum", "WETH", "USDC", 1000)
	c.Set(key, &models.Quote{AmountOut: 997})

	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected hit for fresh entry")
	}
	if got.AmountOut != 997 {
		t.Fatalf("got amount out %v, want 997", got.AmountOut)
	}
}

func TestQuoteCacheExpiredEntryNeverReturned(t *testing.T) {
	c := NewQuoteCache(time.Minute)
	key := Key("ethereum", "WETH", "USDC", 1000)
	c.SetWithTTL(key, &models.Quote{AmountOut: 997}, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Fatalf("expired entry must not be returned")
	}
	// the expired read deletes the entry
	if c.Len() != 0 {
		t.Fatalf("expired entry should be deleted on read, len=%d", c.Len())
	}
}

func TestQuoteCacheKeyBucketsNearbyAmounts(t *testing.T) {
	a := Key("ethereum", "WETH", "USDC", 1000.00001)
	b := Key("ethereum", "WETH", "USDC", 1000.00002)
	if a != b {
		t.Fatalf("near-identical amounts must share a key: %q vs %q", a, b)
	}

	c := Key("ethereum", "WETH", "USDC", 2000)
	if a == c {
		t.Fatalf("distinct amounts must not collide")
	}
}

func TestQuoteCachePurge(t *testing.T) {
	c := NewQuoteCache(time.Minute)
	c.Set(Key("ethereum", "WETH", "USDC", 1), &models.Quote{AmountOut: 1})
	c.Set(Key("ethereum", "WETH", "DAI", 1), &models.Quote{AmountOut: 1})

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("purge left %d entries", c.Len())
	}
}
