package oracle

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

// LiquidityClient lists venue pools per chain.
type LiquidityClient struct {
	base httpBase
	log  *logger.Logger
}

// NewLiquidityClient creates a liquidity data client.
func NewLiquidityClient(baseURL string, timeout time.Duration, log *logger.Logger) *LiquidityClient {
	return &LiquidityClient{base: newHTTPBase(baseURL, timeout), log: log}
}

type poolWireEntry struct {
	ID           string  `json:"id"`
	AssetA       string  `json:"assetA"`
	AssetB       string  `json:"assetB"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	Fee          float64 `json:"fee"`
	Reliability  float64 `json:"reliability"`
}

// Pools returns the pool list for one venue on one chain.
func (c *LiquidityClient) Pools(ctx context.Context, venue, chainID string) ([]models.Pool, error) {
	q := url.Values{}
	q.Set("venue", venue)
	q.Set("chain", chainID)

	var wire []poolWireEntry
	if err := c.base.getJSON(ctx, "/pools?"+q.Encode(), &wire); err != nil {
		return nil, fmt.Errorf("liquidity pools %s/%s: %w", venue, chainID, err)
	}

	pools := make([]models.Pool, 0, len(wire))
	for _, p := range wire {
		if p.ID == "" || p.AssetA == "" || p.AssetB == "" {
			c.log.Warn("liquidity pool entry missing identity, skipped",
				logger.String("venue", venue))
			continue
		}
		rel := p.Reliability
		if rel <= 0 || rel > 1 {
			rel = 0.9
		}
		pools = append(pools, models.Pool{
			ID:           p.ID,
			AssetA:       p.AssetA,
			AssetB:       p.AssetB,
			LiquidityUSD: p.LiquidityUSD,
			Fee:          p.Fee,
			Reliability:  rel,
		})
	}
	return pools, nil
}

var _ domsvc.LiquiditySource = (*LiquidityClient)(nil)
