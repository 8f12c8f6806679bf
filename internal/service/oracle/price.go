package oracle

import (
	"context"
	"net/url"
	"strings"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

// staticPrices is the fallback table for well-known assets when the
// oracle is unreachable or returns no entry.
var staticPrices = map[string]models.AssetPrice{
	"WETH": {USD: 3200, MarketCapUSD: 380e9},
	"WBTC": {USD: 62000, MarketCapUSD: 1200e9},
	"USDC": {USD: 1, MarketCapUSD: 35e9},
	"USDT": {USD: 1, MarketCapUSD: 110e9},
	"DAI":  {USD: 1, MarketCapUSD: 5e9},
}

// PriceClient resolves USD prices in batches.
type PriceClient struct {
	base httpBase
	log  *logger.Logger
}

// NewPriceClient creates a price oracle client.
func NewPriceClient(baseURL string, timeout time.Duration, log *logger.Logger) *PriceClient {
	return &PriceClient{base: newHTTPBase(baseURL, timeout), log: log}
}

type priceWireEntry struct {
	Asset     string  `json:"asset"`
	USD       float64 `json:"usd"`
	MarketCap float64 `json:"marketCap"`
	Volume24h float64 `json:"volume24h"`
}

// Prices returns USD prices for the given assets. Upstream failure or
// missing entries fall back to the static table; the error is logged,
// not returned, so the caller still gets a usable result.
func (c *PriceClient) Prices(ctx context.Context, chainID string, assets []string) (map[string]models.AssetPrice, error) {
	out := make(map[string]models.AssetPrice, len(assets))

	var wire []priceWireEntry
	q := url.Values{}
	q.Set("chain", chainID)
	q.Set("assets", strings.Join(assets, ","))
	err := c.base.getJSON(ctx, "/prices?"+q.Encode(), &wire)
	if err != nil {
		c.log.Warn("price oracle unavailable, using static table", logger.Error(err))
	} else {
		for _, e := range wire {
			if e.Asset == "" || e.USD <= 0 {
				continue
			}
			out[e.Asset] = models.AssetPrice{
				USD:          e.USD,
				MarketCapUSD: e.MarketCap,
				Volume24hUSD: e.Volume24h,
			}
		}
	}

	for _, a := range assets {
		if _, ok := out[a]; ok {
			continue
		}
		if p, ok := staticPrices[a]; ok {
			out[a] = p
		}
	}

	return out, nil
}

var _ domsvc.PriceOracle = (*PriceClient)(nil)
