package service

import (
	"context"

	"RouteForge/internal/domain/models"
)

// QuoteService is the external quoting collaborator. An error response
// means the (pair, amount) is infeasible for that venue right now; it is
// never retried synchronously inside a search loop.
type QuoteService interface {
	Quote(ctx context.Context, req *models.QuoteRequest) (*models.Quote, error)
}

// PriceOracle resolves USD prices for a batch of asset identifiers.
// Missing entries are simply absent from the result map.
type PriceOracle interface {
	Prices(ctx context.Context, chainID string, assets []string) (map[string]models.AssetPrice, error)
}

// LiquiditySource lists pools for a venue on a chain.
type LiquiditySource interface {
	Pools(ctx context.Context, venue, chainID string) ([]models.Pool, error)
}

// GasOracle returns current gas price tiers for a chain.
type GasOracle interface {
	Curves(ctx context.Context, chainID string) (*models.GasCurves, error)
}

// MarketFeed supplies the latest market-conditions snapshot.
type MarketFeed interface {
	Snapshot() models.MarketConditions
}

// Metrics is the engine's metrics sink.
type Metrics interface {
	RecordSearch(mode, result string, seconds float64)
	RecordQuoteFetch(outcome string)
	RecordCacheHit()
	RecordCacheMiss()
	RecordMEVAnalysis(tier string)
	RecordOutcome(tier string, success bool)
	SetCalibrationSamples(tier string, n int)
	SetGraphSize(nodes, edges int)
	RecordError(kind string)
}

// NopMetrics discards all measurements. Used in tests and when metrics
// are disabled.
type NopMetrics struct{}

func (NopMetrics) RecordSearch(string, string, float64) {}
func (NopMetrics) RecordQuoteFetch(string)              {}
func (NopMetrics) RecordCacheHit()                      {}
func (NopMetrics) RecordCacheMiss()                     {}
func (NopMetrics) RecordMEVAnalysis(string)             {}
func (NopMetrics) RecordOutcome(string, bool)           {}
func (NopMetrics) SetCalibrationSamples(string, int)    {}
func (NopMetrics) SetGraphSize(int, int)                {}
func (NopMetrics) RecordError(string)                   {}
