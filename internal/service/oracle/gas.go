package oracle

import (
	"context"
	"net/url"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

const historySize = 10

// defaultGasGwei is the last-resort table when neither the oracle nor
// local history is available.
var defaultGasGwei = map[string]float64{
	"ethereum": 25,
	"arbitrum": 0.1,
	"polygon":  40,
	"base":     0.05,
}

// GasClient fetches gas price tiers. Successful responses feed a small
// per-chain rolling history; when the upstream fails, the rolling
// average serves as fallback, then the hardcoded defaults.
type GasClient struct {
	base httpBase
	log  *logger.Logger

	mu      sync.Mutex
	history map[string][]float64 // standard-tier samples per chain
}

// NewGasClient creates a gas oracle client.
func NewGasClient(baseURL string, timeout time.Duration, log *logger.Logger) *GasClient {
	return &GasClient{
		base:    newHTTPBase(baseURL, timeout),
		log:     log,
		history: make(map[string][]float64),
	}
}

type gasWireResponse struct {
	Fast     float64 `json:"fast"`
	Standard float64 `json:"standard"`
	Safe     float64 `json:"safe"`
}

// Curves returns gas tiers for a chain, best-effort.
func (c *GasClient) Curves(ctx context.Context, chainID string) (*models.GasCurves, error) {
	q := url.Values{}
	q.Set("chain", chainID)

	var wire gasWireResponse
	err := c.base.getJSON(ctx, "/gas?"+q.Encode(), &wire)
	if err == nil && wire.Standard > 0 {
		c.record(chainID, wire.Standard)
		return c.withPrediction(chainID, &models.GasCurves{
			ChainID:      chainID,
			FastGwei:     wire.Fast,
			StandardGwei: wire.Standard,
			SafeGwei:     wire.Safe,
			Source:       "oracle",
		}), nil
	}
	if err != nil {
		c.log.Warn("gas oracle unavailable, using fallback", logger.Error(err))
	}

	if avg, ok := c.rollingAverage(chainID); ok {
		return c.withPrediction(chainID, &models.GasCurves{
			ChainID:      chainID,
			FastGwei:     avg * 1.25,
			StandardGwei: avg,
			SafeGwei:     avg * 0.85,
			Source:       "rolling-average",
		}), nil
	}

	std, ok := defaultGasGwei[chainID]
	if !ok {
		std = 20
	}
	return c.withPrediction(chainID, &models.GasCurves{
		ChainID:      chainID,
		FastGwei:     std * 1.25,
		StandardGwei: std,
		SafeGwei:     std * 0.85,
		Source:       "default",
	}), nil
}

// withPrediction fills the short-horizon prediction from history: when
// the current price is above the rolling average, predict reversion to
// it within a few minutes.
func (c *GasClient) withPrediction(chainID string, curves *models.GasCurves) *models.GasCurves {
	avg, ok := c.rollingAverage(chainID)
	if ok && avg < curves.StandardGwei {
		curves.PredictedLowGwei = avg
		curves.PredictedWait = 3 * time.Minute
	} else {
		curves.PredictedLowGwei = curves.StandardGwei
		curves.PredictedWait = 0
	}
	return curves
}

func (c *GasClient) record(chainID string, standard float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := append(c.history[chainID], standard)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	c.history[chainID] = h
}

func (c *GasClient) rollingAverage(chainID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history[chainID]
	if len(h) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range h {
		sum += v
	}
	return sum / float64(len(h)), true
}

// Observe feeds an externally observed gas sample into the history,
// e.g. from the market feed.
func (c *GasClient) Observe(chainID string, standardGwei float64) {
	if standardGwei > 0 {
		c.record(chainID, standardGwei)
	}
}

var _ domsvc.GasOracle = (*GasClient)(nil)
