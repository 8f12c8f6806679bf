// Package strategy assembles per-route execution plans: timing, gas
// mode, order splitting and a calibrated confidence score.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

// TimingConfig tunes the timing optimizer.
type TimingConfig struct {
	// OptimalDelayMax is the longest wait still considered optimal
	// timing; longer recommendations are surfaced as-is but flagged
	// non-optimal.
	OptimalDelayMax time.Duration
	// GasSavingsThreshold is the minimum fractional gas saving that
	// justifies waiting for the predicted dip.
	GasSavingsThreshold float64
}

func (c *TimingConfig) applyDefaults() {
	if c.OptimalDelayMax <= 0 {
		c.OptimalDelayMax = time.Minute
	}
	if c.GasSavingsThreshold <= 0 {
		c.GasSavingsThreshold = 0.15
	}
}

// TimingOptimizer recommends when to submit: now, or after a bounded
// delay while gas falls, volatility passes or congestion clears.
type TimingOptimizer struct {
	cfg TimingConfig
	log *logger.Logger
}

// NewTimingOptimizer creates a timing optimizer.
func NewTimingOptimizer(cfg TimingConfig, log *logger.Logger) *TimingOptimizer {
	cfg.applyDefaults()
	return &TimingOptimizer{cfg: cfg, log: log}
}

// Decide combines the gas, market and congestion delays; the
// recommendation is the maximum of the three.
func (t *TimingOptimizer) Decide(curves *models.GasCurves, cond models.MarketConditions) models.TimingDecision {
	d := models.TimingDecision{
		GasDelay:        t.gasDelay(curves),
		MarketDelay:     t.marketDelay(cond),
		CongestionDelay: t.congestionDelay(cond),
	}

	d.RecommendedDelay = maxDuration(d.GasDelay, d.MarketDelay, d.CongestionDelay)
	d.Optimal = d.RecommendedDelay < t.cfg.OptimalDelayMax
	d.Reasoning = t.reasoning(d, curves, cond)
	return d
}

// gasDelay waits for a predicted dip only when the saving clears the
// threshold.
func (t *TimingOptimizer) gasDelay(curves *models.GasCurves) time.Duration {
	if curves == nil || curves.PredictedWait <= 0 || curves.StandardGwei <= 0 {
		return 0
	}
	saving := (curves.StandardGwei - curves.PredictedLowGwei) / curves.StandardGwei
	if saving < t.cfg.GasSavingsThreshold {
		return 0
	}
	return curves.PredictedWait
}

func (t *TimingOptimizer) marketDelay(cond models.MarketConditions) time.Duration {
	switch {
	case cond.VolatilityWindow:
		return 45 * time.Second
	case cond.SpreadWidening:
		return 20 * time.Second
	default:
		return 0
	}
}

func (t *TimingOptimizer) congestionDelay(cond models.MarketConditions) time.Duration {
	switch {
	case cond.NetworkUtilization > 0.9:
		return 40 * time.Second
	case cond.NetworkUtilization > 0.8:
		return 20 * time.Second
	default:
		return 0
	}
}

func (t *TimingOptimizer) reasoning(d models.TimingDecision, curves *models.GasCurves, cond models.MarketConditions) string {
	if d.RecommendedDelay == 0 {
		return "conditions favorable, execute immediately"
	}
	var parts []string
	if d.GasDelay > 0 && curves != nil {
		parts = append(parts, fmt.Sprintf("gas predicted to drop %.0f->%.0f gwei",
			curves.StandardGwei, curves.PredictedLowGwei))
	}
	if d.MarketDelay > 0 {
		if cond.VolatilityWindow {
			parts = append(parts, "volatility window open")
		} else {
			parts = append(parts, "spreads widening")
		}
	}
	if d.CongestionDelay > 0 {
		parts = append(parts, fmt.Sprintf("network at %.0f%% utilization", cond.NetworkUtilization*100))
	}
	return fmt.Sprintf("delay %s: %s", d.RecommendedDelay, strings.Join(parts, "; "))
}

// Windows projects favorable execution intervals from the decision: the
// recommended moment plus a fallback window after it.
func (t *TimingOptimizer) Windows(now time.Time, d models.TimingDecision) []models.ExecutionWindow {
	start := now.Add(d.RecommendedDelay)
	primary := models.ExecutionWindow{
		Start: start,
		End:   start.Add(30 * time.Second),
		Score: 0.9,
	}
	if d.Optimal {
		primary.Score = 1.0
	}
	fallback := models.ExecutionWindow{
		Start: primary.End,
		End:   primary.End.Add(2 * time.Minute),
		Score: 0.6,
	}
	return []models.ExecutionWindow{primary, fallback}
}

// GasMode picks a submission gas mode for the risk tier: higher tiers
// pay for fast inclusion to shrink the exposure window.
func GasMode(tier models.RiskTier, curves *models.GasCurves) models.GasStrategy {
	mode := "standard"
	fee := 0.0
	if curves != nil {
		fee = curves.StandardGwei
	}
	switch tier {
	case models.TierHigh, models.TierCritical:
		mode = "fast"
		if curves != nil {
			fee = curves.FastGwei
		}
	case models.TierLow:
		mode = "safe"
		if curves != nil {
			fee = curves.SafeGwei
		}
	}
	priority := fee * 0.1
	return models.GasStrategy{Mode: mode, MaxFeeGwei: fee, PriorityFeeGwei: priority}
}

func maxDuration(ds ...time.Duration) time.Duration {
	var max time.Duration
	for _, d := range ds {
		if d > max {
			max = d
		}
	}
	return max
}
