package strategy

import (
	"context"
	"strconv"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/mev"
	"RouteForge/pkg/logger"
)

// TierHistory exposes the per-tier historical success rate. A negative
// value means no history is available for the tier yet.
type TierHistory interface {
	SuccessRate(tier models.RiskTier) float64
}

// Optimizer composes the full execution plan for one route candidate.
// It always returns a strategy: when a collaborator fails, the plan is
// assembled from what is available and the confidence is degraded.
type Optimizer struct {
	selector *mev.Selector
	timing   *TimingOptimizer
	splitter *Splitter
	scorer   *ConfidenceScorer
	history  TierHistory
	gas      domsvc.GasOracle
	feed     domsvc.MarketFeed
	log      *logger.Logger
}

// NewOptimizer creates a strategy optimizer.
func NewOptimizer(selector *mev.Selector, timing *TimingOptimizer, splitter *Splitter, scorer *ConfidenceScorer, history TierHistory, gas domsvc.GasOracle, feed domsvc.MarketFeed, log *logger.Logger) *Optimizer {
	return &Optimizer{
		selector: selector,
		timing:   timing,
		splitter: splitter,
		scorer:   scorer,
		history:  history,
		gas:      gas,
		feed:     feed,
		log:      log,
	}
}

// Optimize builds the execution strategy for a route and its threat
// analysis. tradeUSD is the input notional in USD.
func (o *Optimizer) Optimize(ctx context.Context, route *models.RouteProposal, analysis *models.MEVAnalysis, tradeUSD float64) *models.ExecutionStrategy {
	now := time.Now()
	degraded := false

	chainID := ""
	if len(route.Hops) > 0 {
		chainID = route.Hops[0].ChainID
	}
	curves, err := o.gas.Curves(ctx, chainID)
	if err != nil {
		// plan without gas data rather than fail the whole strategy
		o.log.Warn("gas curves unavailable, planning without them", logger.Error(err))
		curves = nil
		degraded = true
	}

	cond := o.feed.Snapshot()
	protection := o.selector.Select(analysis)
	timing := o.timing.Decide(curves, cond)
	windows := o.timing.Windows(now, timing)
	split := o.splitter.Plan(route, analysis, timing.RecommendedDelay)

	successRate := -1.0
	if o.history != nil {
		successRate = o.history.SuccessRate(analysis.Tier)
	}
	confidence := o.scorer.Score(analysis, cond, curves, successRate)
	if degraded {
		confidence = clampConfidence(confidence - 0.1)
	}

	strategy := &models.ExecutionStrategy{
		ID:                      "strat-" + strconv.FormatInt(now.UnixNano(), 36),
		RouteID:                 route.ID,
		RiskTier:                analysis.Tier,
		Protection:              protection,
		Gas:                     GasMode(analysis.Tier, curves),
		Timing:                  timing,
		Windows:                 windows,
		Split:                   split,
		Contingencies:           contingenciesFor(analysis.Tier, degraded),
		Confidence:              confidence,
		EstimatedImprovementUSD: estimatedImprovement(route, analysis, protection, split, timing, curves),
		CreatedAt:               now,
	}

	o.log.Info("execution strategy assembled",
		logger.String("strategy", strategy.ID),
		logger.String("route", route.ID),
		logger.String("tier", string(analysis.Tier)),
		logger.Bool("protected", protection.Enabled),
		logger.Bool("split", split.Enabled),
		logger.Float64("confidence", confidence))
	return strategy
}

func contingenciesFor(tier models.RiskTier, degraded bool) []string {
	out := []string{"abort-on-slippage-breach"}
	if tier.Rank() >= models.TierHigh.Rank() {
		out = append(out, "fallback-to-direct-route")
	}
	if tier == models.TierCritical {
		out = append(out, "cancel-and-resubmit-privately")
	}
	if degraded {
		out = append(out, "re-plan-when-gas-data-returns")
	}
	return out
}

// estimatedImprovement sums what the plan is expected to save versus a
// naive immediate unprotected submission.
func estimatedImprovement(route *models.RouteProposal, analysis *models.MEVAnalysis, protection models.ProtectionDecision, split models.SplitPlan, timing models.TimingDecision, curves *models.GasCurves) float64 {
	total := 0.0
	if protection.Enabled && protection.Strategy != nil {
		total += analysis.EstimatedLossUSD*protection.Strategy.Effectiveness - protection.Strategy.CostUSD
	}
	if split.Enabled {
		total += split.EstimatedMEVReductionUSD
	}
	if timing.GasDelay > 0 && curves != nil && curves.StandardGwei > 0 {
		saving := (curves.StandardGwei - curves.PredictedLowGwei) / curves.StandardGwei
		total += route.TotalGasUSD * saving
	}
	if total < 0 {
		total = 0
	}
	return total
}
