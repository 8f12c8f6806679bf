// Package mev scores routes against adversarial-extraction threat
// models and selects counter-measures proportionate to the risk tier.
package mev

import (
	"fmt"
	"strings"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

// defaultMaxThreatProbability caps every individual threat score.
const defaultMaxThreatProbability = 0.95

// snapshotFreshWindow is how old a market snapshot can be before the
// analysis confidence starts degrading.
const snapshotFreshWindow = 2 * time.Minute

// AnalyzerConfig tunes the threat analyzer.
type AnalyzerConfig struct {
	// MaxThreatProbability caps each individual threat score.
	MaxThreatProbability float64
	// Policies are the per-tier protection requirements used to
	// populate candidate sets.
	Policies TierPolicies
}

func (c *AnalyzerConfig) applyDefaults() {
	if c.MaxThreatProbability <= 0 || c.MaxThreatProbability > 1 {
		c.MaxThreatProbability = defaultMaxThreatProbability
	}
	if c.Policies == nil {
		c.Policies = DefaultTierPolicies()
	}
}

// Analyzer scores a route against the four threat models.
type Analyzer struct {
	cfg     AnalyzerConfig
	feed    domsvc.MarketFeed
	log     *logger.Logger
	metrics domsvc.Metrics
}

// NewAnalyzer creates a threat analyzer.
func NewAnalyzer(cfg AnalyzerConfig, feed domsvc.MarketFeed, log *logger.Logger, metrics domsvc.Metrics) *Analyzer {
	cfg.applyDefaults()
	return &Analyzer{cfg: cfg, feed: feed, log: log, metrics: metrics}
}

// CandidateProtections returns the strategies qualifying at a tier
// under the analyzer's policies, strongest first.
func (a *Analyzer) CandidateProtections(tier models.RiskTier) []models.ProtectionStrategy {
	return a.cfg.Policies.Candidates(tier)
}

// Analyze scores one route against the live market snapshot. tradeUSD
// is the input notional in USD. The returned analysis always carries
// all four threats, a tier, and a candidate protection set ordered by
// effectiveness.
func (a *Analyzer) Analyze(route *models.RouteProposal, tradeUSD float64) *models.MEVAnalysis {
	return a.AnalyzeWith(route, tradeUSD, a.feed.Snapshot())
}

// AnalyzeWith scores a route under caller-supplied market conditions.
func (a *Analyzer) AnalyzeWith(route *models.RouteProposal, tradeUSD float64, cond models.MarketConditions) *models.MEVAnalysis {
	threats := []models.Threat{
		a.sandwichThreat(route, tradeUSD, cond),
		a.frontrunThreat(route, tradeUSD, cond),
		a.arbitrageThreat(route, tradeUSD, cond),
		a.liquidationThreat(route, tradeUSD, cond),
	}

	analysis := &models.MEVAnalysis{
		RouteID: route.ID,
		Threats: threats,
	}
	analysis.Tier = models.TierFor(analysis.MaxThreatProbability())
	analysis.EstimatedLossUSD = expectedLoss(threats)
	analysis.Confidence = a.analysisConfidence(cond, threats)
	analysis.Protections = a.cfg.Policies.Candidates(analysis.Tier)
	analysis.Reasoning = a.reasoning(analysis)

	a.metrics.RecordMEVAnalysis(string(analysis.Tier))
	a.log.Debug("mev analysis",
		logger.String("route", route.ID),
		logger.String("tier", string(analysis.Tier)),
		logger.Float64("maxProbability", analysis.MaxThreatProbability()),
		logger.Float64("estimatedLossUsd", analysis.EstimatedLossUSD))
	return analysis
}

// sandwichThreat scores the attack of bracketing the victim trade with
// a buy before and a sell after. Driven by price impact: the attacker's
// profit ceiling is the price movement the victim causes.
func (a *Analyzer) sandwichThreat(route *models.RouteProposal, tradeUSD float64, cond models.MarketConditions) models.Threat {
	score := 0.0
	var signals []string

	if route.PriceImpact > 0.02 {
		score += 0.45
		signals = append(signals, "price impact above 2%")
	} else if route.PriceImpact > 0.005 {
		score += 0.25
		signals = append(signals, "moderate price impact")
	}
	if hasTag(route.RiskTags, "thin-liquidity") {
		score += 0.2
		signals = append(signals, "thin pool on path")
	}
	if cond.CompetitorActivity > 0.5 {
		score += 0.15 * cond.CompetitorActivity
		signals = append(signals, "elevated searcher activity")
	}
	if cond.PendingTxCount > 5000 {
		score += 0.1
		signals = append(signals, "crowded mempool")
	}

	return models.Threat{
		Type:        models.ThreatSandwich,
		Probability: a.clampProbability(score),
		// attacker captures roughly half the victim's own price movement
		EstimatedImpactUSD: tradeUSD * route.PriceImpact * 0.5,
		Signals:            signals,
	}
}

// frontrunThreat scores generic transaction-ordering attacks: a copycat
// paying more gas to land first.
func (a *Analyzer) frontrunThreat(route *models.RouteProposal, tradeUSD float64, cond models.MarketConditions) models.Threat {
	score := 0.0
	var signals []string

	if cond.CompetitorActivity > 0.3 {
		score += 0.35 * cond.CompetitorActivity
		signals = append(signals, "searcher activity")
	}
	if cond.GasPriceGwei > 50 {
		score += 0.15
		signals = append(signals, "gas auction conditions")
	}
	if cond.SpreadWidening {
		score += 0.2
		signals = append(signals, "spreads widening")
	}
	if tradeUSD > 100_000 {
		score += 0.15
		signals = append(signals, "large notional")
	}

	return models.Threat{
		Type:               models.ThreatFrontrun,
		Probability:        a.clampProbability(score),
		EstimatedImpactUSD: tradeUSD * 0.003 * a.clampProbability(score),
		Signals:            signals,
	}
}

// arbitrageThreat scores backrun extraction: the dislocation a
// multi-hop trade leaves behind is free profit for the next actor and
// worsens the victim's effective price.
func (a *Analyzer) arbitrageThreat(route *models.RouteProposal, tradeUSD float64, cond models.MarketConditions) models.Threat {
	score := 0.0
	var signals []string

	if len(route.Hops) > 1 {
		score += 0.15 * float64(len(route.Hops)-1)
		signals = append(signals, "multi-hop dislocation")
	}
	if cond.OrderBookImbalance > 0.3 {
		score += 0.2
		signals = append(signals, "order book imbalance")
	}
	if cond.Volatility > 0.5 {
		score += 0.2 * cond.Volatility
		signals = append(signals, "volatile market")
	}

	return models.Threat{
		Type:               models.ThreatArbitrage,
		Probability:        a.clampProbability(score),
		EstimatedImpactUSD: tradeUSD * route.PriceImpact * 0.3,
		Signals:            signals,
	}
}

// liquidationThreat scores cascade risk: volatile conditions around a
// large trade can trip liquidations that move the books mid-route.
func (a *Analyzer) liquidationThreat(route *models.RouteProposal, tradeUSD float64, cond models.MarketConditions) models.Threat {
	score := 0.0
	var signals []string

	if cond.VolatilityWindow {
		score += 0.25
		signals = append(signals, "volatility window open")
	}
	if cond.Volatility > 0.7 && tradeUSD > 250_000 {
		score += 0.2
		signals = append(signals, "large trade in volatile market")
	}
	if route.EstimatedTime > time.Minute {
		score += 0.1
		signals = append(signals, "long execution window")
	}

	return models.Threat{
		Type:               models.ThreatLiquidation,
		Probability:        a.clampProbability(score),
		EstimatedImpactUSD: tradeUSD * 0.001 * a.clampProbability(score),
		Signals:            signals,
	}
}

// expectedLoss is the probability-weighted sum across threats.
func expectedLoss(threats []models.Threat) float64 {
	total := 0.0
	for _, t := range threats {
		total += t.Probability * t.EstimatedImpactUSD
	}
	return total
}

// analysisConfidence reflects how much signal backed the scores: stale
// snapshots and signal-free threats lower it.
func (a *Analyzer) analysisConfidence(cond models.MarketConditions, threats []models.Threat) float64 {
	conf := 0.9
	if time.Since(cond.Timestamp) > snapshotFreshWindow {
		conf -= 0.2
	}
	signalCount := 0
	for _, t := range threats {
		signalCount += len(t.Signals)
	}
	if signalCount == 0 {
		conf -= 0.3
	}
	if conf < 0.3 {
		conf = 0.3
	}
	return conf
}

func (a *Analyzer) reasoning(analysis *models.MEVAnalysis) string {
	dominant := analysis.Threats[0]
	for _, t := range analysis.Threats[1:] {
		if t.Probability > dominant.Probability {
			dominant = t
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s risk: dominant threat is %s (p=%.2f)",
		analysis.Tier, dominant.Type, dominant.Probability)
	if len(dominant.Signals) > 0 {
		fmt.Fprintf(&b, " driven by %s", strings.Join(dominant.Signals, ", "))
	}
	fmt.Fprintf(&b, "; expected loss $%.2f", analysis.EstimatedLossUSD)
	return b.String()
}

func (a *Analyzer) clampProbability(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > a.cfg.MaxThreatProbability {
		return a.cfg.MaxThreatProbability
	}
	return v
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
