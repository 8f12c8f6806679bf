package mev

import (
	"strings"
	"testing"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

type fixedFeed struct {
	cond models.MarketConditions
}

func (f fixedFeed) Snapshot() models.MarketConditions { return f.cond }

func calmConditions() models.MarketConditions {
	return models.MarketConditions{
		Volatility:         0.1,
		GasPriceGwei:       15,
		NetworkUtilization: 0.3,
		CompetitorActivity: 0.1,
		Timestamp:          time.Now(),
	}
}

func hostileConditions() models.MarketConditions {
	return models.MarketConditions{
		Volatility:         0.8,
		GasPriceGwei:       120,
		NetworkUtilization: 0.95,
		PendingTxCount:     12000,
		CompetitorActivity: 0.9,
		SpreadWidening:     true,
		OrderBookImbalance: 0.5,
		VolatilityWindow:   true,
		Timestamp:          time.Now(),
	}
}

func impactRoute(impact float64) *models.RouteProposal {
	return &models.RouteProposal{
		ID:          "r1",
		Hops:        []models.RouteHop{{Venue: "uniswap-v3", FromToken: "WETH", ToToken: "USDC", ChainID: "ethereum", AmountIn: 100}},
		PriceImpact: impact,
		Confidence:  0.9,
	}
}

func TestAnalyzeCalmLowImpactIsLowTier(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{}, fixedFeed{calmConditions()}, logger.Nop(), domsvc.NopMetrics{})
	analysis := a.Analyze(impactRoute(0.001), 1000)

	if analysis.Tier != models.TierLow {
		t.Fatalf("got tier %s, want low", analysis.Tier)
	}
	if len(analysis.Threats) != 4 {
		t.Fatalf("all four threat models must be scored, got %d", len(analysis.Threats))
	}
}

func TestAnalyzeHostileHighImpactEscalatesTier(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{}, fixedFeed{hostileConditions()}, logger.Nop(), domsvc.NopMetrics{})
	analysis := a.Analyze(impactRoute(0.05), 500_000)

	if analysis.Tier.Rank() < models.TierHigh.Rank() {
		t.Fatalf("hostile conditions with 5%% impact scored %s", analysis.Tier)
	}
	if analysis.EstimatedLossUSD <= 0 {
		t.Fatalf("expected positive expected loss")
	}
	if !strings.Contains(analysis.Reasoning, string(analysis.Tier)) {
		t.Fatalf("reasoning should name the tier: %q", analysis.Reasoning)
	}
}

func TestThreatProbabilityNeverExceedsCap(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{}, fixedFeed{hostileConditions()}, logger.Nop(), domsvc.NopMetrics{})
	route := impactRoute(0.2)
	route.RiskTags = []string{"thin-liquidity"}
	route.EstimatedTime = 5 * time.Minute
	analysis := a.Analyze(route, 1_000_000)

	for _, th := range analysis.Threats {
		if th.Probability > defaultMaxThreatProbability {
			t.Fatalf("%s probability %v exceeds cap", th.Type, th.Probability)
		}
	}
}

func TestConfiguredProbabilityCapIsHonored(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{MaxThreatProbability: 0.6}, fixedFeed{hostileConditions()}, logger.Nop(), domsvc.NopMetrics{})
	route := impactRoute(0.2)
	route.RiskTags = []string{"thin-liquidity"}
	analysis := a.Analyze(route, 1_000_000)

	for _, th := range analysis.Threats {
		if th.Probability > 0.6 {
			t.Fatalf("%s probability %v exceeds the configured cap", th.Type, th.Probability)
		}
	}
}

func TestConfiguredPoliciesDriveCandidates(t *testing.T) {
	policies := TierPolicies{
		models.TierLow:      {MaxCostUSD: 1, MinEffectiveness: 0.99},
		models.TierMedium:   {MaxCostUSD: 1, MinEffectiveness: 0.99},
		models.TierHigh:     {MaxCostUSD: 1, MinEffectiveness: 0.99},
		models.TierCritical: {MaxCostUSD: 1, MinEffectiveness: 0.99},
	}
	a := NewAnalyzer(AnalyzerConfig{Policies: policies}, fixedFeed{hostileConditions()}, logger.Nop(), domsvc.NopMetrics{})
	analysis := a.Analyze(impactRoute(0.05), 500_000)

	if len(analysis.Protections) != 0 {
		t.Fatalf("impossible policy should leave no candidates, got %v", analysis.Protections)
	}
	if got := a.CandidateProtections(models.TierHigh); len(got) != 0 {
		t.Fatalf("CandidateProtections must follow the configured policies, got %v", got)
	}
}

func TestSandwichImpactScalesWithNotional(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{}, fixedFeed{calmConditions()}, logger.Nop(), domsvc.NopMetrics{})
	route := impactRoute(0.02)

	small := a.Analyze(route, 10_000)
	large := a.Analyze(route, 1_000_000)

	if large.ThreatImpact(models.ThreatSandwich) <= small.ThreatImpact(models.ThreatSandwich) {
		t.Fatalf("sandwich impact must grow with trade size")
	}
	// attacker captures half the victim's own movement
	want := 1_000_000 * 0.02 * 0.5
	if got := large.ThreatImpact(models.ThreatSandwich); got != want {
		t.Fatalf("got sandwich impact %v, want %v", got, want)
	}
}

func TestTierForCutoffs(t *testing.T) {
	cases := []struct {
		p    float64
		want models.RiskTier
	}{
		{0.0, models.TierLow},
		{0.19, models.TierLow},
		{0.2, models.TierMedium},
		{0.49, models.TierMedium},
		{0.5, models.TierHigh},
		{0.79, models.TierHigh},
		{0.8, models.TierCritical},
		{0.95, models.TierCritical},
	}
	for _, tc := range cases {
		if got := models.TierFor(tc.p); got != tc.want {
			t.Fatalf("TierFor(%v) = %s, want %s", tc.p, got, tc.want)
		}
	}
}
