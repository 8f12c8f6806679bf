package engine

import (
	"context"
	"errors"
	"testing"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/mev"
	"RouteForge/internal/routing"
	"RouteForge/pkg/logger"
)

// bogusTask sits outside the dispatch union.
type bogusTask struct{}

func (bogusTask) taskKind() string { return "bogus" }

func TestDispatchRejectsUnknownTask(t *testing.T) {
	eng := New(Deps{Log: logger.Nop(), Metrics: domsvc.NopMetrics{}})

	_, err := eng.Dispatch(context.Background(), bogusTask{})
	var unknown *ErrUnknownTask
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v, want ErrUnknownTask", err)
	}
	if unknown.Kind != "bogus" {
		t.Fatalf("error names kind %q", unknown.Kind)
	}

	_, err = eng.Dispatch(context.Background(), nil)
	if !errors.As(err, &unknown) || unknown.Kind != "nil" {
		t.Fatalf("nil task: got %v", err)
	}
}

func newRiskToleranceEngine() *Engine {
	return New(Deps{
		Log:      logger.Nop(),
		Metrics:  domsvc.NopMetrics{},
		Analyzer: mev.NewAnalyzer(mev.AnalyzerConfig{}, nil, logger.Nop(), domsvc.NopMetrics{}),
	})
}

func TestApplyRiskToleranceRaisesTier(t *testing.T) {
	eng := newRiskToleranceEngine()
	analysis := &models.MEVAnalysis{
		Tier:        models.TierMedium,
		Protections: mev.CandidateProtections(models.TierMedium),
	}
	eng.applyRiskTolerance(analysis, "low")
	if analysis.Tier != models.TierHigh {
		t.Fatalf("low tolerance should raise medium to high, got %s", analysis.Tier)
	}
	if len(analysis.Protections) != len(mev.CandidateProtections(models.TierHigh)) {
		t.Fatalf("protections not refreshed for the raised tier")
	}
}

func TestApplyRiskToleranceLeavesOtherTolerancesAlone(t *testing.T) {
	eng := newRiskToleranceEngine()
	analysis := &models.MEVAnalysis{Tier: models.TierMedium}
	eng.applyRiskTolerance(analysis, "")
	if analysis.Tier != models.TierMedium {
		t.Fatalf("default tolerance must not change the tier")
	}
	eng.applyRiskTolerance(analysis, "high")
	if analysis.Tier != models.TierMedium {
		t.Fatalf("high tolerance must not change the tier")
	}
}

func TestApplyRiskToleranceSaturatesAtCritical(t *testing.T) {
	eng := newRiskToleranceEngine()
	analysis := &models.MEVAnalysis{Tier: models.TierCritical}
	eng.applyRiskTolerance(analysis, "low")
	if analysis.Tier != models.TierCritical {
		t.Fatalf("critical is the top tier, got %s", analysis.Tier)
	}
}

func TestTradeNotionalFallsBackToGraphPrice(t *testing.T) {
	eng := New(Deps{Log: logger.Nop(), Metrics: domsvc.NopMetrics{}})
	g := routing.NewGraph()
	g.AddNode(&routing.TokenNode{Address: "WETH", Symbol: "WETH", ChainID: "ethereum", PriceUSD: 2000})
	eng.graph = g

	route := &models.RouteProposal{
		Hops: []models.RouteHop{{FromToken: "WETH", ToToken: "USDC", AmountIn: 2}},
	}
	if got := eng.tradeNotional(route, 5000); got != 5000 {
		t.Fatalf("explicit notional must win, got %v", got)
	}
	if got := eng.tradeNotional(route, 0); got != 4000 {
		t.Fatalf("priced fallback: got %v, want 4000", got)
	}

	unknown := &models.RouteProposal{
		Hops: []models.RouteHop{{FromToken: "XYZ", AmountIn: 7}},
	}
	if got := eng.tradeNotional(unknown, 0); got != 7 {
		t.Fatalf("unpriced token falls back to raw amount, got %v", got)
	}
}
