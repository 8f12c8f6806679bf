package consensus

import (
	"strings"
	"testing"
	"time"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

func candidate(id string, gasUSD, impact, confidence float64, secs int) Candidate {
	return Candidate{
		Route: &models.RouteProposal{
			ID:            id,
			TotalGasUSD:   gasUSD,
			PriceImpact:   impact,
			Confidence:    confidence,
			EstimatedTime: time.Duration(secs) * time.Second,
			Hops:          []models.RouteHop{{Venue: "uniswap-v3"}},
		},
	}
}

func TestSelectRejectsEmptyCandidates(t *testing.T) {
	c := NewCoordinator(logger.Nop())
	if _, err := c.Select(nil, models.DefaultConsensusCriteria()); err == nil {
		t.Fatalf("empty candidate set must error")
	}
	// nil routes are skipped, not scored
	if _, err := c.Select([]Candidate{{}}, models.DefaultConsensusCriteria()); err == nil {
		t.Fatalf("only-unscorable candidates must error")
	}
}

func TestSelectDominantCandidateWinsUnderAnyWeights(t *testing.T) {
	c := NewCoordinator(logger.Nop())
	candidates := []Candidate{
		candidate("weak", 80, 0.04, 0.5, 120),
		candidate("dominant", 5, 0.002, 0.95, 15),
		candidate("middling", 30, 0.01, 0.7, 45),
	}

	criteria := []models.ConsensusCriteria{
		models.DefaultConsensusCriteria(),
		{Cost: 1},
		{Time: 1},
		{Reliability: 1},
		{Slippage: 1},
		{Cost: 0.5, Slippage: 0.5},
	}
	for _, crit := range criteria {
		decision, err := c.Select(candidates, crit)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if decision.RouteID != "dominant" {
			t.Fatalf("criteria %+v picked %s, want dominant", crit, decision.RouteID)
		}
	}
}

func TestSelectSkewedWeightsFlipTheWinner(t *testing.T) {
	c := NewCoordinator(logger.Nop())
	cheapButSlow := candidate("cheap", 1, 0.01, 0.7, 300)
	fastButPricey := candidate("fast", 90, 0.01, 0.7, 5)

	costFirst, err := c.Select([]Candidate{cheapButSlow, fastButPricey}, models.ConsensusCriteria{Cost: 1})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if costFirst.RouteID != "cheap" {
		t.Fatalf("cost-only criteria picked %s", costFirst.RouteID)
	}

	timeFirst, err := c.Select([]Candidate{cheapButSlow, fastButPricey}, models.ConsensusCriteria{Time: 1})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if timeFirst.RouteID != "fast" {
		t.Fatalf("time-only criteria picked %s", timeFirst.RouteID)
	}
}

func TestSecurityScoreCreditsProtectionDebitsThreat(t *testing.T) {
	bare := candidate("r1", 10, 0.01, 0.8, 30)

	threatened := candidate("r1", 10, 0.01, 0.8, 30)
	threatened.Analysis = &models.MEVAnalysis{
		Threats: []models.Threat{{Type: models.ThreatSandwich, Probability: 0.9}},
	}

	protected := threatened
	protected.Strategy = &models.ExecutionStrategy{
		Protection: models.ProtectionDecision{Enabled: true},
	}

	if securityScore(threatened) >= securityScore(bare) {
		t.Fatalf("assessed threat must lower the security score")
	}
	if securityScore(protected) <= securityScore(threatened) {
		t.Fatalf("active protection must raise the security score")
	}
}

func TestDecisionConfidenceGrowsWithContext(t *testing.T) {
	bare := candidate("r1", 10, 0.01, 0.8, 30)

	rich := candidate("r1", 10, 0.01, 0.8, 30)
	rich.Analysis = &models.MEVAnalysis{Threats: []models.Threat{{Probability: 0.2}}}
	rich.Strategy = &models.ExecutionStrategy{
		Windows: []models.ExecutionWindow{{Score: 0.9}},
		Split:   models.SplitPlan{Enabled: true},
	}

	if decisionConfidence(rich) <= decisionConfidence(bare) {
		t.Fatalf("richer context must yield higher confidence")
	}
	if decisionConfidence(rich) > maxDecisionConfidence {
		t.Fatalf("confidence exceeds cap: %v", decisionConfidence(rich))
	}
}

func TestReasoningNamesStrongestCriteria(t *testing.T) {
	c := NewCoordinator(logger.Nop())
	cand := candidate("r1", 0, 0, 0.9, 5) // cost and slippage both score 1.0
	decision, err := c.Select([]Candidate{cand}, models.DefaultConsensusCriteria())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(decision.Reasoning, "cost") {
		t.Fatalf("reasoning should name the top sub-score: %q", decision.Reasoning)
	}
}

func TestNormalizeCriteria(t *testing.T) {
	n := normalizeCriteria(models.ConsensusCriteria{Cost: 2, Time: 2})
	if n.Cost != 0.5 || n.Time != 0.5 || n.Security != 0 {
		t.Fatalf("normalization wrong: %+v", n)
	}

	zero := normalizeCriteria(models.ConsensusCriteria{})
	def := models.DefaultConsensusCriteria()
	if zero != def {
		t.Fatalf("all-zero weights must fall back to defaults")
	}
}
