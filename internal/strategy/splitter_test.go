package strategy

import (
	"math"
	"testing"
	"time"

	"RouteForge/internal/domain/models"
)

func splitRoute(impact float64) *models.RouteProposal {
	return &models.RouteProposal{ID: "r1", PriceImpact: impact}
}

func lowAnalysis() *models.MEVAnalysis {
	return &models.MEVAnalysis{Tier: models.TierLow}
}

func TestSplitPartsScaleWithImpact(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 1)

	cases := []struct {
		impact  float64
		parts   int
		enabled bool
	}{
		{0.005, 1, false},
		{0.015, 2, true},
		{0.03, 3, true},
		{0.06, 4, true},
	}
	for _, tc := range cases {
		plan := s.Plan(splitRoute(tc.impact), lowAnalysis(), 0)
		if plan.Enabled != tc.enabled {
			t.Fatalf("impact %v: enabled=%v, want %v", tc.impact, plan.Enabled, tc.enabled)
		}
		if plan.Parts != tc.parts {
			t.Fatalf("impact %v: parts=%d, want %d", tc.impact, plan.Parts, tc.parts)
		}
	}
}

func TestSplitSizesSumToOne(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 42)

	for i := 0; i < 50; i++ {
		plan := s.Plan(splitRoute(0.06), lowAnalysis(), time.Minute)
		sum := 0.0
		for _, f := range plan.SizeDistribution {
			if f <= 0 {
				t.Fatalf("non-positive part size %v", f)
			}
			sum += f
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Fatalf("sizes sum to %v, want 1.0", sum)
		}
	}
}

func TestSplitTriggersOnHighRiskTierAlone(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 7)
	plan := s.Plan(splitRoute(0.002), &models.MEVAnalysis{Tier: models.TierHigh}, 0)
	if !plan.Enabled {
		t.Fatalf("high risk tier must trigger a split even at low impact")
	}
}

func TestSplitDelaysAreSpaced(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 3)
	plan := s.Plan(splitRoute(0.06), lowAnalysis(), 2*time.Minute)

	if len(plan.PartDelays) != plan.Parts {
		t.Fatalf("got %d delays for %d parts", len(plan.PartDelays), plan.Parts)
	}
	if plan.PartDelays[0] != 0 {
		t.Fatalf("first part must execute immediately, delay %v", plan.PartDelays[0])
	}
	for i := 1; i < len(plan.PartDelays); i++ {
		if plan.PartDelays[i] <= plan.PartDelays[i-1] {
			t.Fatalf("delays not increasing: %v", plan.PartDelays)
		}
	}
}

func TestSplitSlippageReductionGrowsWithParts(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 9)

	two := s.Plan(splitRoute(0.015), lowAnalysis(), 0)
	four := s.Plan(splitRoute(0.06), lowAnalysis(), 0)
	// relative reduction: 1-1/sqrt(parts) grows with parts
	relTwo := two.EstimatedSlippageReduction / 0.015
	relFour := four.EstimatedSlippageReduction / 0.06
	if relFour <= relTwo {
		t.Fatalf("relative reduction must grow with parts: %v vs %v", relTwo, relFour)
	}
}

func TestSplitMEVReductionIsCapped(t *testing.T) {
	s := NewSplitterWithSeed(SplitterConfig{}, 11)
	analysis := &models.MEVAnalysis{
		Tier: models.TierHigh,
		Threats: []models.Threat{
			{Type: models.ThreatSandwich, Probability: 0.9, EstimatedImpactUSD: 1000},
		},
	}
	plan := s.Plan(splitRoute(0.06), analysis, 0)
	if plan.EstimatedMEVReductionUSD > 1000*0.7+1e-9 {
		t.Fatalf("reduction %v exceeds the 70%% cap", plan.EstimatedMEVReductionUSD)
	}
	if plan.EstimatedMEVReductionUSD <= 0 {
		t.Fatalf("sandwich exposure should yield a positive reduction")
	}
}
