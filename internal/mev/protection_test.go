package mev

import (
	"strings"
	"testing"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

func TestCandidatesMeetTierPolicy(t *testing.T) {
	policies := DefaultTierPolicies()

	low := policies.Candidates(models.TierLow)
	if len(low) == 0 {
		t.Fatalf("low tier has qualifying protections in the catalog")
	}
	for _, p := range low {
		if p.CostUSD > policies[models.TierLow].MaxCostUSD {
			t.Fatalf("low tier offered %s at $%v", p.Type, p.CostUSD)
		}
		if p.Effectiveness < policies[models.TierLow].MinEffectiveness {
			t.Fatalf("low tier offered %s below minimum effectiveness: %v", p.Type, p.Effectiveness)
		}
	}
	// strongest first
	for i := 1; i < len(low); i++ {
		if low[i].Effectiveness > low[i-1].Effectiveness {
			t.Fatalf("candidates not ordered by effectiveness")
		}
	}
}

func TestCriticalTierDemandsStrongestMeasure(t *testing.T) {
	critical := DefaultTierPolicies().Candidates(models.TierCritical)
	if len(critical) == 0 {
		t.Fatalf("critical tier must have at least one qualifying protection")
	}
	if critical[0].Effectiveness < 0.98 {
		t.Fatalf("critical tier minimum is 98%%, top candidate at %v", critical[0].Effectiveness)
	}
}

func TestSelectorProtectsLowTier(t *testing.T) {
	s := NewSelector(nil, logger.Nop())
	decision := s.Select(&models.MEVAnalysis{
		RouteID:          "r1",
		Tier:             models.TierLow,
		EstimatedLossUSD: 500,
		Protections:      CandidateProtections(models.TierLow),
	})
	if !decision.Enabled || decision.Strategy == nil {
		t.Fatalf("low tier with qualifying candidates must be protected: %+v", decision)
	}
	if decision.Strategy.Effectiveness < 0.80 {
		t.Fatalf("chosen protection %s is below the low-tier minimum", decision.Strategy.Type)
	}
}

func TestSelectorPicksHighestEffectiveness(t *testing.T) {
	s := NewSelector(nil, logger.Nop())
	decision := s.Select(&models.MEVAnalysis{
		RouteID:          "r1",
		Tier:             models.TierHigh,
		EstimatedLossUSD: 200,
		Protections:      CandidateProtections(models.TierHigh),
	})
	if !decision.Enabled || decision.Strategy == nil {
		t.Fatalf("high tier must be protected")
	}
	for _, p := range CandidateProtections(models.TierHigh) {
		if p.Effectiveness > decision.Strategy.Effectiveness {
			t.Fatalf("chose %s over the stronger %s", decision.Strategy.Type, p.Type)
		}
	}
}

func TestSelectorDisablesWhenNothingQualifies(t *testing.T) {
	policies := TierPolicies{
		models.TierMedium: {MaxCostUSD: 1, MinEffectiveness: 0.99},
	}
	s := NewSelector(policies, logger.Nop())
	decision := s.Select(&models.MEVAnalysis{
		RouteID: "r1",
		Tier:    models.TierMedium,
	})
	if decision.Enabled {
		t.Fatalf("no catalog entry is 99%% effective under $1")
	}
	if !strings.Contains(decision.Reasoning, "$1.00") || !strings.Contains(decision.Reasoning, "99%") {
		t.Fatalf("reasoning should state the unmet policy: %q", decision.Reasoning)
	}
}

func TestTierPoliciesFromConfigOverlaysDefaults(t *testing.T) {
	policies := TierPoliciesFromConfig(
		map[string]float64{"medium": 3, "bogus": 99},
		map[string]float64{"medium": 0.92},
	)
	if got := policies[models.TierMedium]; got.MaxCostUSD != 3 || got.MinEffectiveness != 0.92 {
		t.Fatalf("medium policy not overlaid: %+v", got)
	}
	if got := policies[models.TierHigh]; got != DefaultTierPolicies()[models.TierHigh] {
		t.Fatalf("untouched tiers keep their defaults: %+v", got)
	}

	// medium now caps at $3: private-mempool ($2, 0.90) drops below the
	// raised 0.92 minimum, leaving nothing
	if got := policies.Candidates(models.TierMedium); len(got) != 0 {
		t.Fatalf("expected empty candidate set, got %v", got)
	}
}
