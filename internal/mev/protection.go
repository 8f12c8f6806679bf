package mev

import (
	"fmt"
	"sort"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

// TierPolicy is the protection requirement for one risk tier: the most
// a counter-measure may cost and the least effective it may be and
// still qualify.
type TierPolicy struct {
	MaxCostUSD       float64
	MinEffectiveness float64
}

// TierPolicies maps each risk tier to its protection policy.
type TierPolicies map[models.RiskTier]TierPolicy

// DefaultTierPolicies returns the built-in policy table. Higher tiers
// may pay more and demand stronger measures.
func DefaultTierPolicies() TierPolicies {
	return TierPolicies{
		models.TierLow:      {MaxCostUSD: 10, MinEffectiveness: 0.80},
		models.TierMedium:   {MaxCostUSD: 25, MinEffectiveness: 0.90},
		models.TierHigh:     {MaxCostUSD: 50, MinEffectiveness: 0.95},
		models.TierCritical: {MaxCostUSD: 100, MinEffectiveness: 0.98},
	}
}

// TierPoliciesFromConfig overlays configured cost caps and minimum
// effectiveness values onto the defaults. Unknown tier names are
// ignored.
func TierPoliciesFromConfig(costCaps, minEffect map[string]float64) TierPolicies {
	policies := DefaultTierPolicies()
	for name, capUSD := range costCaps {
		if p, ok := policies[models.RiskTier(name)]; ok {
			p.MaxCostUSD = capUSD
			policies[models.RiskTier(name)] = p
		}
	}
	for name, min := range minEffect {
		if p, ok := policies[models.RiskTier(name)]; ok {
			p.MinEffectiveness = min
			policies[models.RiskTier(name)] = p
		}
	}
	return policies
}

// protectionCatalog lists every counter-measure the selector knows.
var protectionCatalog = []models.ProtectionStrategy{
	{
		Type:          "tight-slippage",
		CostUSD:       0,
		Effectiveness: 0.50,
		Description:   "cap slippage tolerance so a sandwich reverts the trade instead of profiting",
	},
	{
		Type:          "delay-randomization",
		CostUSD:       0,
		Effectiveness: 0.40,
		Description:   "jitter submission timing to break copycat pattern matching",
	},
	{
		Type:          "private-mempool",
		CostUSD:       2,
		Effectiveness: 0.90,
		Description:   "submit through a private relay, hiding the transaction pre-inclusion",
	},
	{
		Type:          "bundle-submission",
		CostUSD:       5,
		Effectiveness: 0.95,
		Description:   "submit as an atomic builder bundle with inclusion guarantees",
	},
	{
		Type:          "commit-reveal",
		CostUSD:       8,
		Effectiveness: 0.85,
		Description:   "two-phase submission that hides trade parameters until inclusion",
	},
	{
		Type:          "guarded-bundle",
		CostUSD:       15,
		Effectiveness: 0.98,
		Description:   "private bundle with revert protection and exclusive builder routing",
	},
}

// Candidates returns the catalog entries qualifying at a tier: cost
// within the tier's cap and effectiveness at or above the tier's
// minimum. Strongest first, cheaper wins ties.
func (tp TierPolicies) Candidates(tier models.RiskTier) []models.ProtectionStrategy {
	policy, ok := tp[tier]
	if !ok {
		policy = DefaultTierPolicies()[models.TierMedium]
	}
	var out []models.ProtectionStrategy
	for _, p := range protectionCatalog {
		if p.CostUSD <= policy.MaxCostUSD && p.Effectiveness >= policy.MinEffectiveness {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Effectiveness != out[j].Effectiveness {
			return out[i].Effectiveness > out[j].Effectiveness
		}
		return out[i].CostUSD < out[j].CostUSD
	})
	return out
}

// CandidateProtections returns the qualifying strategies for a tier
// under the default policies, strongest first.
func CandidateProtections(tier models.RiskTier) []models.ProtectionStrategy {
	return DefaultTierPolicies().Candidates(tier)
}

// Selector enables the strongest protection qualifying at the analyzed
// tier.
type Selector struct {
	policies TierPolicies
	log      *logger.Logger
}

// NewSelector creates a protection selector. Nil policies mean the
// defaults.
func NewSelector(policies TierPolicies, log *logger.Logger) *Selector {
	if policies == nil {
		policies = DefaultTierPolicies()
	}
	return &Selector{policies: policies, log: log}
}

// Select picks the highest-effectiveness candidate for the tier. When
// nothing in the catalog meets the tier's cost cap and minimum
// effectiveness, protection is disabled and the reasoning states the
// mismatch.
func (s *Selector) Select(analysis *models.MEVAnalysis) models.ProtectionDecision {
	candidates := analysis.Protections
	if len(candidates) == 0 {
		candidates = s.policies.Candidates(analysis.Tier)
	}
	if len(candidates) == 0 {
		policy := s.policies[analysis.Tier]
		return models.ProtectionDecision{
			Enabled: false,
			Reasoning: fmt.Sprintf(
				"%s tier: no protection within the $%.2f cost cap reaches the required %.0f%% effectiveness",
				analysis.Tier, policy.MaxCostUSD, policy.MinEffectiveness*100),
		}
	}

	chosen := candidates[0]
	s.log.Debug("protection selected",
		logger.String("route", analysis.RouteID),
		logger.String("type", chosen.Type),
		logger.Float64("effectiveness", chosen.Effectiveness))
	return models.ProtectionDecision{
		Enabled:  true,
		Strategy: &chosen,
		Reasoning: fmt.Sprintf(
			"%s tier: %s ($%.2f, %.0f%% effective) prevents ~$%.2f of $%.2f expected loss",
			analysis.Tier, chosen.Type, chosen.CostUSD, chosen.Effectiveness*100,
			analysis.EstimatedLossUSD*chosen.Effectiveness, analysis.EstimatedLossUSD),
	}
}
