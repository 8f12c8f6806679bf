// Package consensus selects one route among candidates by scoring them
// against weighted criteria.
package consensus

import (
	"fmt"
	"sort"
	"strings"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

// maxDecisionConfidence caps how sure a selection can claim to be.
const maxDecisionConfidence = 0.95

// Candidate bundles one route with its optional risk and strategy
// context. Richer candidates are scored with more signal and yield
// higher decision confidence.
type Candidate struct {
	Route    *models.RouteProposal
	Analysis *models.MEVAnalysis
	Strategy *models.ExecutionStrategy
}

// Coordinator picks the best candidate under the supplied criteria.
type Coordinator struct {
	log *logger.Logger
}

// NewCoordinator creates a consensus coordinator.
func NewCoordinator(log *logger.Logger) *Coordinator {
	return &Coordinator{log: log}
}

// Select scores every candidate and returns the winner. Zero
// candidates is an error; a candidate that cannot be scored drops to a
// minimal fallback score instead of failing the selection.
func (c *Coordinator) Select(candidates []Candidate, criteria models.ConsensusCriteria) (*models.ConsensusDecision, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("consensus: no candidates")
	}
	criteria = normalizeCriteria(criteria)

	type scored struct {
		cand       Candidate
		score      float64
		confidence float64
		parts      map[string]float64
	}
	results := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Route == nil {
			continue
		}
		score, parts := c.score(cand, criteria)
		results = append(results, scored{
			cand:       cand,
			score:      score,
			confidence: decisionConfidence(cand),
			parts:      parts,
		})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("consensus: no scorable candidates")
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	best := results[0]

	decision := &models.ConsensusDecision{
		RouteID:    best.cand.Route.ID,
		Score:      best.score,
		Confidence: best.confidence,
		Reasoning:  reasoning(best.cand, best.parts, len(results)),
	}
	c.log.Info("consensus selection",
		logger.String("route", decision.RouteID),
		logger.Float64("score", decision.Score),
		logger.Int("candidates", len(results)))
	return decision, nil
}

// score computes the weighted sum of the five sub-scores. Each
// sub-score lives in [0,1].
func (c *Coordinator) score(cand Candidate, criteria models.ConsensusCriteria) (float64, map[string]float64) {
	parts := map[string]float64{
		"cost":        costScore(cand.Route),
		"time":        timeScore(cand.Route),
		"security":    securityScore(cand),
		"reliability": clamp01(cand.Route.Confidence),
		"slippage":    slippageScore(cand.Route),
	}
	total := criteria.Cost*parts["cost"] +
		criteria.Time*parts["time"] +
		criteria.Security*parts["security"] +
		criteria.Reliability*parts["reliability"] +
		criteria.Slippage*parts["slippage"]
	return total, parts
}

// costScore rewards cheap gas: $0 scores 1.0, $50 about 0.5.
func costScore(route *models.RouteProposal) float64 {
	return 1 / (1 + route.TotalGasUSD/50)
}

// timeScore rewards fast execution: 30s scores about 0.67.
func timeScore(route *models.RouteProposal) float64 {
	return 1 / (1 + route.EstimatedTime.Seconds()/60)
}

// securityScore starts neutral, credits active protection and debits
// assessed risk.
func securityScore(cand Candidate) float64 {
	s := 0.5
	if cand.Strategy != nil && cand.Strategy.Protection.Enabled {
		s += 0.3
	}
	if cand.Analysis != nil {
		s -= 0.4 * cand.Analysis.MaxThreatProbability()
	}
	return clamp01(s)
}

// slippageScore rewards low price impact: 1% impact scores about 0.5.
func slippageScore(route *models.RouteProposal) float64 {
	return 1 / (1 + route.PriceImpact*100)
}

// decisionConfidence grows with how much context backed the scoring.
func decisionConfidence(cand Candidate) float64 {
	conf := 0.5
	if cand.Analysis != nil {
		conf += 0.1
		if len(cand.Analysis.Threats) > 0 {
			conf += 0.05
		}
	}
	if cand.Strategy != nil {
		conf += 0.1
		if len(cand.Strategy.Windows) > 0 {
			conf += 0.05
		}
		if cand.Strategy.Split.Enabled {
			conf += 0.05
		}
	}
	if cand.Route != nil && len(cand.Route.Hops) > 0 {
		conf += 0.05
	}
	if conf > maxDecisionConfidence {
		conf = maxDecisionConfidence
	}
	return conf
}

func reasoning(cand Candidate, parts map[string]float64, total int) string {
	// name the two strongest sub-scores
	type kv struct {
		k string
		v float64
	}
	ordered := make([]kv, 0, len(parts))
	for k, v := range parts {
		ordered = append(ordered, kv{k, v})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].v != ordered[j].v {
			return ordered[i].v > ordered[j].v
		}
		return ordered[i].k < ordered[j].k
	})

	var b strings.Builder
	fmt.Fprintf(&b, "selected among %d candidates on %s (%.2f) and %s (%.2f)",
		total, ordered[0].k, ordered[0].v, ordered[1].k, ordered[1].v)
	if cand.Analysis != nil {
		fmt.Fprintf(&b, "; %s risk tier", cand.Analysis.Tier)
	}
	if cand.Strategy != nil && cand.Strategy.Protection.Enabled {
		b.WriteString("; protection enabled")
	}
	return b.String()
}

// normalizeCriteria rescales weights to sum to 1, falling back to the
// defaults when all weights are zero.
func normalizeCriteria(c models.ConsensusCriteria) models.ConsensusCriteria {
	sum := c.Cost + c.Time + c.Security + c.Reliability + c.Slippage
	if sum <= 0 {
		return models.DefaultConsensusCriteria()
	}
	return models.ConsensusCriteria{
		Cost:        c.Cost / sum,
		Time:        c.Time / sum,
		Security:    c.Security / sum,
		Reliability: c.Reliability / sum,
		Slippage:    c.Slippage / sum,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
