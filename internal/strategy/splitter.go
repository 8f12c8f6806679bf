package strategy

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"RouteForge/internal/domain/models"
)

// SplitterConfig tunes when and how trades are fragmented.
type SplitterConfig struct {
	ImpactTrigger float64       // price impact above which splitting activates
	ThreePartsAt  float64       // impact above which three parts are used
	FourPartsAt   float64       // impact above which four parts are used
	MinPartDelay  time.Duration // floor between consecutive parts
}

func (c *SplitterConfig) applyDefaults() {
	if c.ImpactTrigger <= 0 {
		c.ImpactTrigger = 0.01
	}
	if c.ThreePartsAt <= 0 {
		c.ThreePartsAt = 0.02
	}
	if c.FourPartsAt <= 0 {
		c.FourPartsAt = 0.05
	}
	if c.MinPartDelay <= 0 {
		c.MinPartDelay = 30 * time.Second
	}
}

// Splitter plans order fragmentation. Near-equal parts with randomized
// sizes and delays break the pattern an observer needs to target the
// whole position at once.
type Splitter struct {
	cfg SplitterConfig
	rng *rand.Rand
}

// NewSplitter creates an order splitter.
func NewSplitter(cfg SplitterConfig) *Splitter {
	cfg.applyDefaults()
	return &Splitter{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSplitterWithSeed creates a splitter with a fixed randomness seed.
func NewSplitterWithSeed(cfg SplitterConfig, seed int64) *Splitter {
	cfg.applyDefaults()
	return &Splitter{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Plan decides whether to split and produces part sizes and delays.
// Splitting activates on material price impact or an elevated risk
// tier. Size fractions always sum to 1.0.
func (s *Splitter) Plan(route *models.RouteProposal, analysis *models.MEVAnalysis, recommendedDelay time.Duration) models.SplitPlan {
	highRisk := analysis != nil && analysis.Tier.Rank() >= models.TierHigh.Rank()
	if route.PriceImpact <= s.cfg.ImpactTrigger && !highRisk {
		return models.SplitPlan{
			Enabled: false,
			Parts:   1,
			Reasoning: fmt.Sprintf("impact %.2f%% below trigger and risk tier acceptable, no split",
				route.PriceImpact*100),
		}
	}

	parts := s.partsFor(route.PriceImpact)
	sizes := s.randomizedSizes(parts)
	delays := s.partDelays(parts, recommendedDelay)

	slippageReduction := route.PriceImpact * (1 - 1/math.Sqrt(float64(parts)))

	mevReduction := 0.0
	if analysis != nil {
		sandwich := analysis.ThreatImpact(models.ThreatSandwich)
		mevReduction = sandwich * float64(parts-1) * 0.2
		if cap := sandwich * 0.7; mevReduction > cap {
			mevReduction = cap
		}
	}

	reason := fmt.Sprintf("%d parts: impact %.2f%%", parts, route.PriceImpact*100)
	if highRisk {
		reason += fmt.Sprintf(", %s risk tier", analysis.Tier)
	}

	return models.SplitPlan{
		Enabled:                    true,
		Parts:                      parts,
		SizeDistribution:           sizes,
		PartDelays:                 delays,
		EstimatedSlippageReduction: slippageReduction,
		EstimatedMEVReductionUSD:   mevReduction,
		Reasoning:                  reason,
	}
}

func (s *Splitter) partsFor(impact float64) int {
	switch {
	case impact > s.cfg.FourPartsAt:
		return 4
	case impact > s.cfg.ThreePartsAt:
		return 3
	default:
		return 2
	}
}

// randomizedSizes draws near-equal fractions jittered by up to 5% and
// renormalizes them to sum to exactly 1.0.
func (s *Splitter) randomizedSizes(parts int) []float64 {
	sizes := make([]float64, parts)
	total := 0.0
	for i := range sizes {
		sizes[i] = 1.0/float64(parts) + (s.rng.Float64()-0.5)*0.05
		total += sizes[i]
	}
	for i := range sizes {
		sizes[i] /= total
	}
	return sizes
}

// partDelays spaces parts at least MinPartDelay apart, stretched to the
// recommended delay, with up to 10s of jitter per part. The first part
// goes out immediately.
func (s *Splitter) partDelays(parts int, recommended time.Duration) []time.Duration {
	gap := s.cfg.MinPartDelay
	if perPart := recommended / time.Duration(parts); perPart > gap {
		gap = perPart
	}

	delays := make([]time.Duration, parts)
	for i := 1; i < parts; i++ {
		jitter := time.Duration((s.rng.Float64() - 0.5) * 20 * float64(time.Second))
		d := time.Duration(i)*gap + jitter
		if min := delays[i-1] + gap/2; d < min {
			d = min
		}
		delays[i] = d
	}
	return delays
}
