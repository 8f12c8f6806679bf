// Package calibration learns from recorded execution outcomes: it maps
// raw confidence scores to historically observed success rates and
// keeps per-tier performance metrics.
package calibration

import (
	"sync"

	"RouteForge/internal/domain/models"
)

const (
	// defaultMaxSamplesPerTier bounds memory per tier; oldest samples
	// are evicted first.
	defaultMaxSamplesPerTier = 1000
	// defaultMinSamplesToActivate is the sample count below which
	// calibration passes raw scores through unchanged.
	defaultMinSamplesToActivate = 50
	// defaultBinCount is the number of confidence buckets per tier.
	defaultBinCount = 10
	// defaultBinRate stands in for buckets with no observations.
	defaultBinRate = 0.6
)

// CalibratorConfig tunes sample retention and bucketing.
type CalibratorConfig struct {
	MaxSamplesPerTier    int
	MinSamplesToActivate int
	Bins                 int
}

func (c *CalibratorConfig) applyDefaults() {
	if c.MaxSamplesPerTier <= 0 {
		c.MaxSamplesPerTier = defaultMaxSamplesPerTier
	}
	if c.MinSamplesToActivate <= 0 {
		c.MinSamplesToActivate = defaultMinSamplesToActivate
	}
	if c.Bins <= 0 {
		c.Bins = defaultBinCount
	}
}

// Sample pairs a predicted confidence with the observed result.
type Sample struct {
	Confidence float64 `json:"confidence"`
	Success    bool    `json:"success"`
}

// ConfidenceCalibrator buckets historical (confidence, outcome) pairs
// per risk tier and maps raw scores onto the observed success rate by
// linear interpolation between bucket centers.
type ConfidenceCalibrator struct {
	cfg     CalibratorConfig
	mu      sync.RWMutex
	samples map[models.RiskTier][]Sample
}

// NewConfidenceCalibrator creates an empty calibrator.
func NewConfidenceCalibrator(cfg CalibratorConfig) *ConfidenceCalibrator {
	cfg.applyDefaults()
	return &ConfidenceCalibrator{cfg: cfg, samples: make(map[models.RiskTier][]Sample)}
}

// Add records one observed outcome for a tier.
func (c *ConfidenceCalibrator) Add(tier models.RiskTier, confidence float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := append(c.samples[tier], Sample{Confidence: confidence, Success: success})
	if len(s) > c.cfg.MaxSamplesPerTier {
		s = s[len(s)-c.cfg.MaxSamplesPerTier:]
	}
	c.samples[tier] = s
}

// SampleCount returns the number of stored samples for a tier.
func (c *ConfidenceCalibrator) SampleCount(tier models.RiskTier) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples[tier])
}

// Calibrate maps a raw confidence to the observed success rate for the
// tier. Below the activation threshold the raw score passes through.
func (c *ConfidenceCalibrator) Calibrate(tier models.RiskTier, raw float64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	samples := c.samples[tier]
	if len(samples) < c.cfg.MinSamplesToActivate {
		return raw
	}

	bins := c.cfg.Bins
	rates, filled := binRates(samples, bins)

	// interpolate between the centers of the two nearest bins
	pos := raw*float64(bins) - 0.5
	lo := int(pos)
	if pos < 0 {
		return rateOrDefault(rates, filled, 0)
	}
	if lo >= bins-1 {
		return rateOrDefault(rates, filled, bins-1)
	}
	frac := pos - float64(lo)
	a := rateOrDefault(rates, filled, lo)
	b := rateOrDefault(rates, filled, lo+1)
	return a + (b-a)*frac
}

func binRates(samples []Sample, bins int) (rates []float64, filled []bool) {
	rates = make([]float64, bins)
	filled = make([]bool, bins)
	successes := make([]int, bins)
	counts := make([]int, bins)
	for _, s := range samples {
		b := int(s.Confidence * float64(bins))
		if b < 0 {
			b = 0
		}
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
		if s.Success {
			successes[b]++
		}
	}
	for i := 0; i < bins; i++ {
		if counts[i] > 0 {
			rates[i] = float64(successes[i]) / float64(counts[i])
			filled[i] = true
		}
	}
	return rates, filled
}

func rateOrDefault(rates []float64, filled []bool, i int) float64 {
	if filled[i] {
		return rates[i]
	}
	return defaultBinRate
}

// Snapshot copies all samples for persistence.
func (c *ConfidenceCalibrator) Snapshot() map[models.RiskTier][]Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[models.RiskTier][]Sample, len(c.samples))
	for tier, s := range c.samples {
		cp := make([]Sample, len(s))
		copy(cp, s)
		out[tier] = cp
	}
	return out
}

// Restore replaces the sample set, used when loading persisted state.
func (c *ConfidenceCalibrator) Restore(samples map[models.RiskTier][]Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = make(map[models.RiskTier][]Sample, len(samples))
	for tier, s := range samples {
		if len(s) > c.cfg.MaxSamplesPerTier {
			s = s[len(s)-c.cfg.MaxSamplesPerTier:]
		}
		cp := make([]Sample, len(s))
		copy(cp, s)
		c.samples[tier] = cp
	}
}
