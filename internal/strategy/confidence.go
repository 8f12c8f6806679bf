package strategy

import (
	"math"
	"time"

	"RouteForge/internal/domain/models"
)

// Confidence score weights. They sum to 1.0; the clamp below bounds the
// final score.
const (
	weightThreatAgreement       = 0.25
	weightGasPrediction         = 0.20
	weightProtectionAlignment   = 0.20
	weightMempoolStability      = 0.15
	weightHistoricalCalibration = 0.15
	weightMarketCertainty       = 0.05

	confidenceFloor   = 0.10
	confidenceCeiling = 0.99
)

// Calibrator maps a raw confidence score to a historically observed
// success rate for a risk tier.
type Calibrator interface {
	Calibrate(tier models.RiskTier, raw float64) float64
}

// ConfidenceScorer combines threat-model agreement, gas prediction
// quality, protection alignment, mempool stability, historical
// calibration and market certainty into one score.
type ConfidenceScorer struct {
	calibrator Calibrator
}

// NewConfidenceScorer creates a scorer. A nil calibrator means raw
// scores are used directly.
func NewConfidenceScorer(calibrator Calibrator) *ConfidenceScorer {
	return &ConfidenceScorer{calibrator: calibrator}
}

// Score computes the calibrated confidence for one strategy candidate.
// curves may be nil when no gas data is available; successRate is the
// historical per-tier success rate, or a negative value when no history
// exists yet.
func (s *ConfidenceScorer) Score(analysis *models.MEVAnalysis, cond models.MarketConditions, curves *models.GasCurves, successRate float64) float64 {
	history := successRate
	if history < 0 {
		history = 0.6 // neutral prior before any outcomes are recorded
	}

	raw := weightThreatAgreement*ThreatAgreement(analysis.Threats) +
		weightGasPrediction*gasPrediction(cond, curves) +
		weightProtectionAlignment*protectionAlignment(analysis) +
		weightMempoolStability*mempoolStability(cond) +
		weightHistoricalCalibration*history +
		weightMarketCertainty*marketCertainty(cond)

	if s.calibrator != nil {
		raw = s.calibrator.Calibrate(analysis.Tier, raw)
	}
	return clampConfidence(raw)
}

// ThreatAgreement measures how consistently the threat models scored
// the trade. Widely disagreeing models mean the picture is unclear, so
// the factor drops with the standard deviation of the probabilities.
func ThreatAgreement(threats []models.Threat) float64 {
	if len(threats) < 2 {
		return 1.0
	}
	mean := 0.0
	for _, t := range threats {
		mean += t.Probability
	}
	mean /= float64(len(threats))

	variance := 0.0
	for _, t := range threats {
		d := t.Probability - mean
		variance += d * d
	}
	variance /= float64(len(threats))

	agreement := 1 - 2*math.Sqrt(variance)
	if agreement < 0.1 {
		agreement = 0.1
	}
	return agreement
}

// gasPrediction scores how well the predicted gas level matches the
// observed one. No curves or no live reading means a neutral 0.5.
func gasPrediction(cond models.MarketConditions, curves *models.GasCurves) float64 {
	if curves == nil || curves.StandardGwei <= 0 || cond.GasPriceGwei <= 0 {
		return 0.5
	}
	deviation := math.Abs(cond.GasPriceGwei-curves.StandardGwei) / cond.GasPriceGwei
	if deviation > 1 {
		deviation = 1
	}
	return 1 - deviation
}

// protectionAlignment scores how well the strongest available
// counter-measure matches the threat level: a high threat with only
// weak protections, or paying for strong protection against a
// negligible threat, both drop the factor.
func protectionAlignment(analysis *models.MEVAnalysis) float64 {
	bestEffectiveness := 0.0
	if len(analysis.Protections) > 0 {
		bestEffectiveness = analysis.Protections[0].Effectiveness
	}
	return 1 - math.Abs(analysis.MaxThreatProbability()-bestEffectiveness)
}

// mempoolStability drops as the mempool crowds and searchers wake up.
func mempoolStability(cond models.MarketConditions) float64 {
	stability := 1.0
	stability -= 0.4 * cond.NetworkUtilization
	stability -= 0.3 * cond.CompetitorActivity
	if cond.PendingTxCount > 5000 {
		stability -= 0.2
	}
	if stability < 0 {
		stability = 0
	}
	return stability
}

// marketCertainty folds snapshot freshness with volatility penalties.
func marketCertainty(cond models.MarketConditions) float64 {
	certainty := dataFreshness(cond)
	certainty -= 0.3 * cond.Volatility
	if cond.SpreadWidening {
		certainty -= 0.1
	}
	if certainty < 0 {
		certainty = 0
	}
	return certainty
}

func dataFreshness(cond models.MarketConditions) float64 {
	age := time.Since(cond.Timestamp)
	switch {
	case age < 30*time.Second:
		return 1.0
	case age < 2*time.Minute:
		return 0.7
	case age < 10*time.Minute:
		return 0.4
	default:
		return 0.1
	}
}

func clampConfidence(v float64) float64 {
	if v < confidenceFloor {
		return confidenceFloor
	}
	if v > confidenceCeiling {
		return confidenceCeiling
	}
	return v
}
