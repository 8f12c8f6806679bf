package strategy

import (
	"math"
	"testing"
	"time"

	"RouteForge/internal/domain/models"
)

func threatSet(probs ...float64) []models.Threat {
	out := make([]models.Threat, len(probs))
	for i, p := range probs {
		out[i] = models.Threat{Probability: p}
	}
	return out
}

func TestThreatAgreementDropsWithDisagreement(t *testing.T) {
	agreeing := ThreatAgreement(threatSet(0.4, 0.4, 0.4, 0.4))
	mild := ThreatAgreement(threatSet(0.3, 0.4, 0.5, 0.4))
	wild := ThreatAgreement(threatSet(0.05, 0.9, 0.1, 0.85))

	if agreeing != 1.0 {
		t.Fatalf("identical probabilities should agree fully, got %v", agreeing)
	}
	if !(agreeing > mild && mild > wild) {
		t.Fatalf("agreement not monotonic: %v, %v, %v", agreeing, mild, wild)
	}
	if wild < 0.1 {
		t.Fatalf("agreement floor is 0.1, got %v", wild)
	}
}

// Two analyses sharing the same max probability differ only in how much
// the threat models disagree: the score gap must be exactly the
// agreement weight times the agreement gap.
func TestThreatAgreementCarriesItsFullWeight(t *testing.T) {
	s := NewConfidenceScorer(nil)
	cond := models.MarketConditions{Timestamp: time.Now()}

	// sigma 0 -> agreement 1.0
	unanimous := s.Score(&models.MEVAnalysis{Threats: threatSet(0.4, 0.4, 0.4, 0.4)}, cond, nil, -1)
	// sigma 0.2 -> agreement 0.6, same max probability 0.4
	divided := s.Score(&models.MEVAnalysis{Threats: threatSet(0.0, 0.4, 0.0, 0.4)}, cond, nil, -1)

	want := weightThreatAgreement * 0.4
	if got := unanimous - divided; math.Abs(got-want) > 1e-9 {
		t.Fatalf("agreement gap moved the score by %v, want %v", got, want)
	}
}

func TestProtectionAlignmentRewardsMatchedStrength(t *testing.T) {
	s := NewConfidenceScorer(nil)
	cond := models.MarketConditions{Timestamp: time.Now()}
	threats := threatSet(0.9, 0.9, 0.9, 0.9)

	matched := s.Score(&models.MEVAnalysis{
		Threats:     threats,
		Protections: []models.ProtectionStrategy{{Type: "bundle-submission", Effectiveness: 0.9}},
	}, cond, nil, -1)
	mismatched := s.Score(&models.MEVAnalysis{
		Threats:     threats,
		Protections: []models.ProtectionStrategy{{Type: "tight-slippage", Effectiveness: 0.5}},
	}, cond, nil, -1)

	want := weightProtectionAlignment * 0.4
	if got := matched - mismatched; math.Abs(got-want) > 1e-9 {
		t.Fatalf("alignment gap moved the score by %v, want %v", got, want)
	}
}

func TestGasPredictionNeutralWithoutCurves(t *testing.T) {
	cond := models.MarketConditions{GasPriceGwei: 40}
	if got := gasPrediction(cond, nil); got != 0.5 {
		t.Fatalf("no curves should score neutral, got %v", got)
	}
	accurate := gasPrediction(cond, &models.GasCurves{StandardGwei: 40})
	off := gasPrediction(cond, &models.GasCurves{StandardGwei: 80})
	if accurate != 1.0 || off >= accurate {
		t.Fatalf("prediction quality not reflected: accurate %v, off %v", accurate, off)
	}
}

func TestConfidenceScoreIsClamped(t *testing.T) {
	s := NewConfidenceScorer(nil)

	worst := s.Score(
		&models.MEVAnalysis{Threats: threatSet(0.0, 0.95, 0.0, 0.95)},
		models.MarketConditions{Volatility: 1, SpreadWidening: true, NetworkUtilization: 1, CompetitorActivity: 1, PendingTxCount: 20000},
		nil,
		0,
	)
	if worst < confidenceFloor {
		t.Fatalf("score %v below floor", worst)
	}

	best := s.Score(
		&models.MEVAnalysis{
			Threats:     threatSet(0.1, 0.1, 0.1, 0.1),
			Protections: []models.ProtectionStrategy{{Effectiveness: 0.1}},
		},
		models.MarketConditions{GasPriceGwei: 30, Timestamp: time.Now()},
		&models.GasCurves{StandardGwei: 30},
		1,
	)
	if best > confidenceCeiling {
		t.Fatalf("score %v above ceiling", best)
	}
	if best <= worst {
		t.Fatalf("best case %v not above worst case %v", best, worst)
	}
}

func TestConfidenceUsesNeutralPriorWithoutHistory(t *testing.T) {
	s := NewConfidenceScorer(nil)
	analysis := &models.MEVAnalysis{Threats: threatSet(0.2, 0.2, 0.2, 0.2)}
	cond := models.MarketConditions{Volatility: 0.2, Timestamp: time.Now()}

	noHistory := s.Score(analysis, cond, nil, -1)
	goodHistory := s.Score(analysis, cond, nil, 0.95)
	badHistory := s.Score(analysis, cond, nil, 0.1)

	if !(badHistory < noHistory && noHistory < goodHistory) {
		t.Fatalf("history ordering wrong: %v, %v, %v", badHistory, noHistory, goodHistory)
	}
}

type halvingCalibrator struct{}

func (halvingCalibrator) Calibrate(_ models.RiskTier, raw float64) float64 { return raw / 2 }

func TestConfidenceAppliesCalibrator(t *testing.T) {
	plain := NewConfidenceScorer(nil)
	calibrated := NewConfidenceScorer(halvingCalibrator{})

	analysis := &models.MEVAnalysis{Threats: threatSet(0.2, 0.2, 0.2, 0.2)}
	cond := models.MarketConditions{Volatility: 0.1, Timestamp: time.Now()}

	raw := plain.Score(analysis, cond, nil, 0.9)
	adj := calibrated.Score(analysis, cond, nil, 0.9)
	if adj >= raw {
		t.Fatalf("calibrator not applied: raw %v, calibrated %v", raw, adj)
	}
}
