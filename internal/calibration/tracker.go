package calibration

import (
	"fmt"
	"math"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

// Learnings thresholds: deviations beyond these produce a recorded
// learning on the outcome.
const (
	slippageLearningDelta = 0.005 // 0.5 percentage points
	gasLearningRatio      = 1.2   // actual more than 20% over predicted
	timeLearningDelta     = time.Minute
)

// defaultRetention is how long completed outcomes are kept in memory.
const defaultRetention = 7 * 24 * time.Hour

// OutcomeTracker follows each strategy from prediction to result. When
// the result arrives it computes deltas, derives learnings, folds the
// sample into per-tier metrics and feeds the calibrator.
type OutcomeTracker struct {
	calibrator *ConfidenceCalibrator
	log        *logger.Logger
	metrics    domsvc.Metrics
	retention  time.Duration

	mu       sync.Mutex
	outcomes map[string]*models.ExecutionOutcome
	perf     map[models.RiskTier]*models.StrategyPerformanceMetrics
}

// NewOutcomeTracker creates a tracker. A zero retention means the
// 7-day default.
func NewOutcomeTracker(calibrator *ConfidenceCalibrator, log *logger.Logger, metrics domsvc.Metrics, retention time.Duration) *OutcomeTracker {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &OutcomeTracker{
		calibrator: calibrator,
		log:        log,
		metrics:    metrics,
		retention:  retention,
		outcomes:   make(map[string]*models.ExecutionOutcome),
		perf:       make(map[models.RiskTier]*models.StrategyPerformanceMetrics),
	}
}

// Track registers a strategy's predictions for later comparison.
func (t *OutcomeTracker) Track(strategy *models.ExecutionStrategy, predictedSlippage, predictedGasUSD float64, predictedTime time.Duration) {
	protectionEff := 0.0
	if strategy.Protection.Enabled && strategy.Protection.Strategy != nil {
		protectionEff = strategy.Protection.Strategy.Effectiveness
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes[strategy.ID] = &models.ExecutionOutcome{
		StrategyID: strategy.ID,
		CreatedAt:  strategy.CreatedAt,
		Predicted: models.PredictedValues{
			Slippage:                predictedSlippage,
			GasCostUSD:              predictedGasUSD,
			ExecutionTime:           predictedTime,
			RiskTier:                strategy.RiskTier,
			Confidence:              strategy.Confidence,
			ProtectionEffectiveness: protectionEff,
			EstimatedSavingsUSD:     strategy.EstimatedImprovementUSD,
		},
	}
}

// RecordResult attaches the actual result to a tracked strategy and
// returns the completed outcome. Unknown strategy IDs are an error.
func (t *OutcomeTracker) RecordResult(strategyID string, actual models.ActualValues) (*models.ExecutionOutcome, error) {
	t.mu.Lock()
	outcome, ok := t.outcomes[strategyID]
	if !ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("record result: unknown strategy %s", strategyID)
	}
	if outcome.Completed() {
		t.mu.Unlock()
		return nil, fmt.Errorf("record result: strategy %s already completed", strategyID)
	}

	a := actual
	outcome.Actual = &a
	outcome.CompletedAt = time.Now()
	outcome.Deltas = computeDeltas(outcome.Predicted, actual)
	outcome.Learnings = deriveLearnings(outcome.Predicted, actual)

	tier := outcome.Predicted.RiskTier
	t.updateMetricsLocked(tier, outcome)
	t.pruneLocked()
	t.mu.Unlock()

	t.calibrator.Add(tier, outcome.Predicted.Confidence, actual.Success)
	t.metrics.RecordOutcome(string(tier), actual.Success)
	t.metrics.SetCalibrationSamples(string(tier), t.calibrator.SampleCount(tier))
	t.log.Info("execution outcome recorded",
		logger.String("strategy", strategyID),
		logger.String("tier", string(tier)),
		logger.Bool("success", actual.Success),
		logger.Float64("mevAccuracy", outcome.Deltas.MEVAccuracy),
		logger.Strings("learnings", outcome.Learnings))

	return outcome, nil
}

func computeDeltas(pred models.PredictedValues, actual models.ActualValues) *models.OutcomeDeltas {
	timeDelta := actual.ExecutionTime - pred.ExecutionTime
	if timeDelta < 0 {
		timeDelta = -timeDelta
	}
	return &models.OutcomeDeltas{
		Slippage:      math.Abs(actual.Slippage - pred.Slippage),
		GasCostUSD:    math.Abs(actual.GasCostUSD - pred.GasCostUSD),
		ExecutionTime: timeDelta,
		MEVAccuracy:   mevAccuracy(pred.RiskTier, actual.MEVDetected),
	}
}

// mevAccuracy scores the risk prediction against reality. A missed
// attack is the worst case; a false alarm still wasted protection
// budget; a quiet trade correctly scored low is only half credit since
// absence of an attack is weak evidence.
func mevAccuracy(tier models.RiskTier, detected bool) float64 {
	expected := tier.Rank() >= models.TierHigh.Rank()
	switch {
	case expected && detected:
		return 1.0
	case expected && !detected:
		return 0.3
	case !expected && detected:
		return 0.1
	default:
		return 0.5
	}
}

func deriveLearnings(pred models.PredictedValues, actual models.ActualValues) []string {
	var out []string
	if actual.Slippage-pred.Slippage > slippageLearningDelta {
		out = append(out, fmt.Sprintf("slippage underestimated by %.2f%%",
			(actual.Slippage-pred.Slippage)*100))
	}
	if pred.GasCostUSD > 0 && actual.GasCostUSD > pred.GasCostUSD*gasLearningRatio {
		out = append(out, fmt.Sprintf("gas cost underestimated: predicted $%.2f, actual $%.2f",
			pred.GasCostUSD, actual.GasCostUSD))
	}
	if actual.ExecutionTime-pred.ExecutionTime > timeLearningDelta {
		out = append(out, fmt.Sprintf("execution %s slower than predicted",
			actual.ExecutionTime-pred.ExecutionTime))
	}
	return out
}

// updateMetricsLocked folds the outcome into the tier's running
// averages with weight 1/(n+1). Caller holds t.mu.
func (t *OutcomeTracker) updateMetricsLocked(tier models.RiskTier, outcome *models.ExecutionOutcome) {
	m, ok := t.perf[tier]
	if !ok {
		m = &models.StrategyPerformanceMetrics{Tier: tier}
		t.perf[tier] = m
	}
	w := 1.0 / float64(m.Count+1)

	m.SuccessRate = fold(m.SuccessRate, boolSample(outcome.Actual.Success), w)
	m.SlippageAccuracy = fold(m.SlippageAccuracy, relativeAccuracy(outcome.Deltas.Slippage, outcome.Predicted.Slippage, 0.001), w)
	m.GasAccuracy = fold(m.GasAccuracy, relativeAccuracy(outcome.Deltas.GasCostUSD, outcome.Predicted.GasCostUSD, 1), w)
	m.MEVPredictionAccuracy = fold(m.MEVPredictionAccuracy, outcome.Deltas.MEVAccuracy, w)

	// a planned protection counts as effective only when no extraction
	// was observed
	if outcome.Predicted.ProtectionEffectiveness > 0 {
		realized := outcome.Predicted.ProtectionEffectiveness
		if outcome.Actual.MEVDetected {
			realized = 0
		}
		m.ProtectionEffectiveness = fold(m.ProtectionEffectiveness, realized, w)
	}
	savings := 0.0
	if outcome.Actual.Success {
		savings = outcome.Predicted.EstimatedSavingsUSD
	}
	m.CostSavingsUSD = fold(m.CostSavingsUSD, savings, w)

	m.CalibrationQuality = fold(m.CalibrationQuality, 1-math.Abs(outcome.Predicted.Confidence-boolSample(outcome.Actual.Success)), w)
	m.Count++
}

// SuccessRate implements the strategy optimizer's history interface.
// Negative when no outcomes exist for the tier.
func (t *OutcomeTracker) SuccessRate(tier models.RiskTier) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.perf[tier]
	if !ok || m.Count == 0 {
		return -1
	}
	return m.SuccessRate
}

// Metrics returns a copy of the tier's performance metrics.
func (t *OutcomeTracker) Metrics(tier models.RiskTier) (models.StrategyPerformanceMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.perf[tier]
	if !ok {
		return models.StrategyPerformanceMetrics{}, false
	}
	return *m, true
}

// Pending returns the number of tracked strategies without results.
func (t *OutcomeTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, o := range t.outcomes {
		if !o.Completed() {
			n++
		}
	}
	return n
}

// PruneExpired drops outcomes past the retention window.
func (t *OutcomeTracker) PruneExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pruneLocked()
}

func (t *OutcomeTracker) pruneLocked() int {
	cutoff := time.Now().Add(-t.retention)
	dropped := 0
	for id, o := range t.outcomes {
		if o.CreatedAt.Before(cutoff) {
			delete(t.outcomes, id)
			dropped++
		}
	}
	return dropped
}

func fold(old, sample, w float64) float64 {
	return old*(1-w) + sample*w
}

func boolSample(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// relativeAccuracy turns an absolute error into a [0,1] accuracy
// against the predicted magnitude, with a floor to avoid dividing by
// near-zero predictions.
func relativeAccuracy(delta, predicted, floor float64) float64 {
	base := math.Max(math.Abs(predicted), floor)
	acc := 1 - delta/base
	if acc < 0 {
		return 0
	}
	return acc
}
