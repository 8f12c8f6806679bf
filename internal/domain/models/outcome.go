package models

import "time"

// PredictedValues are recorded at strategy-generation time.
type PredictedValues struct {
	Slippage                float64       `json:"slippage"`
	GasCostUSD              float64       `json:"gasCostUsd"`
	ExecutionTime           time.Duration `json:"executionTime"`
	RiskTier                RiskTier      `json:"riskTier"`
	Confidence              float64       `json:"confidence"`
	ProtectionEffectiveness float64       `json:"protectionEffectiveness"`
	EstimatedSavingsUSD     float64       `json:"estimatedSavingsUsd"`
}

// ActualValues arrive when the execution layer reports results.
type ActualValues struct {
	Slippage      float64       `json:"slippage"`
	GasCostUSD    float64       `json:"gasCostUsd"`
	ExecutionTime time.Duration `json:"executionTime"`
	MEVDetected   bool          `json:"mevDetected"`
	Success       bool          `json:"success"`
}

// OutcomeDeltas are absolute prediction errors plus the MEV prediction
// accuracy score.
type OutcomeDeltas struct {
	Slippage      float64       `json:"slippage"`
	GasCostUSD    float64       `json:"gasCostUsd"`
	ExecutionTime time.Duration `json:"executionTime"`
	MEVAccuracy   float64       `json:"mevAccuracy"`
}

// ExecutionOutcome tracks one strategy from prediction to observed
// result. Actual, Deltas and Learnings are nil until the result arrives.
type ExecutionOutcome struct {
	StrategyID  string           `json:"strategyId"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt time.Time        `json:"completedAt,omitempty"`
	Predicted   PredictedValues  `json:"predicted"`
	Actual      *ActualValues    `json:"actual,omitempty"`
	Deltas      *OutcomeDeltas   `json:"deltas,omitempty"`
	Learnings   []string         `json:"learnings,omitempty"`
}

// Completed reports whether actual results have been recorded.
func (o *ExecutionOutcome) Completed() bool {
	return o.Actual != nil
}

// StrategyPerformanceMetrics holds running weighted averages per risk
// tier. Each new outcome is folded in with weight 1/(n+1), so early
// samples carry more influence and the average converges over time.
type StrategyPerformanceMetrics struct {
	Tier                    RiskTier `json:"tier"`
	Count                   int      `json:"count"`
	SuccessRate             float64  `json:"successRate"`
	SlippageAccuracy        float64  `json:"slippageAccuracy"`
	GasAccuracy             float64  `json:"gasAccuracy"`
	MEVPredictionAccuracy   float64  `json:"mevPredictionAccuracy"`
	ProtectionEffectiveness float64  `json:"protectionEffectiveness"`
	CostSavingsUSD          float64  `json:"costSavingsUsd"`
	CalibrationQuality      float64  `json:"calibrationQuality"`
}
