package models

import "time"

// ProtectionDecision is the selector's verdict for one route.
type ProtectionDecision struct {
	Enabled   bool                `json:"enabled"`
	Strategy  *ProtectionStrategy `json:"strategy,omitempty"`
	Reasoning string              `json:"reasoning"`
}

// GasStrategy chooses a gas price mode for submission.
type GasStrategy struct {
	Mode            string  `json:"mode"` // fast, standard, safe
	MaxFeeGwei      float64 `json:"maxFeeGwei"`
	PriorityFeeGwei float64 `json:"priorityFeeGwei"`
}

// TimingDecision combines gas, market and congestion delays.
// RecommendedDelay is the maximum of the three component delays.
type TimingDecision struct {
	RecommendedDelay time.Duration `json:"recommendedDelay"`
	GasDelay         time.Duration `json:"gasDelay"`
	MarketDelay      time.Duration `json:"marketDelay"`
	CongestionDelay  time.Duration `json:"congestionDelay"`
	Optimal          bool          `json:"optimal"`
	Reasoning        string        `json:"reasoning"`
}

// ExecutionWindow is a favorable time interval for execution.
type ExecutionWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Score float64   `json:"score"`
}

// SplitPlan fragments a trade into time-separated parts. When Enabled,
// SizeDistribution sums to 1.0 and len(PartDelays) == Parts.
type SplitPlan struct {
	Enabled                    bool            `json:"enabled"`
	Parts                      int             `json:"parts"`
	SizeDistribution           []float64       `json:"sizeDistribution,omitempty"`
	PartDelays                 []time.Duration `json:"partDelays,omitempty"`
	EstimatedSlippageReduction float64         `json:"estimatedSlippageReduction"`
	EstimatedMEVReductionUSD   float64         `json:"estimatedMevReductionUsd"`
	Reasoning                  string          `json:"reasoning"`
}

// ExecutionStrategy is the full execution plan for one route candidate.
// It is created per candidate and retired once its outcome is recorded.
type ExecutionStrategy struct {
	ID                      string             `json:"id"`
	RouteID                 string             `json:"routeId"`
	RiskTier                RiskTier           `json:"riskTier"`
	Protection              ProtectionDecision `json:"protection"`
	Gas                     GasStrategy        `json:"gas"`
	Timing                  TimingDecision     `json:"timing"`
	Windows                 []ExecutionWindow  `json:"windows"`
	Split                   SplitPlan          `json:"split"`
	Contingencies           []string           `json:"contingencies,omitempty"`
	Confidence              float64            `json:"confidence"`
	EstimatedImprovementUSD float64            `json:"estimatedImprovementUsd"`
	CreatedAt               time.Time          `json:"createdAt"`
}
