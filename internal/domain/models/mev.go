package models

// ThreatType identifies one adversarial-extraction threat model.
type ThreatType string

const (
	ThreatSandwich    ThreatType = "sandwich"
	ThreatFrontrun    ThreatType = "frontrun"
	ThreatArbitrage   ThreatType = "arbitrage"
	ThreatLiquidation ThreatType = "liquidation"
)

// RiskTier buckets the maximum single-threat probability.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierMedium   RiskTier = "medium"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// Tiers lists all risk tiers in ascending severity.
var Tiers = []RiskTier{TierLow, TierMedium, TierHigh, TierCritical}

// TierFor maps a threat probability to its risk tier.
func TierFor(maxProbability float64) RiskTier {
	switch {
	case maxProbability < 0.2:
		return TierLow
	case maxProbability < 0.5:
		return TierMedium
	case maxProbability < 0.8:
		return TierHigh
	default:
		return TierCritical
	}
}

// Rank returns the tier's position in ascending severity, -1 if unknown.
func (t RiskTier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Threat is one scored adversarial-extraction threat.
type Threat struct {
	Type               ThreatType `json:"type"`
	Probability        float64    `json:"probability"`
	EstimatedImpactUSD float64    `json:"estimatedImpactUsd"`
	Signals            []string   `json:"signals,omitempty"`
}

// ProtectionStrategy is a candidate counter-measure.
type ProtectionStrategy struct {
	Type          string  `json:"type"`
	CostUSD       float64 `json:"costUsd"`
	Effectiveness float64 `json:"effectiveness"`
	Description   string  `json:"description,omitempty"`
}

// MEVAnalysis scores one route against all threat models.
type MEVAnalysis struct {
	RouteID          string               `json:"routeId"`
	Tier             RiskTier             `json:"tier"`
	Threats          []Threat             `json:"threats"`
	Protections      []ProtectionStrategy `json:"protections"`
	EstimatedLossUSD float64              `json:"estimatedLossUsd"`
	Confidence       float64              `json:"confidence"`
	Reasoning        string               `json:"reasoning"`
}

// MaxThreatProbability returns the highest single-threat probability.
func (a *MEVAnalysis) MaxThreatProbability() float64 {
	max := 0.0
	for _, t := range a.Threats {
		if t.Probability > max {
			max = t.Probability
		}
	}
	return max
}

// ThreatImpact returns the estimated impact for one threat type, 0 when
// the threat was not scored.
func (a *MEVAnalysis) ThreatImpact(tt ThreatType) float64 {
	for _, t := range a.Threats {
		if t.Type == tt {
			return t.EstimatedImpactUSD
		}
	}
	return 0
}
