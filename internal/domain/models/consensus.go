package models

// ConsensusCriteria are caller-supplied weights for route selection.
type ConsensusCriteria struct {
	Cost        float64 `json:"cost"`
	Time        float64 `json:"time"`
	Security    float64 `json:"security"`
	Reliability float64 `json:"reliability"`
	Slippage    float64 `json:"slippage"`
}

// DefaultConsensusCriteria weights cost and security highest.
func DefaultConsensusCriteria() ConsensusCriteria {
	return ConsensusCriteria{
		Cost:        0.30,
		Time:        0.15,
		Security:    0.25,
		Reliability: 0.20,
		Slippage:    0.10,
	}
}

// ConsensusDecision is the coordinator's selection among candidates.
type ConsensusDecision struct {
	RouteID    string  `json:"routeId"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
