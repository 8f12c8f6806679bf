package models

import "time"

// MarketConditions is a point-in-time snapshot of the signals the risk
// and timing components consume. All fractional fields are normalized
// to [0,1] unless stated otherwise.
type MarketConditions struct {
	Volatility         float64       `json:"volatility"`
	GasPriceGwei       float64       `json:"gasPriceGwei"`
	PredictedGasGwei   float64       `json:"predictedGasGwei"`
	PredictedGasWait   time.Duration `json:"predictedGasWait"`
	NetworkUtilization float64       `json:"networkUtilization"`
	PendingTxCount     int           `json:"pendingTxCount"`
	CompetitorActivity float64       `json:"competitorActivity"`
	SpreadWidening     bool          `json:"spreadWidening"`
	OrderBookImbalance float64       `json:"orderBookImbalance"`
	VolatilityWindow   bool          `json:"volatilityWindow"`
	Timestamp          time.Time     `json:"timestamp"`
}
