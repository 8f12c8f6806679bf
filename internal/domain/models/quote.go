package models

import "time"

// QuoteRequest describes a single quote lookup against the external
// quoting service.
type QuoteRequest struct {
	FromToken    string
	ToToken      string
	ChainID      string
	AmountIn     float64
	Sender       string
	GasLimit     uint64  // optional
	GasPriceGwei float64 // optional
}

// VenueSplit is one leg of the venue routing the quote service used.
type VenueSplit struct {
	Name         string  `json:"name"`
	SharePercent float64 `json:"sharePercent"`
	FromToken    string  `json:"fromToken"`
	ToToken      string  `json:"toToken"`
}

// TxDescriptor is the transaction template the quote service returned.
type TxDescriptor struct {
	To           string  `json:"to"`
	Data         string  `json:"data"`
	ValueWei     string  `json:"value"`
	Gas          uint64  `json:"gas"`
	GasPriceGwei float64 `json:"gasPrice"`
}

// Quote is a validated quote result. ImpliedCost is the fractional loss
// 1 - amountOut/amountIn, clamped to be non-negative.
type Quote struct {
	AmountOut      float64
	ImpliedCost    float64
	GasEstimateUSD float64
	ExecutionClass string
	Venues         [][]VenueSplit
	Tx             *TxDescriptor
	FetchedAt      time.Time
}

// AssetPrice is a price oracle result for one asset.
type AssetPrice struct {
	USD          float64
	MarketCapUSD float64
	Volume24hUSD float64
}

// Pool is a liquidity venue pool as reported by the liquidity service.
type Pool struct {
	ID           string
	AssetA       string
	AssetB       string
	LiquidityUSD float64
	Fee          float64
	Reliability  float64
}

// GasCurves holds current gas price tiers plus a short-horizon prediction.
type GasCurves struct {
	ChainID          string        `json:"chainId"`
	FastGwei         float64       `json:"fastGwei"`
	StandardGwei     float64       `json:"standardGwei"`
	SafeGwei         float64       `json:"safeGwei"`
	PredictedLowGwei float64       `json:"predictedLowGwei"`
	PredictedWait    time.Duration `json:"predictedWait"`
	Source           string        `json:"source"`
}
