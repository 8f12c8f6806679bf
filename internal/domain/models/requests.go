package models

// FindRoutesRequest asks for route proposals between two assets.
type FindRoutesRequest struct {
	FromToken string  `json:"fromToken" validate:"required"`
	ToToken   string  `json:"toToken" validate:"required"`
	ChainID   string  `json:"chainId" validate:"required"`
	AmountIn  float64 `json:"amountIn" validate:"required,gt=0"`
	MaxHops   int     `json:"maxHops" default:"4" validate:"gte=1,lte=6"`
	MaxRoutes int     `json:"maxRoutes" default:"3" validate:"gte=1,lte=10"`
}

// AnalyzeMEVRequest scores a route against the threat models.
type AnalyzeMEVRequest struct {
	Route      RouteProposal     `json:"route" validate:"required"`
	TradeUSD   float64           `json:"tradeUsd" validate:"gte=0"`
	Conditions *MarketConditions `json:"conditions,omitempty"`
}

// OptimizeStrategyRequest builds an execution strategy for a route.
type OptimizeStrategyRequest struct {
	Route         RouteProposal     `json:"route" validate:"required"`
	TradeUSD      float64           `json:"tradeUsd" validate:"gte=0"`
	RiskTolerance string            `json:"riskTolerance" default:"medium" validate:"oneof=low medium high critical"`
	Conditions    *MarketConditions `json:"conditions,omitempty"`
}

// RecordOutcomeRequest reports actual execution results for a strategy.
type RecordOutcomeRequest struct {
	StrategyID string       `json:"strategyId" validate:"required"`
	Actual     ActualValues `json:"actual" validate:"required"`
}

// ConsensusSelectRequest selects one route among candidates.
type ConsensusSelectRequest struct {
	Routes      []RouteProposal     `json:"routes" validate:"required,min=1"`
	Assessments []MEVAnalysis       `json:"assessments,omitempty"`
	Strategies  []ExecutionStrategy `json:"strategies,omitempty"`
	Criteria    *ConsensusCriteria  `json:"criteria,omitempty"`
}

// RefreshFeasibilityRequest re-probes untested edges for a chain.
type RefreshFeasibilityRequest struct {
	ChainID string `json:"chainId" validate:"required"`
}
