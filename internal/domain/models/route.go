package models

import "time"

// RouteHop is one step of a route proposal. AmountIn of hop i equals
// EstimatedOut of hop i-1; the chain starts at the caller's input amount.
type RouteHop struct {
	Venue        string  `json:"venue"`
	FromToken    string  `json:"fromToken"`
	ToToken      string  `json:"toToken"`
	ChainID      string  `json:"chainId"`
	AmountIn     float64 `json:"amountIn"`
	EstimatedOut float64 `json:"estimatedOut"`
	Fee          float64 `json:"fee"`
}

// RouteProposal is a candidate multi-hop exchange path. It is a value
// object: callers receive their own copy with no back-references into
// the routing graph.
type RouteProposal struct {
	ID              string        `json:"id"`
	Hops            []RouteHop    `json:"hops"`
	TotalGasUSD     float64       `json:"totalGasUsd"`
	EstimatedTime   time.Duration `json:"estimatedTime"`
	EstimatedOutput float64       `json:"estimatedOutput"`
	PriceImpact     float64       `json:"priceImpact"`
	Cost            float64       `json:"cost"`
	Confidence      float64       `json:"confidence"`
	RiskTags        []string      `json:"riskTags,omitempty"`
	AdvantageTags   []string      `json:"advantageTags,omitempty"`
	Origin          string        `json:"origin"`
}

// SearchStats summarizes a route search for the caller, returned even
// when no route was found.
type SearchStats struct {
	Mode           string        `json:"mode"`
	NodesVisited   int           `json:"nodesVisited"`
	EdgesRelaxed   int           `json:"edgesRelaxed"`
	QuotesFetched  int           `json:"quotesFetched"`
	CacheHits      int           `json:"cacheHits"`
	BranchesPruned int           `json:"branchesPruned"`
	DegradedEdges  int           `json:"degradedEdges"`
	Elapsed        time.Duration `json:"elapsed"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// RouteSearchResult pairs the proposals with search statistics.
type RouteSearchResult struct {
	Routes []RouteProposal `json:"routes"`
	Stats  SearchStats     `json:"stats"`
}
