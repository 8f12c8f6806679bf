package quotes

import (
	"encoding/json"
	"fmt"
	"time"

	"RouteForge/internal/domain/models"
)

// Wire shapes for the quote service response. Decoding converts these
// into the typed domain model; nothing untyped crosses this boundary.
type quoteWireResponse struct {
	AmountOut float64           `json:"amountOut"`
	Tx        *txWireDescriptor `json:"txDescriptor"`
	Venues    [][]venueWireLeg  `json:"venuesUsed"`
	Class     string            `json:"executionClass"`
	GasUSD    float64           `json:"gasUsd"`
}

type txWireDescriptor struct {
	To       string  `json:"to"`
	Data     string  `json:"data"`
	Value    string  `json:"value"`
	Gas      uint64  `json:"gas"`
	GasPrice float64 `json:"gasPrice"`
}

type venueWireLeg struct {
	Name         string  `json:"name"`
	SharePercent float64 `json:"sharePercent"`
	FromAsset    string  `json:"fromAsset"`
	ToAsset      string  `json:"toAsset"`
}

// decodeQuote validates the raw response and converts it to the domain
// model. A decode error is a typed failure, never a partial value.
func decodeQuote(raw []byte, amountIn float64) (*models.Quote, error) {
	var wire quoteWireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	if wire.AmountOut < 0 {
		return nil, fmt.Errorf("decode quote response: negative amountOut %f", wire.AmountOut)
	}

	implied := 0.0
	if amountIn > 0 {
		implied = 1 - wire.AmountOut/amountIn
		if implied < 0 {
			implied = 0
		}
	}

	q := &models.Quote{
		AmountOut:      wire.AmountOut,
		ImpliedCost:    implied,
		GasEstimateUSD: wire.GasUSD,
		ExecutionClass: wire.Class,
		FetchedAt:      time.Now(),
	}

	if wire.Tx != nil {
		q.Tx = &models.TxDescriptor{
			To:           wire.Tx.To,
			Data:         wire.Tx.Data,
			ValueWei:     wire.Tx.Value,
			Gas:          wire.Tx.Gas,
			GasPriceGwei: wire.Tx.GasPrice,
		}
	}

	for _, path := range wire.Venues {
		legs := make([]models.VenueSplit, 0, len(path))
		for _, leg := range path {
			if leg.Name == "" {
				return nil, fmt.Errorf("decode quote response: venue leg missing name")
			}
			legs = append(legs, models.VenueSplit{
				Name:         leg.Name,
				SharePercent: leg.SharePercent,
				FromToken:    leg.FromAsset,
				ToToken:      leg.ToAsset,
			})
		}
		q.Venues = append(q.Venues, legs)
	}

	return q, nil
}
