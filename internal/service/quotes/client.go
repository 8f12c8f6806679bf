// Package quotes implements the client for the external quoting service.
package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/service/ratelimit"
)

const (
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	rateKey = "quotes"
)

// Client is an HTTP quote service client. Requests are rate limited
// with a token bucket so concurrent search batches stay within the
// upstream allowance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	capacity   float64
	perSecond  float64
}

// ClientConfig contains configuration for the quote client.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RateCapacity  float64
	RatePerSecond float64
	HTTPClient    *http.Client
}

// NewClient creates a new quote service client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	capacity := config.RateCapacity
	if capacity == 0 {
		capacity = 10
	}
	perSecond := config.RatePerSecond
	if perSecond == 0 {
		perSecond = 5
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		limiter:    ratelimit.New(),
		capacity:   capacity,
		perSecond:  perSecond,
	}
}

type quoteWireRequest struct {
	FromAsset string  `json:"fromAsset"`
	ToAsset   string  `json:"toAsset"`
	ChainID   string  `json:"chainId"`
	AmountIn  float64 `json:"amountIn"`
	Sender    string  `json:"senderAddress,omitempty"`
	GasLimit  uint64  `json:"gasLimit,omitempty"`
	GasPrice  float64 `json:"gasPrice,omitempty"`
}

// Quote fetches a quote for one (pair, amount). An upstream error or a
// non-positive output means the pair/amount is infeasible right now.
func (c *Client) Quote(ctx context.Context, req *models.QuoteRequest) (*models.Quote, error) {
	if req.FromToken == "" || req.ToToken == "" {
		return nil, fmt.Errorf("fromToken and toToken are required")
	}
	if req.AmountIn <= 0 {
		return nil, fmt.Errorf("amountIn must be positive")
	}

	if err := c.limiter.Wait(ctx, rateKey, c.capacity, c.perSecond); err != nil {
		return nil, fmt.Errorf("quote rate limit: %w", err)
	}

	body, err := json.Marshal(quoteWireRequest{
		FromAsset: req.FromToken,
		ToAsset:   req.ToToken,
		ChainID:   req.ChainID,
		AmountIn:  req.AmountIn,
		Sender:    req.Sender,
		GasLimit:  req.GasLimit,
		GasPrice:  req.GasPriceGwei,
	})
	if err != nil {
		return nil, fmt.Errorf("encode quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	return decodeQuote(raw, req.AmountIn)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

var _ domsvc.QuoteService = (*Client)(nil)
