// Package feed streams market-condition signals over WebSocket and
// keeps the latest snapshot for the risk and timing components.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"

	"github.com/gorilla/websocket"
)

// GasObserver receives gas samples from the feed, typically the gas
// oracle's rolling history.
type GasObserver interface {
	Observe(chainID string, standardGwei float64)
}

// Client subscribes to per-chain market channels and folds ticks into
// one MarketConditions snapshot.
type Client struct {
	websocketURL   string
	chains         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger
	gasObserver    GasObserver

	conn *websocket.Conn

	mu       sync.RWMutex
	snapshot models.MarketConditions
}

// New creates a market feed client.
func New(websocketURL string, chains []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger, gas GasObserver) *Client {
	if reconnectDelay == 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval == 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		websocketURL:   websocketURL,
		chains:         chains,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		gasObserver:    gas,
		snapshot:       defaultSnapshot(),
	}
}

func defaultSnapshot() models.MarketConditions {
	return models.MarketConditions{
		Volatility:         0.3,
		NetworkUtilization: 0.5,
		CompetitorActivity: 0.3,
		Timestamp:          time.Now(),
	}
}

// Connect establishes the WebSocket connection and subscribes.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn

	for _, chain := range c.chains {
		msg := map[string]string{"type": "subscribe", "chain": chain}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("feed subscribe %s: %w", chain, err)
		}
	}
	c.log.Info("market feed connected", logger.Strings("chains", c.chains))
	return nil
}

type feedTick struct {
	Type               string  `json:"type"`
	Chain              string  `json:"chain"`
	GasGwei            float64 `json:"gasGwei"`
	Volatility         float64 `json:"volatility"`
	NetworkUtilization float64 `json:"networkUtilization"`
	PendingTxCount     int     `json:"pendingTxCount"`
	CompetitorActivity float64 `json:"competitorActivity"`
	SpreadWidening     bool    `json:"spreadWidening"`
	OrderBookImbalance float64 `json:"orderBookImbalance"`
}

// Run reads ticks until the context is cancelled, reconnecting on read
// errors. Intended to run as a background goroutine.
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		default:
		}

		if c.conn == nil {
			if err := c.Connect(ctx); err != nil {
				c.log.Warn("feed reconnect failed", logger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.reconnectDelay):
				}
				continue
			}
		}

		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("feed read error, reconnecting", logger.Error(err))
			_ = c.Close()
			continue
		}

		var tick feedTick
		if err := json.Unmarshal(b, &tick); err != nil {
			// ignore non-tick frames
			continue
		}
		if tick.Type != "tick" {
			continue
		}
		c.apply(tick)
	}
}

func (c *Client) apply(tick feedTick) {
	c.mu.Lock()
	s := c.snapshot
	if tick.GasGwei > 0 {
		s.GasPriceGwei = tick.GasGwei
	}
	if tick.Volatility > 0 {
		s.Volatility = clamp01(tick.Volatility)
		s.VolatilityWindow = s.Volatility > 0.6
	}
	if tick.NetworkUtilization > 0 {
		s.NetworkUtilization = clamp01(tick.NetworkUtilization)
	}
	if tick.PendingTxCount > 0 {
		s.PendingTxCount = tick.PendingTxCount
	}
	if tick.CompetitorActivity > 0 {
		s.CompetitorActivity = clamp01(tick.CompetitorActivity)
	}
	s.SpreadWidening = tick.SpreadWidening
	s.OrderBookImbalance = tick.OrderBookImbalance
	s.Timestamp = time.Now()
	c.snapshot = s
	c.mu.Unlock()

	if c.gasObserver != nil && tick.GasGwei > 0 {
		c.gasObserver.Observe(tick.Chain, tick.GasGwei)
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.conn != nil {
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Snapshot returns the latest market-conditions snapshot.
func (c *Client) Snapshot() models.MarketConditions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Close closes the connection; Run will reconnect unless the context
// is done.
func (c *Client) Close() error {
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ domsvc.MarketFeed = (*Client)(nil)

// Static is a fixed-snapshot feed used when the WebSocket feed is
// disabled.
type Static struct {
	Conditions models.MarketConditions
}

// NewStatic returns a feed that always reports the default snapshot.
func NewStatic() *Static {
	return &Static{Conditions: defaultSnapshot()}
}

func (s *Static) Snapshot() models.MarketConditions { return s.Conditions }

var _ domsvc.MarketFeed = (*Static)(nil)
