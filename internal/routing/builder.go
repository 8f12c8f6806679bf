package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/pkg/logger"
)

// knownVenues lists the venues enumerated per chain during a build.
var knownVenues = map[string][]string{
	"ethereum": {"uniswap-v3", "sushiswap", "curve"},
	"arbitrum": {"uniswap-v3", "camelot"},
	"polygon":  {"uniswap-v3", "quickswap"},
	"base":     {"uniswap-v3", "aerodrome"},
}

// stableSymbols flags assets treated as price-stable.
var stableSymbols = map[string]bool{
	"USDC": true, "USDT": true, "DAI": true,
}

// CuratedNodeCount is the node count of the fallback graph.
const CuratedNodeCount = 5

// Builder assembles the routing graph from the liquidity and price
// collaborators.
type Builder struct {
	liquidity domsvc.LiquiditySource
	prices    domsvc.PriceOracle
	log       *logger.Logger
	metrics   domsvc.Metrics
}

// NewBuilder creates a graph builder.
func NewBuilder(liquidity domsvc.LiquiditySource, prices domsvc.PriceOracle, log *logger.Logger, metrics domsvc.Metrics) *Builder {
	return &Builder{liquidity: liquidity, prices: prices, log: log, metrics: metrics}
}

// Build enumerates known venues per chain and produces a fresh graph.
// Every edge starts with unknown feasibility.
func (b *Builder) Build(ctx context.Context, chains []string) (*Graph, error) {
	g := NewGraph()

	for _, chain := range chains {
		venues, ok := knownVenues[chain]
		if !ok {
			b.log.Warn("no known venues for chain", logger.String("chain", chain))
			continue
		}

		type venuePool struct {
			venue string
			pool  models.Pool
		}
		var pools []venuePool
		assetSet := make(map[string]struct{})

		for _, venue := range venues {
			vp, err := b.liquidity.Pools(ctx, venue, chain)
			if err != nil {
				// upstream-unavailable is local: skip the venue, keep building
				b.log.Warn("liquidity fetch failed, venue skipped",
					logger.String("venue", venue), logger.Error(err))
				b.metrics.RecordError("liquidity_fetch")
				continue
			}
			for _, p := range vp {
				pools = append(pools, venuePool{venue: venue, pool: p})
				assetSet[p.AssetA] = struct{}{}
				assetSet[p.AssetB] = struct{}{}
			}
		}

		assets := make([]string, 0, len(assetSet))
		for a := range assetSet {
			assets = append(assets, a)
		}
		prices, err := b.prices.Prices(ctx, chain, assets)
		if err != nil {
			return nil, fmt.Errorf("prices for %s: %w", chain, err)
		}

		for _, a := range assets {
			p := prices[a]
			g.AddNode(&TokenNode{
				Address:      a,
				Symbol:       a,
				Decimals:     18,
				ChainID:      chain,
				PriceUSD:     p.USD,
				MarketCapUSD: p.MarketCapUSD,
				Stable:       stableSymbols[a],
				RiskScore:    riskScoreFor(p),
			})
		}

		for _, vp := range pools {
			for _, dir := range [][2]string{{vp.pool.AssetA, vp.pool.AssetB}, {vp.pool.AssetB, vp.pool.AssetA}} {
				edge := &PoolEdge{
					Venue:        vp.venue,
					From:         dir[0],
					To:           dir[1],
					ChainID:      chain,
					Fee:          vp.pool.Fee,
					StaticGasUSD: staticGasFor(chain),
					LiquidityUSD: vp.pool.LiquidityUSD,
					Reliability:  vp.pool.Reliability,
					MEVRisk:      mevRiskFor(vp.pool),
					Feasibility:  FeasibilityUnknown,
				}
				if err := g.AddEdge(edge); err != nil {
					b.log.Warn("edge rejected", logger.Error(err))
				}
			}
		}
	}

	b.metrics.SetGraphSize(g.NodeCount(), g.EdgeCount())
	b.log.Info("routing graph built",
		logger.Int("nodes", g.NodeCount()), logger.Int("edges", g.EdgeCount()))
	return g, nil
}

// BuildWithFallback runs Build under a timeout. If the build does not
// finish in time (or fails), the curated fallback graph of known
// high-liquidity assets is returned so initialization still completes.
func (b *Builder) BuildWithFallback(ctx context.Context, chains []string, timeout time.Duration) *Graph {
	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		g   *Graph
		err error
	}
	done := make(chan result, 1)
	go func() {
		g, err := b.Build(buildCtx, chains)
		done <- result{g: g, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.g
		}
		b.log.Warn("graph build failed, using curated fallback", logger.Error(r.err))
	case <-buildCtx.Done():
		b.log.Warn("graph build timed out, using curated fallback",
			logger.Duration("timeout", timeout))
	}
	b.metrics.RecordError("graph_build")

	g := CuratedGraph()
	b.metrics.SetGraphSize(g.NodeCount(), g.EdgeCount())
	return g
}

// CuratedGraph returns the small fixed fallback graph of high-liquidity
// assets on ethereum.
func CuratedGraph() *Graph {
	g := NewGraph()

	tokens := []*TokenNode{
		{Address: "WETH", Symbol: "WETH", Decimals: 18, ChainID: "ethereum", PriceUSD: 3200, RiskScore: 0.05},
		{Address: "WBTC", Symbol: "WBTC", Decimals: 8, ChainID: "ethereum", PriceUSD: 62000, RiskScore: 0.05},
		{Address: "USDC", Symbol: "USDC", Decimals: 6, ChainID: "ethereum", PriceUSD: 1, Stable: true, RiskScore: 0.02},
		{Address: "USDT", Symbol: "USDT", Decimals: 6, ChainID: "ethereum", PriceUSD: 1, Stable: true, RiskScore: 0.05},
		{Address: "DAI", Symbol: "DAI", Decimals: 18, ChainID: "ethereum", PriceUSD: 1, Stable: true, RiskScore: 0.03},
	}
	for _, t := range tokens {
		g.AddNode(t)
	}

	pairs := [][2]string{
		{"WETH", "USDC"}, {"WETH", "USDT"}, {"WETH", "DAI"},
		{"WBTC", "WETH"}, {"WBTC", "USDC"},
		{"USDC", "USDT"}, {"USDC", "DAI"},
	}
	for _, p := range pairs {
		for _, dir := range [][2]string{{p[0], p[1]}, {p[1], p[0]}} {
			_ = g.AddEdge(&PoolEdge{
				Venue:        "uniswap-v3",
				From:         dir[0],
				To:           dir[1],
				ChainID:      "ethereum",
				Fee:          0.003,
				StaticGasUSD: 4,
				LiquidityUSD: 50e6,
				Reliability:  0.98,
				MEVRisk:      0.3,
				Feasibility:  FeasibilityOK,
			})
		}
	}
	return g
}

// ProbeFeasibility issues live quotes for up to limit untested edges in
// small concurrent batches and records the result on each edge. The
// probe amount is a small notional converted to the from-token.
func (b *Builder) ProbeFeasibility(ctx context.Context, g *Graph, quotes domsvc.QuoteService, batchSize, limit int) int {
	if batchSize < 1 {
		batchSize = 3
	}
	edges := g.UntestedEdges(limit)
	probed := 0

	for start := 0; start < len(edges); start += batchSize {
		end := start + batchSize
		if end > len(edges) {
			end = len(edges)
		}

		var wg sync.WaitGroup
		for _, e := range edges[start:end] {
			wg.Add(1)
			go func(e PoolEdge) {
				defer wg.Done()
				amount := probeAmount(g, e)
				q, err := quotes.Quote(ctx, &models.QuoteRequest{
					FromToken: e.From,
					ToToken:   e.To,
					ChainID:   e.ChainID,
					AmountIn:  amount,
				})
				if err != nil || q.AmountOut <= 0 {
					g.MarkFeasibility(e.Venue, e.From, e.To, FeasibilityBlocked)
					return
				}
				g.MarkFeasibility(e.Venue, e.From, e.To, FeasibilityOK)
			}(e)
		}
		wg.Wait()
		probed += end - start

		if ctx.Err() != nil {
			break
		}
	}
	return probed
}

// probeAmount picks roughly $100 worth of the from-token.
func probeAmount(g *Graph, e PoolEdge) float64 {
	if n, ok := g.Node(e.From); ok && n.PriceUSD > 0 {
		return 100 / n.PriceUSD
	}
	return 1
}

func riskScoreFor(p models.AssetPrice) float64 {
	switch {
	case p.MarketCapUSD >= 10e9:
		return 0.05
	case p.MarketCapUSD >= 1e9:
		return 0.15
	case p.MarketCapUSD >= 100e6:
		return 0.35
	case p.MarketCapUSD > 0:
		return 0.6
	default:
		return 0.5
	}
}

func staticGasFor(chain string) float64 {
	switch chain {
	case "ethereum":
		return 4
	case "polygon":
		return 0.05
	default:
		return 0.2
	}
}

// mevRiskFor scores an edge's adversarial exposure from pool depth:
// thin pools are easier to move and more attractive to attackers.
func mevRiskFor(p models.Pool) float64 {
	switch {
	case p.LiquidityUSD >= 10e6:
		return 0.25
	case p.LiquidityUSD >= 1e6:
		return 0.45
	case p.LiquidityUSD > 0:
		return 0.7
	default:
		return 0.5
	}
}
