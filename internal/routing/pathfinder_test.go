package routing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/service/cache"
	"RouteForge/pkg/logger"
)

// fakeQuoteService returns scripted quotes per (from,to) pair and
// counts fetches.
type fakeQuoteService struct {
	mu      sync.Mutex
	rates   map[string]float64 // from|to -> amountOut per unit in; 0 = infeasible
	errs    map[string]error
	fetches int
}

func pairKey(from, to string) string { return from + "|" + to }

func (f *fakeQuoteService) Quote(_ context.Context, req *models.QuoteRequest) (*models.Quote, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if err := f.errs[pairKey(req.FromToken, req.ToToken)]; err != nil {
		return nil, err
	}
	rate, ok := f.rates[pairKey(req.FromToken, req.ToToken)]
	if !ok {
		return nil, fmt.Errorf("no venue for %s/%s", req.FromToken, req.ToToken)
	}
	out := req.AmountIn * rate
	cost := 1 - rate
	if cost < 0 {
		cost = 0
	}
	return &models.Quote{AmountOut: out, ImpliedCost: cost, FetchedAt: time.Now()}, nil
}

func (f *fakeQuoteService) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

var _ domsvc.QuoteService = (*fakeQuoteService)(nil)

func testGraph(edges ...*PoolEdge) *Graph {
	g := NewGraph()
	seen := map[string]bool{}
	for _, e := range edges {
		for _, addr := range []string{e.From, e.To} {
			if !seen[addr] {
				seen[addr] = true
				price := 1.0
				if addr == "WETH" {
					price = 3200
				}
				g.AddNode(&TokenNode{Address: addr, Symbol: addr, ChainID: "ethereum", PriceUSD: price, RiskScore: 0.05})
			}
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			panic(err)
		}
	}
	return g
}

func edge(venue, from, to string) *PoolEdge {
	return &PoolEdge{
		Venue: venue, From: from, To: to, ChainID: "ethereum",
		Fee: 0.003, StaticGasUSD: 4, LiquidityUSD: 50e6, Reliability: 0.98, MEVRisk: 0.3,
	}
}

func newTestFinder(q domsvc.QuoteService) *PathFinder {
	return NewPathFinder(q, cache.NewQuoteCache(30*time.Second), logger.Nop(), domsvc.NopMetrics{}, PathFinderConfig{})
}

func TestLiveSearchDirectEdgeCostFromQuote(t *testing.T) {
	g := testGraph(edge("uniswap-v3", "USDC", "DAI"))
	q := &fakeQuoteService{rates: map[string]float64{pairKey("USDC", "DAI"): 0.997}}
	p := newTestFinder(q)

	res, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 1000,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(res.Routes))
	}
	best := res.Routes[0]
	if diff := best.Cost - 0.003; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got cost %v, want 0.003", best.Cost)
	}
	if diff := best.EstimatedOutput - 997; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("got output %v, want 997", best.EstimatedOutput)
	}
	if best.Origin != ModeLive {
		t.Fatalf("got origin %q, want live", best.Origin)
	}
}

func TestLiveSearchExcludesInfeasibleEdge(t *testing.T) {
	// two venues for the same pair: one dead, one alive
	g := testGraph(
		edge("deadpool", "USDC", "DAI"),
		edge("uniswap-v3", "USDC", "DAI"),
	)
	q := &fakeQuoteService{rates: map[string]float64{pairKey("USDC", "DAI"): 0.99}}
	// the dead venue returns zero output
	q.rates[pairKey("USDC", "DAI")] = 0.99

	// make only the dead venue infeasible by marking it blocked up front
	g.MarkFeasibility("deadpool", "USDC", "DAI", FeasibilityBlocked)

	p := newTestFinder(q)
	res, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 100,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Routes) == 0 {
		t.Fatalf("live venue should still yield a route")
	}
	for _, r := range res.Routes {
		for _, h := range r.Hops {
			if h.Venue == "deadpool" {
				t.Fatalf("blocked edge used in live route")
			}
		}
	}

	// static mode carries no feasibility signal and may still use it
	sres, err := p.FindRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 100,
	})
	if err != nil {
		t.Fatalf("static search failed: %v", err)
	}
	if len(sres.Routes) == 0 {
		t.Fatalf("static search should find a route")
	}
}

func TestLiveSearchChainsAmountsAcrossHops(t *testing.T) {
	g := testGraph(
		edge("uniswap-v3", "USDC", "WETH"),
		edge("uniswap-v3", "WETH", "DAI"),
	)
	q := &fakeQuoteService{rates: map[string]float64{
		pairKey("USDC", "WETH"): 0.98,
		pairKey("WETH", "DAI"):  0.97,
	}}
	p := newTestFinder(q)

	res, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 1000,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Routes) == 0 {
		t.Fatalf("expected a two-hop route")
	}
	best := res.Routes[0]
	if len(best.Hops) != 2 {
		t.Fatalf("got %d hops, want 2", len(best.Hops))
	}
	if best.Hops[0].EstimatedOut != best.Hops[1].AmountIn {
		t.Fatalf("hop amounts not chained: out %v, next in %v",
			best.Hops[0].EstimatedOut, best.Hops[1].AmountIn)
	}
	want := 1000 * 0.98 * 0.97
	if diff := best.EstimatedOutput - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("got output %v, want %v", best.EstimatedOutput, want)
	}
}

func TestSearchNeverProducesCycles(t *testing.T) {
	g := testGraph(
		edge("v", "A", "B"), edge("v", "B", "A"),
		edge("v", "B", "C"), edge("v", "C", "B"),
		edge("v", "C", "D"), edge("v", "D", "C"),
	)
	p := newTestFinder(&fakeQuoteService{rates: map[string]float64{}})

	res, err := p.FindRoutes(context.Background(), g, SearchRequest{
		FromToken: "A", ToToken: "D", ChainID: "ethereum", AmountIn: 100,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, r := range res.Routes {
		if r.Cost < 0 {
			t.Fatalf("route cost must be non-negative, got %v", r.Cost)
		}
		seen := map[string]bool{}
		if len(r.Hops) > 0 {
			seen[r.Hops[0].FromToken] = true
		}
		for _, h := range r.Hops {
			if seen[h.ToToken] {
				t.Fatalf("route revisits %s: %v", h.ToToken, r.Hops)
			}
			seen[h.ToToken] = true
		}
	}
}

func TestLiveSearchUsesQuoteCache(t *testing.T) {
	g := testGraph(edge("uniswap-v3", "USDC", "DAI"))
	q := &fakeQuoteService{rates: map[string]float64{pairKey("USDC", "DAI"): 0.997}}
	p := newTestFinder(q)

	req := SearchRequest{FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 1000}
	if _, err := p.FindLiveRoutes(context.Background(), g, req); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	first := q.fetchCount()

	res, err := p.FindLiveRoutes(context.Background(), g, req)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if q.fetchCount() != first {
		t.Fatalf("second search refetched: %d -> %d", first, q.fetchCount())
	}
	if res.Stats.CacheHits == 0 {
		t.Fatalf("expected cache hits on second search")
	}
}

func TestLiveSearchDegradesEdgeOnFetchError(t *testing.T) {
	g := testGraph(edge("uniswap-v3", "USDC", "DAI"))
	q := &fakeQuoteService{
		rates: map[string]float64{},
		errs:  map[string]error{pairKey("USDC", "DAI"): fmt.Errorf("upstream 503")},
	}
	p := newTestFinder(q)

	res, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 1000,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Routes) == 0 {
		t.Fatalf("degraded edge should still produce a route on static cost")
	}
	if res.Stats.DegradedEdges == 0 {
		t.Fatalf("expected degraded edge count in stats")
	}
}

func TestEdgesFromReturnsSnapshots(t *testing.T) {
	g := testGraph(edge("uniswap-v3", "USDC", "DAI"))

	snap := g.EdgesFrom("USDC")
	g.MarkFeasibility("uniswap-v3", "USDC", "DAI", FeasibilityBlocked)
	if snap[0].Feasibility != FeasibilityUnknown {
		t.Fatalf("snapshot mutated by a later graph update")
	}

	snap[0].Feasibility = FeasibilityOK
	if fresh := g.EdgesFrom("USDC"); fresh[0].Feasibility != FeasibilityBlocked {
		t.Fatalf("writing a snapshot must not touch the graph, got %v", fresh[0].Feasibility)
	}
}

func TestConcurrentSearchesAndProbeUpdates(t *testing.T) {
	g := testGraph(
		edge("uniswap-v3", "USDC", "WETH"),
		edge("uniswap-v3", "WETH", "DAI"),
	)
	q := &fakeQuoteService{rates: map[string]float64{
		pairKey("USDC", "WETH"): 0.98,
		pairKey("WETH", "DAI"):  0.97,
		pairKey("USDC", "DAI"):  0.95,
	}}
	p := newTestFinder(q)

	done := make(chan struct{})
	var flipper sync.WaitGroup
	flipper.Add(1)
	go func() {
		defer flipper.Done()
		for {
			select {
			case <-done:
				return
			default:
				g.MarkFeasibility("uniswap-v3", "WETH", "DAI", FeasibilityOK)
				g.MarkFeasibility("uniswap-v3", "WETH", "DAI", FeasibilityUnknown)
			}
		}
	}()

	var searches sync.WaitGroup
	for i := 0; i < 8; i++ {
		searches.Add(1)
		go func() {
			defer searches.Done()
			_, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
				FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: 1000,
			})
			if err != nil {
				t.Errorf("concurrent search failed: %v", err)
			}
		}()
	}
	searches.Wait()
	close(done)
	flipper.Wait()
}

func TestPruneKeepsBranchWhenCompletionQuoteFails(t *testing.T) {
	// A->B is expensive enough to trip the prune check at B, and the
	// B->C completion quote errors; the branch must survive on the
	// degraded static cost and beat the costly direct route
	g := testGraph(
		edge("uniswap-v3", "A", "B"),
		edge("uniswap-v3", "B", "C"),
		edge("thinpool", "A", "C"),
	)
	q := &fakeQuoteService{
		rates: map[string]float64{
			pairKey("A", "B"): 0.85,
			pairKey("A", "C"): 0.50,
		},
		errs: map[string]error{pairKey("B", "C"): fmt.Errorf("upstream 503")},
	}
	p := newTestFinder(q)

	res, err := p.FindLiveRoutes(context.Background(), g, SearchRequest{
		FromToken: "A", ToToken: "C", ChainID: "ethereum", AmountIn: 1000,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Routes) == 0 {
		t.Fatalf("expected routes")
	}
	if len(res.Routes[0].Hops) != 2 {
		t.Fatalf("cheaper two-hop route lost to the direct one: %+v", res.Routes[0].Hops)
	}
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	g := testGraph(edge("uniswap-v3", "USDC", "DAI"))
	p := newTestFinder(&fakeQuoteService{rates: map[string]float64{}})

	if _, err := p.FindRoutes(context.Background(), g, SearchRequest{
		FromToken: "USDC", ToToken: "DAI", ChainID: "ethereum", AmountIn: -5,
	}); err == nil {
		t.Fatalf("negative amount must be rejected")
	}
	if _, err := p.FindRoutes(context.Background(), g, SearchRequest{
		FromToken: "GHOST", ToToken: "DAI", ChainID: "ethereum", AmountIn: 10,
	}); err == nil {
		t.Fatalf("unknown token must be rejected")
	}
}

func TestSearchReturnsStatsWhenNoRouteExists(t *testing.T) {
	g := NewGraph()
	g.AddNode(&TokenNode{Address: "A", ChainID: "ethereum", PriceUSD: 1})
	g.AddNode(&TokenNode{Address: "B", ChainID: "ethereum", PriceUSD: 1})

	p := newTestFinder(&fakeQuoteService{rates: map[string]float64{}})
	res, err := p.FindRoutes(context.Background(), g, SearchRequest{
		FromToken: "A", ToToken: "B", ChainID: "ethereum", AmountIn: 10,
	})
	if err != nil {
		t.Fatalf("disconnected pair is not an error: %v", err)
	}
	if len(res.Routes) != 0 {
		t.Fatalf("no route should exist")
	}
	if len(res.Stats.Warnings) == 0 {
		t.Fatalf("stats should carry a warning for the empty result")
	}
}
