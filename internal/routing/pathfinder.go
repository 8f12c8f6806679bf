package routing

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/service/cache"
	"RouteForge/pkg/logger"
)

// Search modes reported in stats and proposal origins.
const (
	ModeStatic = "static"
	ModeLive   = "live"
)

// hopExecutionTime is the per-hop execution time estimate used for
// EstimatedTime on proposals.
const hopExecutionTime = 15 * time.Second

// nodeRiskWeight and mevRiskWeight convert node/edge risk scores into
// cost-fraction penalties for the static edge cost.
const (
	nodeRiskWeight = 0.01
	mevRiskWeight  = 0.005
)

// SearchRequest is one route search invocation.
type SearchRequest struct {
	FromToken string
	ToToken   string
	ChainID   string
	AmountIn  float64
	MaxHops   int
	MaxRoutes int
}

// PathFinderConfig tunes the search.
type PathFinderConfig struct {
	MaxHops        int
	MaxRoutes      int
	BatchSize      int
	PruneThreshold float64 // accumulated cost above which pruning kicks in
	PruneBuffer    float64 // fraction the direct route must beat the estimate by
}

func (c *PathFinderConfig) applyDefaults() {
	if c.MaxHops <= 0 {
		c.MaxHops = 4
	}
	if c.MaxRoutes <= 0 {
		c.MaxRoutes = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 4
	}
	if c.PruneThreshold <= 0 {
		c.PruneThreshold = 0.10
	}
	if c.PruneBuffer <= 0 {
		c.PruneBuffer = 0.20
	}
}

// PathFinder runs cost-minimizing searches over a routing graph. The
// static mode prices edges from graph metadata only; the live mode
// prices them with fresh quotes, falling back to static costs per edge
// when a fetch fails.
type PathFinder struct {
	quotes  domsvc.QuoteService
	cache   *cache.QuoteCache
	log     *logger.Logger
	metrics domsvc.Metrics
	cfg     PathFinderConfig
}

// NewPathFinder creates a path finder.
func NewPathFinder(quotes domsvc.QuoteService, qc *cache.QuoteCache, log *logger.Logger, metrics domsvc.Metrics, cfg PathFinderConfig) *PathFinder {
	cfg.applyDefaults()
	return &PathFinder{quotes: quotes, cache: qc, log: log, metrics: metrics, cfg: cfg}
}

// FindRoutes searches with static edge costs. Always returns stats,
// even when no route exists.
func (p *PathFinder) FindRoutes(ctx context.Context, g *Graph, req SearchRequest) (*models.RouteSearchResult, error) {
	return p.search(ctx, g, req, ModeStatic)
}

// FindLiveRoutes searches with live quote-derived edge costs. Blocked
// edges are excluded; quote failures degrade individual edges to their
// static cost rather than failing the search.
func (p *PathFinder) FindLiveRoutes(ctx context.Context, g *Graph, req SearchRequest) (*models.RouteSearchResult, error) {
	return p.search(ctx, g, req, ModeLive)
}

func (p *PathFinder) search(ctx context.Context, g *Graph, req SearchRequest, mode string) (*models.RouteSearchResult, error) {
	started := time.Now()
	if req.MaxHops <= 0 {
		req.MaxHops = p.cfg.MaxHops
	}
	if req.MaxRoutes <= 0 {
		req.MaxRoutes = p.cfg.MaxRoutes
	}
	stats := models.SearchStats{Mode: mode}

	if err := p.validate(g, req); err != nil {
		stats.Elapsed = time.Since(started)
		p.metrics.RecordSearch(mode, "invalid", stats.Elapsed.Seconds())
		return &models.RouteSearchResult{Stats: stats}, err
	}

	best := p.dijkstra(ctx, g, req, mode, nil, &stats)
	var proposals []models.RouteProposal
	if best != nil {
		proposals = append(proposals, p.assemble(g, req, best, mode))

		// alternatives: ban each edge of the best path in turn and re-run
		for _, e := range best.edges {
			if len(proposals) >= req.MaxRoutes {
				break
			}
			banned := map[string]bool{edgeKey(e.Venue, e.From, e.To): true}
			alt := p.dijkstra(ctx, g, req, mode, banned, &stats)
			if alt == nil {
				continue
			}
			prop := p.assemble(g, req, alt, mode)
			if !containsRoute(proposals, prop.ID) {
				proposals = append(proposals, prop)
			}
		}
		sort.Slice(proposals, func(i, j int) bool { return proposals[i].Cost < proposals[j].Cost })
	}

	stats.Elapsed = time.Since(started)
	result := "found"
	if len(proposals) == 0 {
		result = "empty"
		stats.Warnings = append(stats.Warnings, "no feasible route for pair")
	}
	p.metrics.RecordSearch(mode, result, stats.Elapsed.Seconds())
	p.log.Debug("route search finished",
		logger.String("mode", mode),
		logger.String("pair", req.FromToken+"/"+req.ToToken),
		logger.Int("routes", len(proposals)),
		logger.Int("quotes", stats.QuotesFetched),
		logger.Int("pruned", stats.BranchesPruned))

	return &models.RouteSearchResult{Routes: proposals, Stats: stats}, nil
}

func (p *PathFinder) validate(g *Graph, req SearchRequest) error {
	if req.AmountIn <= 0 {
		return fmt.Errorf("search: amount must be positive, got %v", req.AmountIn)
	}
	if _, ok := g.Node(req.FromToken); !ok {
		return fmt.Errorf("search: unknown from token %s", req.FromToken)
	}
	if _, ok := g.Node(req.ToToken); !ok {
		return fmt.Errorf("search: unknown to token %s", req.ToToken)
	}
	return nil
}

// foundPath is a settled shortest path with per-node chained amounts.
type foundPath struct {
	edges   []PoolEdge
	cost    float64
	amounts []float64 // token amount entering each hop; len == len(edges)+1
}

type heapItem struct {
	node string
	dist float64
	seq  int // FIFO tie-break for equal distances
}

type searchHeap []heapItem

func (h searchHeap) Len() int { return len(h) }
func (h searchHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].seq < h[j].seq
}
func (h searchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *searchHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *searchHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// dijkstra runs one shortest-path search. A nil return means no path
// within the hop limit. Settled nodes are never revisited, so returned
// paths are cycle-free.
func (p *PathFinder) dijkstra(ctx context.Context, g *Graph, req SearchRequest, mode string, banned map[string]bool, stats *models.SearchStats) *foundPath {
	dist := map[string]float64{req.FromToken: 0}
	hops := map[string]int{req.FromToken: 0}
	amountAt := map[string]float64{req.FromToken: req.AmountIn}
	prev := map[string]PoolEdge{}
	settled := map[string]bool{}

	seq := 0
	h := &searchHeap{{node: req.FromToken, dist: 0, seq: seq}}
	heap.Init(h)

	pr := &pruner{p: p, req: req}

	for h.Len() > 0 {
		if ctx.Err() != nil {
			return nil
		}
		it := heap.Pop(h).(heapItem)
		u := it.node
		if settled[u] || it.dist > dist[u] {
			continue
		}
		settled[u] = true
		stats.NodesVisited++

		if u == req.ToToken {
			return buildPath(req, dist[u], prev, amountAt)
		}
		if hops[u] >= req.MaxHops {
			continue
		}
		if mode == ModeLive && pr.shouldPrune(ctx, g, u, dist[u], amountAt[u], stats) {
			stats.BranchesPruned++
			continue
		}

		edges := candidateEdges(g, u, mode, banned, settled)
		costs := p.edgeCosts(ctx, g, edges, amountAt[u], mode, stats)

		for i, e := range edges {
			ec := costs[i]
			if ec.skip {
				continue
			}
			stats.EdgesRelaxed++
			nd := dist[u] + ec.cost
			if cur, seen := dist[e.To]; seen && nd >= cur {
				continue
			}
			dist[e.To] = nd
			hops[e.To] = hops[u] + 1
			amountAt[e.To] = ec.amountOut
			prev[e.To] = e
			seq++
			heap.Push(h, heapItem{node: e.To, dist: nd, seq: seq})
		}
	}
	return nil
}

func candidateEdges(g *Graph, u, mode string, banned map[string]bool, settled map[string]bool) []PoolEdge {
	all := g.EdgesFrom(u)
	out := make([]PoolEdge, 0, len(all))
	for _, e := range all {
		if settled[e.To] || banned[edgeKey(e.Venue, e.From, e.To)] {
			continue
		}
		// blocked edges are excluded from live searches but stay
		// available to static ones, which carry no feasibility signal
		if mode == ModeLive && e.Feasibility == FeasibilityBlocked {
			continue
		}
		out = append(out, e)
	}
	return out
}

// edgeCost is one priced edge relaxation candidate.
type edgeCost struct {
	cost      float64
	amountOut float64
	skip      bool
}

// edgeCosts prices a node's candidate edges. In live mode quotes are
// fetched in bounded concurrent batches and awaited together before
// any relaxation happens.
func (p *PathFinder) edgeCosts(ctx context.Context, g *Graph, edges []PoolEdge, amountIn float64, mode string, stats *models.SearchStats) []edgeCost {
	out := make([]edgeCost, len(edges))
	if mode == ModeStatic {
		for i, e := range edges {
			cost, amt := p.staticEdge(g, e, amountIn)
			out[i] = edgeCost{cost: cost, amountOut: amt}
		}
		return out
	}

	var statsMu sync.Mutex
	for start := 0; start < len(edges); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(edges) {
			end = len(edges)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				e := edges[i]
				q, err := p.liveQuote(ctx, e.ChainID, e.From, e.To, amountIn, stats, &statsMu)
				switch {
				case err != nil:
					// fetch failure degrades this edge to its static cost
					cost, amt := p.staticEdge(g, e, amountIn)
					out[i] = edgeCost{cost: cost, amountOut: amt}
					statsMu.Lock()
					stats.DegradedEdges++
					statsMu.Unlock()
				case q.AmountOut <= 0:
					g.MarkFeasibility(e.Venue, e.From, e.To, FeasibilityBlocked)
					out[i] = edgeCost{skip: true}
				default:
					g.MarkFeasibility(e.Venue, e.From, e.To, FeasibilityOK)
					out[i] = edgeCost{cost: q.ImpliedCost, amountOut: q.AmountOut}
				}
			}(i)
		}
		wg.Wait()
	}
	return out
}

// staticEdge prices an edge from graph metadata alone. The cost is the
// fee, gas and slippage fractions plus risk penalties, inflated for
// unreliable venues.
func (p *PathFinder) staticEdge(g *Graph, e PoolEdge, amountIn float64) (cost, amountOut float64) {
	fromNode, _ := g.Node(e.From)
	toNode, okTo := g.Node(e.To)

	amountUSD := amountIn
	if fromNode != nil && fromNode.PriceUSD > 0 {
		amountUSD = amountIn * fromNode.PriceUSD
	}

	gasTerm := 0.0
	if amountUSD > 0 {
		gasTerm = e.GasUSD() / amountUSD
	}
	slippage := e.SlippageFor(amountUSD)

	risk := e.MEVRisk * mevRiskWeight
	if okTo {
		risk += toNode.RiskScore * nodeRiskWeight
	}

	reliability := e.Reliability
	if reliability <= 0 || reliability > 1 {
		reliability = 0.9
	}
	cost = (e.Fee + gasTerm + slippage + risk) * (2 - reliability)

	// static output estimate: convert through USD prices and apply the
	// fee and slippage fractions
	amountOut = amountIn * (1 - e.Fee - slippage)
	if fromNode != nil && okTo && fromNode.PriceUSD > 0 && toNode.PriceUSD > 0 {
		amountOut = amountIn * fromNode.PriceUSD / toNode.PriceUSD * (1 - e.Fee - slippage)
	}
	return cost, amountOut
}

// liveQuote resolves a quote through the shared TTL cache.
func (p *PathFinder) liveQuote(ctx context.Context, chainID, from, to string, amountIn float64, stats *models.SearchStats, statsMu *sync.Mutex) (*models.Quote, error) {
	key := cache.Key(chainID, from, to, amountIn)
	if q, ok := p.cache.Get(key); ok {
		p.metrics.RecordCacheHit()
		statsMu.Lock()
		stats.CacheHits++
		statsMu.Unlock()
		return q, nil
	}
	p.metrics.RecordCacheMiss()

	q, err := p.quotes.Quote(ctx, &models.QuoteRequest{
		FromToken: from,
		ToToken:   to,
		ChainID:   chainID,
		AmountIn:  amountIn,
	})
	statsMu.Lock()
	stats.QuotesFetched++
	statsMu.Unlock()
	if err != nil {
		p.metrics.RecordQuoteFetch("error")
		return nil, err
	}
	p.metrics.RecordQuoteFetch("ok")
	p.cache.Set(key, q)
	return q, nil
}

// pruner cuts expensive branches in live searches. It lazily prices the
// direct start-to-target route once; a branch whose accumulated cost
// plus a direct-to-target completion estimate cannot beat the direct
// route by the buffer margin is abandoned. The completion estimate is
// a heuristic, not an admissible bound, so pruning trades completeness
// for quote budget.
type pruner struct {
	p   *PathFinder
	req SearchRequest

	fetched    bool
	usable     bool
	directCost float64
}

func (pr *pruner) shouldPrune(ctx context.Context, g *Graph, u string, distU, amountU float64, stats *models.SearchStats) bool {
	if u == pr.req.FromToken || u == pr.req.ToToken {
		return false
	}
	if distU <= pr.p.cfg.PruneThreshold {
		return false
	}

	if !pr.fetched {
		pr.fetched = true
		var mu sync.Mutex
		q, err := pr.p.liveQuote(ctx, pr.req.ChainID, pr.req.FromToken, pr.req.ToToken, pr.req.AmountIn, stats, &mu)
		if err == nil && q.AmountOut > 0 {
			pr.usable = true
			pr.directCost = q.ImpliedCost
		}
	}
	if !pr.usable {
		return false
	}

	var mu sync.Mutex
	q, err := pr.p.liveQuote(ctx, pr.req.ChainID, u, pr.req.ToToken, amountU, stats, &mu)
	if err != nil || q.AmountOut <= 0 {
		// no completion estimate; keep the branch rather than guess
		return false
	}
	estimate := distU + q.ImpliedCost
	return pr.directCost < estimate*(1-pr.p.cfg.PruneBuffer)
}

func buildPath(req SearchRequest, cost float64, prev map[string]PoolEdge, amountAt map[string]float64) *foundPath {
	var edges []PoolEdge
	node := req.ToToken
	for node != req.FromToken {
		e, ok := prev[node]
		if !ok {
			return nil
		}
		edges = append(edges, e)
		node = e.From
	}
	// reverse into start-to-target order
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	amounts := make([]float64, 0, len(edges)+1)
	amounts = append(amounts, req.AmountIn)
	for _, e := range edges {
		amounts = append(amounts, amountAt[e.To])
	}
	return &foundPath{edges: edges, cost: cost, amounts: amounts}
}

func (p *PathFinder) assemble(g *Graph, req SearchRequest, fp *foundPath, mode string) models.RouteProposal {
	hops := make([]models.RouteHop, 0, len(fp.edges))
	totalGas := 0.0
	impact := 0.0
	confidence := 1.0

	var riskTags, advantageTags []string
	for i, e := range fp.edges {
		hops = append(hops, models.RouteHop{
			Venue:        e.Venue,
			FromToken:    e.From,
			ToToken:      e.To,
			ChainID:      e.ChainID,
			AmountIn:     fp.amounts[i],
			EstimatedOut: fp.amounts[i+1],
			Fee:          e.Fee,
		})
		totalGas += e.GasUSD()

		amountUSD := fp.amounts[i]
		if n, ok := g.Node(e.From); ok && n.PriceUSD > 0 {
			amountUSD *= n.PriceUSD
		}
		impact += e.SlippageFor(amountUSD)

		rel := e.Reliability
		if rel <= 0 || rel > 1 {
			rel = 0.9
		}
		confidence *= rel

		if e.MEVRisk > 0.6 && !contains(riskTags, "high-mev-edge") {
			riskTags = append(riskTags, "high-mev-edge")
		}
		if e.LiquidityUSD > 0 && e.LiquidityUSD < 1e6 && !contains(riskTags, "thin-liquidity") {
			riskTags = append(riskTags, "thin-liquidity")
		}
	}
	if len(fp.edges) > 3 {
		riskTags = append(riskTags, "long-path")
	}
	if len(fp.edges) == 1 {
		advantageTags = append(advantageTags, "direct")
	}
	if fromN, ok := g.Node(req.FromToken); ok && fromN.Stable {
		if toN, ok := g.Node(req.ToToken); ok && toN.Stable {
			advantageTags = append(advantageTags, "stable-pair")
		}
	}
	confidence = math.Max(confidence, 0.1)

	return models.RouteProposal{
		ID:              routeID(mode, fp.edges),
		Hops:            hops,
		TotalGasUSD:     totalGas,
		EstimatedTime:   time.Duration(len(fp.edges)) * hopExecutionTime,
		EstimatedOutput: fp.amounts[len(fp.amounts)-1],
		PriceImpact:     impact,
		Cost:            fp.cost,
		Confidence:      confidence,
		RiskTags:        riskTags,
		AdvantageTags:   advantageTags,
		Origin:          mode,
	}
}

func routeID(mode string, edges []PoolEdge) string {
	parts := make([]string, 0, len(edges)+1)
	parts = append(parts, mode)
	for _, e := range edges {
		parts = append(parts, fmt.Sprintf("%s:%s>%s", e.Venue, e.From, e.To))
	}
	return strings.Join(parts, "|")
}

func containsRoute(routes []models.RouteProposal, id string) bool {
	for _, r := range routes {
		if r.ID == id {
			return true
		}
	}
	return false
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
