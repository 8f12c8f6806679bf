// Package routing holds the market graph and the dynamic-cost
// shortest-path search over it.
package routing

import (
	"fmt"
	"sync"
	"time"
)

// TokenNode is an asset node. Nodes are created on graph build and are
// immutable between refreshes.
type TokenNode struct {
	Address      string
	Symbol       string
	Decimals     int
	ChainID      string
	PriceUSD     float64
	MarketCapUSD float64
	Stable       bool
	RiskScore    float64 // [0,1]
}

// Feasibility is the probe state of an edge.
type Feasibility int

const (
	FeasibilityUnknown Feasibility = iota
	FeasibilityOK
	FeasibilityBlocked
)

// PoolEdge is a directed venue edge between two token nodes.
type PoolEdge struct {
	Venue        string
	From         string // token address
	To           string // token address
	ChainID      string
	Fee          float64
	StaticGasUSD float64
	LiveGasUSD   float64 // 0 = no live estimate yet
	LiquidityUSD float64
	Reliability  float64 // [0,1]
	MEVRisk      float64 // [0,1]
	Feasibility  Feasibility
	UpdatedAt    time.Time
}

// SlippageFor estimates fractional slippage for an input notional in
// USD against the pool's liquidity, capped at 25%.
func (e *PoolEdge) SlippageFor(amountUSD float64) float64 {
	if e.LiquidityUSD <= 0 {
		return 0.01
	}
	s := amountUSD / e.LiquidityUSD * 0.5
	if s > 0.25 {
		s = 0.25
	}
	return s
}

// GasUSD returns the live gas estimate when present, else the static one.
func (e *PoolEdge) GasUSD() float64 {
	if e.LiveGasUSD > 0 {
		return e.LiveGasUSD
	}
	return e.StaticGasUSD
}

func edgeKey(venue, from, to string) string {
	return venue + "|" + from + "|" + to
}

// Graph holds token nodes and directed pool edges with an adjacency
// index. It is owned by a single engine instance; concurrent searches
// read it under the lock and never mutate shared edge state outside
// the probe/refresh paths.
type Graph struct {
	mu        sync.RWMutex
	nodes     []*TokenNode
	nodeIndex map[string]int // address -> node index
	adj       [][]int        // node index -> edge indices
	edges     []*PoolEdge
	edgeIndex map[string]int // venue|from|to -> edge index
	builtAt   time.Time
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
		builtAt:   time.Now(),
	}
}

// AddNode adds a token node if absent and returns its index.
func (g *Graph) AddNode(node *TokenNode) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNodeLocked(node)
}

func (g *Graph) addNodeLocked(node *TokenNode) int {
	if idx, exists := g.nodeIndex[node.Address]; exists {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, node)
	g.nodeIndex[node.Address] = idx
	g.adj = append(g.adj, nil)
	return idx
}

// AddEdge inserts or refreshes a directed edge. Both endpoints must
// already exist as nodes; unknown endpoints are an error.
func (g *Graph) AddEdge(edge *PoolEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromIdx, ok := g.nodeIndex[edge.From]
	if !ok {
		return fmt.Errorf("edge %s: unknown from node %s", edge.Venue, edge.From)
	}
	if _, ok := g.nodeIndex[edge.To]; !ok {
		return fmt.Errorf("edge %s: unknown to node %s", edge.Venue, edge.To)
	}

	key := edgeKey(edge.Venue, edge.From, edge.To)
	if idx, exists := g.edgeIndex[key]; exists {
		// refresh keeps probe state unless the caller set one
		if edge.Feasibility == FeasibilityUnknown {
			edge.Feasibility = g.edges[idx].Feasibility
		}
		edge.UpdatedAt = time.Now()
		g.edges[idx] = edge
		return nil
	}

	edge.UpdatedAt = time.Now()
	idx := len(g.edges)
	g.edges = append(g.edges, edge)
	g.edgeIndex[key] = idx
	g.adj[fromIdx] = append(g.adj[fromIdx], idx)
	return nil
}

// Node returns the node for an address.
func (g *Graph) Node(address string) (*TokenNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.nodeIndex[address]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// EdgesFrom returns the outgoing edges of a node as value snapshots,
// safe to read while probes update the graph concurrently.
func (g *Graph) EdgesFrom(address string) []PoolEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.nodeIndex[address]
	if !ok {
		return nil
	}
	out := make([]PoolEdge, 0, len(g.adj[idx]))
	for _, ei := range g.adj[idx] {
		out = append(out, *g.edges[ei])
	}
	return out
}

// MarkFeasibility updates an edge's probe state.
func (g *Graph) MarkFeasibility(venue, from, to string, f Feasibility) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if idx, ok := g.edgeIndex[edgeKey(venue, from, to)]; ok {
		g.edges[idx].Feasibility = f
		g.edges[idx].UpdatedAt = time.Now()
	}
}

// UntestedEdges returns value snapshots of up to limit edges with
// unknown feasibility.
func (g *Graph) UntestedEdges(limit int) []PoolEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]PoolEdge, 0, limit)
	for _, e := range g.edges {
		if e.Feasibility == FeasibilityUnknown {
			out = append(out, *e)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// SweepStale removes edges not updated within the window and rebuilds
// the adjacency index. Returns the number of dropped edges.
func (g *Graph) SweepStale(window time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := time.Now().Add(-window)
	kept := make([]*PoolEdge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.UpdatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	dropped := len(g.edges) - len(kept)
	if dropped == 0 {
		return 0
	}

	g.edges = kept
	g.edgeIndex = make(map[string]int, len(kept))
	g.adj = make([][]int, len(g.nodes))
	for idx, e := range kept {
		g.edgeIndex[edgeKey(e.Venue, e.From, e.To)] = idx
		ni := g.nodeIndex[e.From]
		g.adj[ni] = append(g.adj[ni], idx)
	}
	return dropped
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// BuiltAt reports when the graph was last (re)built.
func (g *Graph) BuiltAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.builtAt
}
