// Package engine owns the routing graph, caches and learned state, and
// exposes every operation the API and background consumers invoke.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RouteForge/internal/calibration"
	"RouteForge/internal/consensus"
	"RouteForge/internal/domain/models"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/mev"
	"RouteForge/internal/repository"
	"RouteForge/internal/routing"
	"RouteForge/internal/strategy"
	"RouteForge/pkg/config"
	"RouteForge/pkg/kafka"
	"RouteForge/pkg/logger"
)

// probeLimitPerCycle caps how many untested edges one probe pass
// quotes, keeping the background quote budget bounded.
const probeLimitPerCycle = 32

// Deps are the engine's collaborators. Optional fields may be nil and
// the corresponding feature stays off.
type Deps struct {
	Config     *config.Config
	Log        *logger.Logger
	Metrics    domsvc.Metrics
	Quotes     domsvc.QuoteService
	Builder    *routing.Builder
	PathFinder *routing.PathFinder
	GasOracle  domsvc.GasOracle
	Feed       domsvc.MarketFeed
	Analyzer   *mev.Analyzer
	Optimizer  *strategy.Optimizer
	Tracker    *calibration.OutcomeTracker
	Calibrator *calibration.ConfidenceCalibrator

	// optional
	CalibStore *calibration.Store
	Archive    *repository.OutcomeArchive
	Consumer   *kafka.Consumer
	FeedRunner interface{ Run(context.Context) }
	Closers    []func() error
}

// Engine is one explicit instance holding all mutable state. Nothing
// here is package-global; tests construct as many engines as they need.
type Engine struct {
	cfg         *config.Config
	log         *logger.Logger
	metrics     domsvc.Metrics
	quotes      domsvc.QuoteService
	builder     *routing.Builder
	pathfinder  *routing.PathFinder
	gasOracle   domsvc.GasOracle
	feed        domsvc.MarketFeed
	analyzer    *mev.Analyzer
	optimizer   *strategy.Optimizer
	tracker     *calibration.OutcomeTracker
	calibrator  *calibration.ConfidenceCalibrator
	coordinator *consensus.Coordinator

	calibStore *calibration.Store
	archive    *repository.OutcomeArchive
	consumer   *kafka.Consumer
	feedRunner interface{ Run(context.Context) }
	closers    []func() error

	mu    sync.RWMutex
	graph *routing.Graph

	cancel  context.CancelFunc
	bgWG    sync.WaitGroup
	started bool
}

// New creates an engine from its dependencies. Initialize must be
// called before dispatching tasks.
func New(deps Deps) *Engine {
	return &Engine{
		cfg:         deps.Config,
		log:         deps.Log,
		metrics:     deps.Metrics,
		quotes:      deps.Quotes,
		builder:     deps.Builder,
		pathfinder:  deps.PathFinder,
		gasOracle:   deps.GasOracle,
		feed:        deps.Feed,
		analyzer:    deps.Analyzer,
		optimizer:   deps.Optimizer,
		tracker:     deps.Tracker,
		calibrator:  deps.Calibrator,
		coordinator: consensus.NewCoordinator(deps.Log),
		calibStore:  deps.CalibStore,
		archive:     deps.Archive,
		consumer:    deps.Consumer,
		feedRunner:  deps.FeedRunner,
		closers:     deps.Closers,
	}
}

// SetConsumer attaches the outcome consumer. The consumer's handler
// needs the engine, so it is wired after construction; must be called
// before Initialize.
func (e *Engine) SetConsumer(c *kafka.Consumer) {
	e.consumer = c
}

// Initialize builds the routing graph (falling back to the curated one
// on timeout), restores persisted calibration state and starts the
// background loops. Idempotent against double starts.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine: already initialized")
	}
	e.started = true
	e.mu.Unlock()

	g := e.builder.BuildWithFallback(ctx, e.cfg.Routing.Chains, e.cfg.Routing.BuildTimeout)
	e.mu.Lock()
	e.graph = g
	e.mu.Unlock()

	if e.calibStore != nil {
		if err := e.calibStore.Load(ctx, e.calibrator); err != nil {
			// learned state is an optimization, never a startup blocker
			e.log.Warn("calibration restore failed, starting cold", logger.Error(err))
		}
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	if e.feedRunner != nil {
		e.bgWG.Add(1)
		go func() {
			defer e.bgWG.Done()
			e.feedRunner.Run(bgCtx)
		}()
	}
	if e.consumer != nil {
		e.consumer.Start(bgCtx)
	}
	e.startPeriodic(bgCtx)

	e.log.Info("engine initialized",
		logger.Int("nodes", g.NodeCount()),
		logger.Int("edges", g.EdgeCount()),
		logger.Strings("chains", e.cfg.Routing.Chains))
	return nil
}

// Cleanup stops every background loop, persists learned state, flushes
// the archive and closes owned resources. Safe to call once after
// Initialize.
func (e *Engine) Cleanup(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	e.bgWG.Wait()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if e.consumer != nil {
		keep(e.consumer.Stop())
	}
	if e.calibStore != nil {
		keep(e.calibStore.Save(ctx, e.calibrator))
	}
	if e.archive != nil {
		keep(e.archive.Flush(ctx))
	}
	for _, closeFn := range e.closers {
		keep(closeFn())
	}

	e.log.Info("engine cleanup complete")
	return firstErr
}

// Graph returns the current routing graph.
func (e *Engine) Graph() *routing.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// FindRoutes searches with static edge costs.
func (e *Engine) FindRoutes(ctx context.Context, req models.FindRoutesRequest) (*models.RouteSearchResult, error) {
	return e.pathfinder.FindRoutes(ctx, e.Graph(), searchRequest(req))
}

// FindLiveRoutes searches with live quote-derived costs.
func (e *Engine) FindLiveRoutes(ctx context.Context, req models.FindRoutesRequest) (*models.RouteSearchResult, error) {
	return e.pathfinder.FindLiveRoutes(ctx, e.Graph(), searchRequest(req))
}

func searchRequest(req models.FindRoutesRequest) routing.SearchRequest {
	return routing.SearchRequest{
		FromToken: req.FromToken,
		ToToken:   req.ToToken,
		ChainID:   req.ChainID,
		AmountIn:  req.AmountIn,
		MaxHops:   req.MaxHops,
		MaxRoutes: req.MaxRoutes,
	}
}

// RefreshFeasibility re-probes untested edges and reports how many
// were tested.
func (e *Engine) RefreshFeasibility(ctx context.Context, req models.RefreshFeasibilityRequest) (int, error) {
	probed := e.builder.ProbeFeasibility(ctx, e.Graph(), e.quotes, e.cfg.Routing.ProbeBatchSize, probeLimitPerCycle)
	e.log.Info("feasibility refresh",
		logger.String("chain", req.ChainID), logger.Int("probed", probed))
	return probed, nil
}

// GasCurves returns current gas tiers plus the short-horizon prediction.
func (e *Engine) GasCurves(ctx context.Context, chainID string) (*models.GasCurves, error) {
	if chainID == "" {
		return nil, fmt.Errorf("gas curves: chain id required")
	}
	return e.gasOracle.Curves(ctx, chainID)
}

// AnalyzeMEV scores a route, using caller-supplied market conditions
// when present.
func (e *Engine) AnalyzeMEV(ctx context.Context, req models.AnalyzeMEVRequest) (*models.MEVAnalysis, error) {
	tradeUSD := e.tradeNotional(&req.Route, req.TradeUSD)
	if req.Conditions != nil {
		return e.analyzer.AnalyzeWith(&req.Route, tradeUSD, *req.Conditions), nil
	}
	return e.analyzer.Analyze(&req.Route, tradeUSD), nil
}

// OptimizeStrategy analyzes a route and assembles its execution
// strategy, registering the predictions for outcome tracking.
func (e *Engine) OptimizeStrategy(ctx context.Context, req models.OptimizeStrategyRequest) (*models.ExecutionStrategy, error) {
	tradeUSD := e.tradeNotional(&req.Route, req.TradeUSD)

	var analysis *models.MEVAnalysis
	if req.Conditions != nil {
		analysis = e.analyzer.AnalyzeWith(&req.Route, tradeUSD, *req.Conditions)
	} else {
		analysis = e.analyzer.Analyze(&req.Route, tradeUSD)
	}
	e.applyRiskTolerance(analysis, req.RiskTolerance)

	strat := e.optimizer.Optimize(ctx, &req.Route, analysis, tradeUSD)

	predictedSlippage := req.Route.PriceImpact - strat.Split.EstimatedSlippageReduction
	if predictedSlippage < 0 {
		predictedSlippage = 0
	}
	e.tracker.Track(strat, predictedSlippage, req.Route.TotalGasUSD,
		req.Route.EstimatedTime+strat.Timing.RecommendedDelay)
	return strat, nil
}

// applyRiskTolerance lets a risk-averse caller raise the effective
// tier one step, buying protection earlier than the analysis alone
// would.
func (e *Engine) applyRiskTolerance(analysis *models.MEVAnalysis, tolerance string) {
	if tolerance != "low" {
		return
	}
	rank := analysis.Tier.Rank()
	if rank >= 0 && rank < len(models.Tiers)-1 {
		analysis.Tier = models.Tiers[rank+1]
		analysis.Protections = e.analyzer.CandidateProtections(analysis.Tier)
	}
}

// RecordExecutionResult closes the loop on a tracked strategy.
func (e *Engine) RecordExecutionResult(ctx context.Context, req models.RecordOutcomeRequest) (*models.ExecutionOutcome, error) {
	outcome, err := e.tracker.RecordResult(req.StrategyID, req.Actual)
	if err != nil {
		return nil, err
	}
	if e.archive != nil {
		e.archive.Add(ctx, outcome)
	}
	return outcome, nil
}

// ConsensusSelect scores the candidates and picks one route.
func (e *Engine) ConsensusSelect(ctx context.Context, req models.ConsensusSelectRequest) (*models.ConsensusDecision, error) {
	byRouteAnalysis := make(map[string]*models.MEVAnalysis, len(req.Assessments))
	for i := range req.Assessments {
		byRouteAnalysis[req.Assessments[i].RouteID] = &req.Assessments[i]
	}
	byRouteStrategy := make(map[string]*models.ExecutionStrategy, len(req.Strategies))
	for i := range req.Strategies {
		byRouteStrategy[req.Strategies[i].RouteID] = &req.Strategies[i]
	}

	candidates := make([]consensus.Candidate, 0, len(req.Routes))
	for i := range req.Routes {
		r := &req.Routes[i]
		candidates = append(candidates, consensus.Candidate{
			Route:    r,
			Analysis: byRouteAnalysis[r.ID],
			Strategy: byRouteStrategy[r.ID],
		})
	}

	criteria := models.DefaultConsensusCriteria()
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	return e.coordinator.Select(candidates, criteria)
}

// TierMetrics exposes recorded per-tier performance.
func (e *Engine) TierMetrics(tier models.RiskTier) (models.StrategyPerformanceMetrics, bool) {
	return e.tracker.Metrics(tier)
}

// Health reports basic liveness facts for the health endpoint.
func (e *Engine) Health() map[string]any {
	g := e.Graph()
	return map[string]any{
		"graphNodes":      g.NodeCount(),
		"graphEdges":      g.EdgeCount(),
		"graphBuiltAt":    g.BuiltAt().Format(time.RFC3339),
		"pendingOutcomes": e.tracker.Pending(),
	}
}

// tradeNotional resolves the USD notional, falling back to the route's
// first-hop amount priced through the graph.
func (e *Engine) tradeNotional(route *models.RouteProposal, supplied float64) float64 {
	if supplied > 0 {
		return supplied
	}
	if len(route.Hops) == 0 {
		return 0
	}
	hop := route.Hops[0]
	if n, ok := e.Graph().Node(hop.FromToken); ok && n.PriceUSD > 0 {
		return hop.AmountIn * n.PriceUSD
	}
	return hop.AmountIn
}
