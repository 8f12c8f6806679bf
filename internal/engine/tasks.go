package engine

import (
	"context"
	"fmt"

	"RouteForge/internal/domain/models"
)

// Task is the closed set of operations the engine dispatches. Each
// task type carries its own validated payload; there is no
// string-keyed payload map to misroute.
type Task interface {
	taskKind() string
}

// FindRoutesTask searches with static edge costs.
type FindRoutesTask struct {
	Req models.FindRoutesRequest
}

// FindLiveRoutesTask searches with live quote-derived costs.
type FindLiveRoutesTask struct {
	Req models.FindRoutesRequest
}

// RefreshFeasibilityTask re-probes untested edges on one chain.
type RefreshFeasibilityTask struct {
	Req models.RefreshFeasibilityRequest
}

// AnalyzeGasCurvesTask fetches gas tiers and the short-horizon
// prediction for a chain.
type AnalyzeGasCurvesTask struct {
	ChainID string
}

// AnalyzeMEVTask scores a route against the threat models.
type AnalyzeMEVTask struct {
	Req models.AnalyzeMEVRequest
}

// OptimizeStrategyTask assembles an execution strategy for a route.
type OptimizeStrategyTask struct {
	Req models.OptimizeStrategyRequest
}

// RecordExecutionResultTask attaches actual results to a tracked
// strategy.
type RecordExecutionResultTask struct {
	Req models.RecordOutcomeRequest
}

// ConsensusSelectTask picks one route among candidates.
type ConsensusSelectTask struct {
	Req models.ConsensusSelectRequest
}

func (FindRoutesTask) taskKind() string            { return "find-routes" }
func (FindLiveRoutesTask) taskKind() string        { return "find-live-quote-routes" }
func (RefreshFeasibilityTask) taskKind() string    { return "refresh-feasibility" }
func (AnalyzeGasCurvesTask) taskKind() string      { return "analyze-gas-curves" }
func (AnalyzeMEVTask) taskKind() string            { return "analyze-mev" }
func (OptimizeStrategyTask) taskKind() string      { return "optimize-strategy" }
func (RecordExecutionResultTask) taskKind() string { return "record-execution-result" }
func (ConsensusSelectTask) taskKind() string       { return "consensus-select" }

// ErrUnknownTask is returned for task types the dispatcher does not
// recognize.
type ErrUnknownTask struct {
	Kind string
}

func (e *ErrUnknownTask) Error() string {
	return fmt.Sprintf("unknown task kind %q", e.Kind)
}

// Dispatch routes a task to its operation. The task set is closed: a
// type outside the union above is an ErrUnknownTask, never a silent
// no-op.
func (e *Engine) Dispatch(ctx context.Context, task Task) (any, error) {
	switch t := task.(type) {
	case FindRoutesTask:
		return e.FindRoutes(ctx, t.Req)
	case FindLiveRoutesTask:
		return e.FindLiveRoutes(ctx, t.Req)
	case RefreshFeasibilityTask:
		return e.RefreshFeasibility(ctx, t.Req)
	case AnalyzeGasCurvesTask:
		return e.GasCurves(ctx, t.ChainID)
	case AnalyzeMEVTask:
		return e.AnalyzeMEV(ctx, t.Req)
	case OptimizeStrategyTask:
		return e.OptimizeStrategy(ctx, t.Req)
	case RecordExecutionResultTask:
		return e.RecordExecutionResult(ctx, t.Req)
	case ConsensusSelectTask:
		return e.ConsensusSelect(ctx, t.Req)
	default:
		kind := "nil"
		if task != nil {
			kind = task.taskKind()
		}
		e.metrics.RecordError("unknown_task")
		return nil, &ErrUnknownTask{Kind: kind}
	}
}
