// Package api exposes the engine's operations over HTTP.
package api

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"RouteForge/internal/domain/models"
	"RouteForge/internal/engine"
	pkghttp "RouteForge/pkg/http"
	"RouteForge/pkg/logger"
)

// EngineHandler binds the engine's task set to HTTP routes.
type EngineHandler struct {
	engine *engine.Engine
	log    *logger.Logger
}

// NewEngineHandler creates the API handler.
func NewEngineHandler(eng *engine.Engine, log *logger.Logger) *EngineHandler {
	return &EngineHandler{engine: eng, log: log}
}

// RegisterRoutes registers all engine routes.
func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/routes", h.FindRoutes)
	api.POST("/routes/live", h.FindLiveRoutes)
	api.POST("/mev/analyze", h.AnalyzeMEV)
	api.POST("/strategy/optimize", h.OptimizeStrategy)
	api.POST("/consensus/select", h.ConsensusSelect)
	api.POST("/execution/result", h.RecordResult)
	api.POST("/feasibility/refresh", h.RefreshFeasibility)
	api.GET("/gas/curves", h.GasCurves)
	api.GET("/health", h.Health)
}

var _ pkghttp.Handler = (*EngineHandler)(nil)

// FindRoutes handles POST /api/routes.
func (h *EngineHandler) FindRoutes(c echo.Context) error {
	req := new(models.FindRoutesRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.FindRoutesTask{Req: *req})
}

// FindLiveRoutes handles POST /api/routes/live.
func (h *EngineHandler) FindLiveRoutes(c echo.Context) error {
	req := new(models.FindRoutesRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.FindLiveRoutesTask{Req: *req})
}

// AnalyzeMEV handles POST /api/mev/analyze.
func (h *EngineHandler) AnalyzeMEV(c echo.Context) error {
	req := new(models.AnalyzeMEVRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.AnalyzeMEVTask{Req: *req})
}

// OptimizeStrategy handles POST /api/strategy/optimize.
func (h *EngineHandler) OptimizeStrategy(c echo.Context) error {
	req := new(models.OptimizeStrategyRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.OptimizeStrategyTask{Req: *req})
}

// ConsensusSelect handles POST /api/consensus/select.
func (h *EngineHandler) ConsensusSelect(c echo.Context) error {
	req := new(models.ConsensusSelectRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.ConsensusSelectTask{Req: *req})
}

// RecordResult handles POST /api/execution/result.
func (h *EngineHandler) RecordResult(c echo.Context) error {
	req := new(models.RecordOutcomeRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	return h.dispatch(c, engine.RecordExecutionResultTask{Req: *req})
}

// RefreshFeasibility handles POST /api/feasibility/refresh.
func (h *EngineHandler) RefreshFeasibility(c echo.Context) error {
	req := new(models.RefreshFeasibilityRequest)
	if errs := pkghttp.ReadAndValidateRequest(c, req); errs != nil {
		return pkghttp.BadRequestResponse(c, errs)
	}
	ctx := c.Request().Context()
	probed, err := h.engine.RefreshFeasibility(ctx, *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return pkghttp.AcceptedResponse(c, map[string]int{"probed": probed})
}

// GasCurves handles GET /api/gas/curves?chain=...
func (h *EngineHandler) GasCurves(c echo.Context) error {
	chain := c.QueryParam("chain")
	if chain == "" {
		return pkghttp.AppErrorResponse(c,
			pkghttp.NewAppError("ERR_REQUIRED", "chain", "chain query parameter is required", 400))
	}
	return h.dispatch(c, engine.AnalyzeGasCurvesTask{ChainID: chain})
}

// Health handles GET /api/health.
func (h *EngineHandler) Health(c echo.Context) error {
	return pkghttp.SuccessResponse(c, h.engine.Health())
}

func (h *EngineHandler) dispatch(c echo.Context, task engine.Task) error {
	result, err := h.engine.Dispatch(c.Request().Context(), task)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, result)
}

func (h *EngineHandler) errorResponse(c echo.Context, err error) error {
	var unknown *engine.ErrUnknownTask
	if errors.As(err, &unknown) {
		return pkghttp.AppErrorResponse(c, pkghttp.UnknownTaskError(unknown.Kind))
	}
	if strings.Contains(err.Error(), "unknown strategy") ||
		strings.Contains(err.Error(), "unknown from token") ||
		strings.Contains(err.Error(), "unknown to token") {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundError(err.Error()))
	}
	h.log.Error("request failed", logger.Error(err))
	return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError(err.Error()))
}
