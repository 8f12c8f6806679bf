package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

// OutcomeHandler consumes execution results published by the execution
// layer on Kafka and feeds them into the tracker, the same path the
// HTTP endpoint uses.
type OutcomeHandler struct {
	engine *Engine
	log    *logger.Logger
}

// NewOutcomeHandler creates the Kafka message handler.
func NewOutcomeHandler(engine *Engine, log *logger.Logger) *OutcomeHandler {
	return &OutcomeHandler{engine: engine, log: log}
}

// Handle decodes one outcome message and records it. Malformed
// payloads and unknown strategy IDs are permanent failures: they are
// logged and dropped rather than retried.
func (h *OutcomeHandler) Handle(ctx context.Context, data []byte) error {
	var req models.RecordOutcomeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.log.Warn("outcome message undecodable, dropped", logger.Error(err))
		return nil
	}
	if req.StrategyID == "" {
		h.log.Warn("outcome message missing strategy id, dropped")
		return nil
	}

	if _, err := h.engine.RecordExecutionResult(ctx, req); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
		h.log.Warn("outcome not recorded, dropped",
			logger.String("strategy", req.StrategyID), logger.Error(err))
		return nil
	}
	return nil
}
