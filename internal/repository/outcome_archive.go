// Package repository holds persistence adapters for long-lived
// analytical data.
package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/clickhouse"
	"RouteForge/pkg/logger"
)

// outcomeSchema is the archive table, partitioned by day and ordered
// for per-tier time-range scans.
var outcomeSchema = []string{
	`CREATE TABLE IF NOT EXISTS execution_outcomes (
		strategy_id        String,
		risk_tier          LowCardinality(String),
		created_at         DateTime64(3),
		completed_at       DateTime64(3),
		predicted_slippage Float64,
		actual_slippage    Float64,
		predicted_gas_usd  Float64,
		actual_gas_usd     Float64,
		predicted_time_ms  Int64,
		actual_time_ms     Int64,
		confidence         Float64,
		success            UInt8,
		mev_detected       UInt8,
		mev_accuracy       Float64,
		learnings          Array(String)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(completed_at)
	ORDER BY (risk_tier, completed_at)
	TTL toDateTime(completed_at) + INTERVAL 90 DAY`,
}

// OutcomeArchive batches completed outcomes into ClickHouse. Archiving
// is best-effort: a failed flush is logged and retried with the next
// batch, never surfaced to the recording path.
type OutcomeArchive struct {
	client    *clickhouse.Client
	log       *logger.Logger
	batchSize int

	mu      sync.Mutex
	pending []*models.ExecutionOutcome
}

// NewOutcomeArchive creates the archive and ensures the schema exists.
func NewOutcomeArchive(ctx context.Context, client *clickhouse.Client, batchSize int, log *logger.Logger) (*OutcomeArchive, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	if err := client.InitSchema(ctx, outcomeSchema); err != nil {
		return nil, fmt.Errorf("outcome archive schema: %w", err)
	}
	return &OutcomeArchive{client: client, log: log, batchSize: batchSize}, nil
}

// Add queues a completed outcome and flushes when the batch is full.
func (a *OutcomeArchive) Add(ctx context.Context, outcome *models.ExecutionOutcome) {
	if !outcome.Completed() {
		return
	}
	a.mu.Lock()
	a.pending = append(a.pending, outcome)
	full := len(a.pending) >= a.batchSize
	a.mu.Unlock()

	if full {
		if err := a.Flush(ctx); err != nil {
			a.log.Warn("outcome archive flush failed, batch retained", logger.Error(err))
		}
	}
}

// Flush writes all queued outcomes in one multi-row insert. The batch
// is kept on failure so the next flush retries it.
func (a *OutcomeArchive) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	const cols = 15
	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*cols)
	for _, o := range batch {
		placeholders = append(placeholders, "("+strings.TrimSuffix(strings.Repeat("?,", cols), ",")+")")
		args = append(args,
			o.StrategyID,
			string(o.Predicted.RiskTier),
			o.CreatedAt,
			o.CompletedAt,
			o.Predicted.Slippage,
			o.Actual.Slippage,
			o.Predicted.GasCostUSD,
			o.Actual.GasCostUSD,
			o.Predicted.ExecutionTime.Milliseconds(),
			o.Actual.ExecutionTime.Milliseconds(),
			o.Predicted.Confidence,
			boolToUInt8(o.Actual.Success),
			boolToUInt8(o.Actual.MEVDetected),
			o.Deltas.MEVAccuracy,
			o.Learnings,
		)
	}

	query := `INSERT INTO execution_outcomes (
		strategy_id, risk_tier, created_at, completed_at,
		predicted_slippage, actual_slippage,
		predicted_gas_usd, actual_gas_usd,
		predicted_time_ms, actual_time_ms,
		confidence, success, mev_detected, mev_accuracy, learnings
	) VALUES ` + strings.Join(placeholders, ",")

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		a.mu.Lock()
		a.pending = append(batch, a.pending...)
		a.mu.Unlock()
		return fmt.Errorf("archive insert %d outcomes: %w", len(batch), err)
	}

	a.log.Debug("outcomes archived", logger.Int("count", len(batch)))
	return nil
}

// TierSuccessRates aggregates archived success rates per tier over a
// lookback window.
func (a *OutcomeArchive) TierSuccessRates(ctx context.Context, lookback time.Duration) (map[models.RiskTier]float64, error) {
	rows, err := a.client.DB().QueryContext(ctx, `
		SELECT risk_tier, avg(success)
		FROM execution_outcomes
		WHERE completed_at >= now() - INTERVAL ? SECOND
		GROUP BY risk_tier`,
		int64(lookback.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("archive tier rates: %w", err)
	}
	defer rows.Close()

	out := make(map[models.RiskTier]float64)
	for rows.Next() {
		var tier string
		var rate float64
		if err := rows.Scan(&tier, &rate); err != nil {
			return nil, fmt.Errorf("archive tier rates scan: %w", err)
		}
		out[models.RiskTier(tier)] = rate
	}
	return out, rows.Err()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
