package engine

import (
	"context"
	"time"

	"RouteForge/pkg/logger"
)

// Persistence and maintenance cadences for the background loops not
// covered by config.
const (
	calibrationSaveInterval = 5 * time.Minute
	archiveFlushInterval    = time.Minute
	outcomePruneInterval    = time.Hour
)

// startPeriodic launches the maintenance loops. Every loop exits when
// the engine's background context is cancelled; Cleanup waits for all
// of them.
func (e *Engine) startPeriodic(ctx context.Context) {
	e.spawn(ctx, "graph-sweep", e.cfg.Routing.SweepInterval, func(ctx context.Context) {
		dropped := e.Graph().SweepStale(e.cfg.Routing.StalenessWindow)
		if dropped > 0 {
			g := e.Graph()
			e.metrics.SetGraphSize(g.NodeCount(), g.EdgeCount())
			e.log.Info("stale edges swept", logger.Int("dropped", dropped))
		}
	})

	e.spawn(ctx, "feasibility-probe", e.cfg.Routing.ProbeInterval, func(ctx context.Context) {
		probed := e.builder.ProbeFeasibility(ctx, e.Graph(), e.quotes,
			e.cfg.Routing.ProbeBatchSize, probeLimitPerCycle)
		if probed > 0 {
			e.log.Debug("feasibility probe cycle", logger.Int("probed", probed))
		}
	})

	e.spawn(ctx, "outcome-prune", outcomePruneInterval, func(ctx context.Context) {
		if dropped := e.tracker.PruneExpired(); dropped > 0 {
			e.log.Debug("expired outcomes pruned", logger.Int("dropped", dropped))
		}
	})

	if e.calibStore != nil {
		e.spawn(ctx, "calibration-save", calibrationSaveInterval, func(ctx context.Context) {
			if err := e.calibStore.Save(ctx, e.calibrator); err != nil {
				e.log.Warn("periodic calibration save failed", logger.Error(err))
			}
		})
	}

	if e.archive != nil {
		e.spawn(ctx, "archive-flush", archiveFlushInterval, func(ctx context.Context) {
			if err := e.archive.Flush(ctx); err != nil {
				e.log.Warn("periodic archive flush failed", logger.Error(err))
			}
		})
	}
}

// spawn runs fn on a ticker until the context is cancelled.
func (e *Engine) spawn(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	e.bgWG.Add(1)
	go func() {
		defer e.bgWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		e.log.Debug("periodic task started",
			logger.String("task", name), logger.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}
