package calibration

import (
	"context"
	"errors"
	"fmt"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/cache"
	"RouteForge/pkg/logger"
)

// Store persists calibration samples in Redis so learned state
// survives restarts. Samples have no TTL; the calibrator's own size
// bound caps growth.
type Store struct {
	redis *cache.RedisCache
	log   *logger.Logger
}

// NewStore creates a calibration store.
func NewStore(redis *cache.RedisCache, log *logger.Logger) *Store {
	return &Store{redis: redis, log: log}
}

func sampleKey(tier models.RiskTier) string {
	return "calibration:samples:" + string(tier)
}

// Load restores persisted samples into the calibrator. A missing key
// is not an error; the tier simply starts cold.
func (s *Store) Load(ctx context.Context, calibrator *ConfidenceCalibrator) error {
	restored := make(map[models.RiskTier][]Sample)
	for _, tier := range models.Tiers {
		var samples []Sample
		err := s.redis.GetJSON(ctx, sampleKey(tier), &samples)
		if errors.Is(err, cache.ErrMiss) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load calibration %s: %w", tier, err)
		}
		restored[tier] = samples
	}
	if len(restored) == 0 {
		s.log.Info("no persisted calibration state, starting cold")
		return nil
	}

	calibrator.Restore(restored)
	total := 0
	for _, samples := range restored {
		total += len(samples)
	}
	s.log.Info("calibration state restored", logger.Int("samples", total))
	return nil
}

// Save writes the calibrator's current samples for every tier.
func (s *Store) Save(ctx context.Context, calibrator *ConfidenceCalibrator) error {
	snapshot := calibrator.Snapshot()
	for _, tier := range models.Tiers {
		samples := snapshot[tier]
		if len(samples) == 0 {
			continue
		}
		if err := s.redis.SetJSON(ctx, sampleKey(tier), samples, 0); err != nil {
			return fmt.Errorf("save calibration %s: %w", tier, err)
		}
	}
	return nil
}
