package strategy

import (
	"testing"
	"time"

	"RouteForge/internal/domain/models"
	"RouteForge/pkg/logger"
)

func TestTimingImmediateWhenConditionsFavorable(t *testing.T) {
	opt := NewTimingOptimizer(TimingConfig{}, logger.Nop())
	d := opt.Decide(
		&models.GasCurves{StandardGwei: 20, PredictedLowGwei: 20},
		models.MarketConditions{Volatility: 0.2, NetworkUtilization: 0.4},
	)
	if !d.Optimal || d.RecommendedDelay != 0 {
		t.Fatalf("calm conditions should execute immediately: %+v", d)
	}
}

func TestTimingWaitsForPredictedGasDip(t *testing.T) {
	opt := NewTimingOptimizer(TimingConfig{}, logger.Nop())
	d := opt.Decide(
		&models.GasCurves{StandardGwei: 100, PredictedLowGwei: 60, PredictedWait: 3 * time.Minute},
		models.MarketConditions{},
	)
	if d.GasDelay == 0 {
		t.Fatalf("40%% saving should trigger a gas delay")
	}
	if d.RecommendedDelay != 3*time.Minute {
		t.Fatalf("got %v, want the full predicted wait of 3m", d.RecommendedDelay)
	}
	if d.Optimal {
		t.Fatalf("a 3m wait is past the optimal threshold")
	}
}

func TestTimingIgnoresMarginalGasSaving(t *testing.T) {
	opt := NewTimingOptimizer(TimingConfig{}, logger.Nop())
	d := opt.Decide(
		&models.GasCurves{StandardGwei: 100, PredictedLowGwei: 95, PredictedWait: 3 * time.Minute},
		models.MarketConditions{},
	)
	if d.GasDelay != 0 {
		t.Fatalf("5%% saving is below threshold, got delay %v", d.GasDelay)
	}
}

func TestTimingDelayIsMaxOfComponents(t *testing.T) {
	opt := NewTimingOptimizer(TimingConfig{OptimalDelayMax: 2 * time.Minute}, logger.Nop())
	d := opt.Decide(nil, models.MarketConditions{
		VolatilityWindow:   true, // 45s market delay
		NetworkUtilization: 0.85, // 20s congestion delay
	})
	if d.RecommendedDelay != 45*time.Second {
		t.Fatalf("got %v, want the max component 45s", d.RecommendedDelay)
	}
}

func TestGasModeFollowsRiskTier(t *testing.T) {
	curves := &models.GasCurves{FastGwei: 125, StandardGwei: 100, SafeGwei: 85}

	if g := GasMode(models.TierCritical, curves); g.Mode != "fast" || g.MaxFeeGwei != 125 {
		t.Fatalf("critical tier: %+v", g)
	}
	if g := GasMode(models.TierMedium, curves); g.Mode != "standard" {
		t.Fatalf("medium tier: %+v", g)
	}
	if g := GasMode(models.TierLow, curves); g.Mode != "safe" || g.MaxFeeGwei != 85 {
		t.Fatalf("low tier: %+v", g)
	}
}

func TestWindowsStartAfterRecommendedDelay(t *testing.T) {
	opt := NewTimingOptimizer(TimingConfig{}, logger.Nop())
	now := time.Now()
	d := models.TimingDecision{RecommendedDelay: 30 * time.Second}

	windows := opt.Windows(now, d)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if !windows[0].Start.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("primary window starts at %v", windows[0].Start)
	}
	if windows[1].Score >= windows[0].Score {
		t.Fatalf("fallback window must score below the primary")
	}
}
