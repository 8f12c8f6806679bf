package calibration

import (
	"testing"

	"RouteForge/internal/domain/models"
)

func TestCalibratePassesThroughBelowActivation(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{})
	for i := 0; i < defaultMinSamplesToActivate-1; i++ {
		c.Add(models.TierHigh, 0.9, false)
	}
	if got := c.Calibrate(models.TierHigh, 0.9); got != 0.9 {
		t.Fatalf("below activation Calibrate must pass through, got %v", got)
	}
}

func TestCalibrateCorrectsOverconfidence(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{})
	// 60 predictions around 0.9 confidence, but only ~30% succeeded
	for i := 0; i < 60; i++ {
		c.Add(models.TierHigh, 0.9, i%10 < 3)
	}

	got := c.Calibrate(models.TierHigh, 0.9)
	if got >= 0.9 {
		t.Fatalf("over-confident tier must be corrected down, got %v", got)
	}
	if got > 0.5 {
		t.Fatalf("observed rate is 0.30, calibrated %v is still too high", got)
	}
}

func TestCalibrateInterpolatesBetweenBins(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{})
	for i := 0; i < 40; i++ {
		c.Add(models.TierMedium, 0.45, i%2 == 0) // bin 4: 50%
	}
	for i := 0; i < 40; i++ {
		c.Add(models.TierMedium, 0.55, true) // bin 5: 100%
	}

	lo := c.Calibrate(models.TierMedium, 0.45)
	mid := c.Calibrate(models.TierMedium, 0.50)
	hi := c.Calibrate(models.TierMedium, 0.55)
	if !(lo < mid && mid < hi) {
		t.Fatalf("interpolation not monotonic: %v, %v, %v", lo, mid, hi)
	}
}

func TestCalibratorEvictsOldestSamples(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{})
	for i := 0; i < defaultMaxSamplesPerTier+200; i++ {
		c.Add(models.TierLow, 0.5, true)
	}
	if got := c.SampleCount(models.TierLow); got != defaultMaxSamplesPerTier {
		t.Fatalf("sample count %d, want cap %d", got, defaultMaxSamplesPerTier)
	}
}

func TestCalibratorHonorsConfiguredLimits(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{MaxSamplesPerTier: 20, MinSamplesToActivate: 10})

	for i := 0; i < 9; i++ {
		c.Add(models.TierHigh, 0.9, false)
	}
	if got := c.Calibrate(models.TierHigh, 0.9); got != 0.9 {
		t.Fatalf("below the configured activation count, got %v", got)
	}

	for i := 0; i < 50; i++ {
		c.Add(models.TierHigh, 0.9, false)
	}
	if got := c.SampleCount(models.TierHigh); got != 20 {
		t.Fatalf("sample count %d, want configured cap 20", got)
	}
	if got := c.Calibrate(models.TierHigh, 0.9); got >= 0.9 {
		t.Fatalf("activated calibration must correct the all-failure tier, got %v", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := NewConfidenceCalibrator(CalibratorConfig{})
	for i := 0; i < 100; i++ {
		c.Add(models.TierCritical, 0.8, i%4 == 0)
	}
	before := c.Calibrate(models.TierCritical, 0.8)

	snap := c.Snapshot()
	restored := NewConfidenceCalibrator(CalibratorConfig{})
	restored.Restore(snap)

	if got := restored.SampleCount(models.TierCritical); got != 100 {
		t.Fatalf("restored %d samples, want 100", got)
	}
	if got := restored.Calibrate(models.TierCritical, 0.8); got != before {
		t.Fatalf("restored calibration %v differs from original %v", got, before)
	}

	// the snapshot is a copy, later writes must not leak into it
	c.Add(models.TierCritical, 0.1, false)
	if len(snap[models.TierCritical]) != 100 {
		t.Fatalf("snapshot mutated by a later Add")
	}
}
