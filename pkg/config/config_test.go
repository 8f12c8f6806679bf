package config

import "testing"

func TestApplyDefaultsTierPolicies(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	wantCaps := map[string]float64{"low": 10, "medium": 25, "high": 50, "critical": 100}
	for tier, capUSD := range wantCaps {
		if got := c.MEV.TierCostCaps[tier]; got != capUSD {
			t.Fatalf("%s cost cap %v, want %v", tier, got, capUSD)
		}
	}
	wantMin := map[string]float64{"low": 0.80, "medium": 0.90, "high": 0.95, "critical": 0.98}
	for tier, min := range wantMin {
		if got := c.MEV.TierMinEffect[tier]; got != min {
			t.Fatalf("%s min effectiveness %v, want %v", tier, got, min)
		}
	}
	if c.MEV.MaxThreatProb != 0.95 {
		t.Fatalf("max threat probability %v, want 0.95", c.MEV.MaxThreatProb)
	}
}

func TestApplyDefaultsCalibration(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.Calibration.MaxSamplesPerTier != 1000 {
		t.Fatalf("max samples %d, want 1000", c.Calibration.MaxSamplesPerTier)
	}
	if c.Calibration.MinSamplesPerTier != 50 {
		t.Fatalf("min samples %d, want 50", c.Calibration.MinSamplesPerTier)
	}
	if c.Calibration.Bins != 10 {
		t.Fatalf("bins %d, want 10", c.Calibration.Bins)
	}
}
