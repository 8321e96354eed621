package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "pattern long out of range",
			mutate: func(c *Config) { c.Engine.PatternLongThreshold = 1.5 },
			want:   "pattern_long_threshold",
		},
		{
			name:   "pattern short must be negative",
			mutate: func(c *Config) { c.Engine.PatternShortThreshold = 0.25 },
			want:   "pattern_short_threshold",
		},
		{
			name:   "confluence above one",
			mutate: func(c *Config) { c.Engine.MinConfluence = 1.2 },
			want:   "min_confluence",
		},
		{
			name:   "max below base size",
			mutate: func(c *Config) { c.Engine.MaxPositionSize = 0.5 },
			want:   "max_position_size",
		},
		{
			name:   "zero stop ticks",
			mutate: func(c *Config) { c.Engine.MaxStopTicks = 0 },
			want:   "max_stop_ticks",
		},
		{
			name:   "negative gamma factor",
			mutate: func(c *Config) { c.Gamma.PeakFactor = -1.3 },
			want:   "peak_factor",
		},
		{
			name:   "unknown weight key",
			mutate: func(c *Config) { c.Weights["moon_phase"] = 0.1 },
			want:   "unknown confidence weight",
		},
		{
			name:   "negative weight",
			mutate: func(c *Config) { c.Weights["pattern"] = -0.2 },
			want:   "must be non-negative",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestNormalizedWeightsSumToOne(t *testing.T) {
	cfg := Default()
	cfg.Weights = map[string]float64{
		"pattern":    2.0,
		"confluence": 1.0,
		"regime":     1.0,
	}

	weights := cfg.NormalizedWeights()
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("normalized sum = %v, want 1.0", total)
	}
	if weights["pattern"] != 0.5 {
		t.Errorf("pattern weight = %v, want 0.5", weights["pattern"])
	}
	// Absent components carry zero weight, never a share.
	if weights["gamma"] != 0 {
		t.Errorf("gamma weight = %v, want 0", weights["gamma"])
	}
	if len(weights) != len(WeightKeys) {
		t.Errorf("normalized map has %d keys, want %d", len(weights), len(WeightKeys))
	}
}

func TestLoadCreatesTemplateWhenMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	if err == nil {
		t.Fatal("first load without a config file should error after writing the template")
	}
	if !strings.Contains(err.Error(), "created template") {
		t.Errorf("error %q should mention the created template", err)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "config.toml")); statErr != nil {
		t.Fatalf("template not written: %v", statErr)
	}

	// Second load picks up the template, which must be valid.
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("loading the written template: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("template config invalid: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected template creation error")
	}

	t.Setenv("SIGNAL_ENGINE_LOG_LEVEL", "debug")
	t.Setenv("SIGNAL_ENGINE_ML_ENABLED", "false")
	t.Setenv("SIGNAL_ENGINE_MAX_POSITION_SIZE", "4.5")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Engine.MLEnabled {
		t.Error("ML should be disabled via env")
	}
	if cfg.Engine.MaxPositionSize != 4.5 {
		t.Errorf("max size = %v, want 4.5", cfg.Engine.MaxPositionSize)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteTemplate(dir)
	if err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("template path %q not in %q", path, dir)
	}

	if _, err := WriteTemplate(dir); err == nil {
		t.Fatal("second WriteTemplate should refuse to overwrite")
	}
}

func TestThresholdsProjection(t *testing.T) {
	cfg := Default()
	th := cfg.Thresholds()

	if th.PatternLong != cfg.Engine.PatternLongThreshold {
		t.Errorf("PatternLong = %v, want %v", th.PatternLong, cfg.Engine.PatternLongThreshold)
	}
	if th.PatternShort != cfg.Engine.PatternShortThreshold {
		t.Errorf("PatternShort = %v, want %v", th.PatternShort, cfg.Engine.PatternShortThreshold)
	}
	if th.MTFElite != cfg.Engine.MTFEliteThreshold {
		t.Errorf("MTFElite = %v, want %v", th.MTFElite, cfg.Engine.MTFEliteThreshold)
	}
	if th.MLHighConfidence != cfg.Engine.MLHighConfidence {
		t.Errorf("MLHighConfidence = %v, want %v", th.MLHighConfidence, cfg.Engine.MLHighConfidence)
	}
}
