// Package config provides configuration management for the signal engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// WeightKeys enumerates the valid confidence component names.
var WeightKeys = []string{
	"strategy", "pattern", "confluence", "regime",
	"mtf", "smart_money", "ml_ensemble", "gamma",
}

// Config holds all engine configuration.
type Config struct {
	Engine  EngineConfig       `mapstructure:"engine"`
	Weights map[string]float64 `mapstructure:"confidence_weights"`
	Gamma   GammaConfig        `mapstructure:"gamma"`
	Journal JournalConfig      `mapstructure:"journal"`
	Logging LoggingConfig      `mapstructure:"logging"`
}

// EngineConfig holds thresholds and limits for signal generation.
type EngineConfig struct {
	PatternLongThreshold  float64 `mapstructure:"pattern_long_threshold"`
	PatternShortThreshold float64 `mapstructure:"pattern_short_threshold"`
	MinConfluence         float64 `mapstructure:"min_confluence"`
	MTFEliteThreshold     float64 `mapstructure:"mtf_elite_threshold"`
	MTFStandardThreshold  float64 `mapstructure:"mtf_standard_threshold"`
	SmartMoneyConfidence  float64 `mapstructure:"smart_money_confidence_threshold"`
	InstitutionalScore    float64 `mapstructure:"institutional_score_threshold"`
	MLEnabled             bool    `mapstructure:"ml_enabled"`
	MLConfidenceThreshold float64 `mapstructure:"ml_confidence_threshold"`
	MLHighConfidence      float64 `mapstructure:"ml_high_confidence_threshold"`
	MinRiskReward         float64 `mapstructure:"min_risk_reward"`
	BasePositionSize      float64 `mapstructure:"base_position_size"`
	MaxPositionSize       float64 `mapstructure:"max_position_size"`
	MaxStopTicks          float64 `mapstructure:"max_stop_ticks"`
	ZoneProximityPoints   float64 `mapstructure:"zone_proximity_points"`
}

// GammaConfig holds the per-phase size adjustment factors.
type GammaConfig struct {
	ExpiryWeekFactor float64 `mapstructure:"expiry_week_factor"`
	PeakFactor       float64 `mapstructure:"peak_factor"`
	ModerateFactor   float64 `mapstructure:"moderate_factor"`
	NormalFactor     float64 `mapstructure:"normal_factor"`
	PostExpiryFactor float64 `mapstructure:"post_expiry_factor"`
}

// JournalConfig holds signal journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Default returns the configuration with empirically calibrated defaults.
// The weight and bonus magnitudes are starting points, not fixed law; they
// are exposed here precisely so they can be recalibrated per deployment.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PatternLongThreshold:  0.25,
			PatternShortThreshold: -0.25,
			MinConfluence:         0.60,
			MTFEliteThreshold:     0.75,
			MTFStandardThreshold:  0.35,
			SmartMoneyConfidence:  0.60,
			InstitutionalScore:    0.70,
			MLEnabled:             true,
			MLConfidenceThreshold: 0.70,
			MLHighConfidence:      0.85,
			MinRiskReward:         1.5,
			BasePositionSize:      1.0,
			MaxPositionSize:       3.0,
			MaxStopTicks:          20,
			ZoneProximityPoints:   3.0,
		},
		Weights: map[string]float64{
			"strategy":    0.15,
			"pattern":     0.20,
			"confluence":  0.15,
			"regime":      0.10,
			"mtf":         0.15,
			"smart_money": 0.10,
			"ml_ensemble": 0.10,
			"gamma":       0.05,
		},
		Gamma: GammaConfig{
			ExpiryWeekFactor: 0.7,
			PeakFactor:       1.3,
			ModerateFactor:   1.1,
			NormalFactor:     1.0,
			PostExpiryFactor: 1.05,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultConfigDir(), "signals.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       true,
			FilePath:   filepath.Join(DefaultConfigDir(), "logs", "engine.log"),
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/signal-engine"
	}
	return filepath.Join(home, ".config", "signal-engine")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Empty paths in the file fall back to the defaults.
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(configDir, "signals.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "engine.log")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIGNAL_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SIGNAL_ENGINE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
		cfg.Journal.Enabled = true
	}
	if v := os.Getenv("SIGNAL_ENGINE_ML_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.MLEnabled = b
		}
	}
	if v := os.Getenv("SIGNAL_ENGINE_MAX_POSITION_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MaxPositionSize = f
		}
	}
}

// Validate validates the configuration. Any error here is fatal: the
// engine must not start with an inconsistent threshold set.
func (c *Config) Validate() error {
	e := &c.Engine

	if e.PatternLongThreshold <= 0 || e.PatternLongThreshold >= 1 {
		return apperrors.NewConfigError("pattern_long_threshold", e.PatternLongThreshold, "must be in (0, 1)")
	}
	if e.PatternShortThreshold >= 0 || e.PatternShortThreshold <= -1 {
		return apperrors.NewConfigError("pattern_short_threshold", e.PatternShortThreshold, "must be in (-1, 0)")
	}
	for name, v := range map[string]float64{
		"min_confluence":                   e.MinConfluence,
		"mtf_elite_threshold":              e.MTFEliteThreshold,
		"mtf_standard_threshold":           e.MTFStandardThreshold,
		"smart_money_confidence_threshold": e.SmartMoneyConfidence,
		"institutional_score_threshold":    e.InstitutionalScore,
		"ml_confidence_threshold":          e.MLConfidenceThreshold,
		"ml_high_confidence_threshold":     e.MLHighConfidence,
	} {
		if v < 0 || v > 1 {
			return apperrors.NewConfigError(name, v, "must be in [0, 1]")
		}
	}
	if e.MinRiskReward < 0 {
		return apperrors.NewConfigError("min_risk_reward", e.MinRiskReward, "must be non-negative")
	}
	if e.BasePositionSize <= 0 {
		return apperrors.NewConfigError("base_position_size", e.BasePositionSize, "must be positive")
	}
	if e.MaxPositionSize <= 0 {
		return apperrors.NewConfigError("max_position_size", e.MaxPositionSize, "must be positive")
	}
	if e.MaxPositionSize < e.BasePositionSize {
		return apperrors.NewConfigError("max_position_size", e.MaxPositionSize, "below base_position_size")
	}
	if e.MaxStopTicks <= 0 {
		return apperrors.NewConfigError("max_stop_ticks", e.MaxStopTicks, "must be positive")
	}
	if e.ZoneProximityPoints <= 0 {
		return apperrors.NewConfigError("zone_proximity_points", e.ZoneProximityPoints, "must be positive")
	}

	if err := ValidateWeights(c.Weights); err != nil {
		return err
	}

	for name, f := range map[string]float64{
		"expiry_week_factor": c.Gamma.ExpiryWeekFactor,
		"peak_factor":        c.Gamma.PeakFactor,
		"moderate_factor":    c.Gamma.ModerateFactor,
		"normal_factor":      c.Gamma.NormalFactor,
		"post_expiry_factor": c.Gamma.PostExpiryFactor,
	} {
		if f <= 0 {
			return apperrors.NewConfigError(name, f, "gamma factor must be positive")
		}
	}

	return nil
}

// ValidateWeights checks a confidence weight map: only known component
// names, no negative weights, positive total.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("confidence_weights must not be empty")
	}
	known := make(map[string]bool, len(WeightKeys))
	for _, k := range WeightKeys {
		known[k] = true
	}
	total := 0.0
	for k, w := range weights {
		if !known[k] {
			return fmt.Errorf("unknown confidence weight component %q", k)
		}
		if w < 0 {
			return fmt.Errorf("confidence weight %q must be non-negative, got %.3f", k, w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("confidence weights must sum to a positive value")
	}
	return nil
}

// NormalizedWeights returns the full weight map renormalized to sum to 1.0.
// Components absent from the configured map get weight 0.
func (c *Config) NormalizedWeights() map[string]float64 {
	total := 0.0
	for _, w := range c.Weights {
		total += w
	}
	out := make(map[string]float64, len(WeightKeys))
	for _, k := range WeightKeys {
		out[k] = c.Weights[k] / total
	}
	return out
}

// Thresholds returns the technique thresholds in the form the model
// predicates consume.
func (c *Config) Thresholds() models.Thresholds {
	return models.Thresholds{
		PatternLong:          c.Engine.PatternLongThreshold,
		PatternShort:         c.Engine.PatternShortThreshold,
		MTFElite:             c.Engine.MTFEliteThreshold,
		SmartMoneyConfidence: c.Engine.SmartMoneyConfidence,
		Institutional:        c.Engine.InstitutionalScore,
		MLHighConfidence:     c.Engine.MLHighConfidence,
	}
}

// GammaFactor returns the size adjustment factor for a gamma phase.
func (c *Config) GammaFactor(phase models.GammaPhase) float64 {
	switch phase {
	case models.GammaExpiryWeek:
		return c.Gamma.ExpiryWeekFactor
	case models.GammaPeak:
		return c.Gamma.PeakFactor
	case models.GammaModerate:
		return c.Gamma.ModerateFactor
	case models.GammaPostExpiry:
		return c.Gamma.PostExpiryFactor
	default:
		return c.Gamma.NormalFactor
	}
}
