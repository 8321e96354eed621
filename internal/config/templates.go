package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Signal Engine Configuration

[engine]
# Directional pattern thresholds: a long setup needs pattern strength
# above the long threshold, a short setup needs it below the short one.
pattern_long_threshold = 0.25
pattern_short_threshold = -0.25
# Minimum traditional confluence score to pass the quality gate
min_confluence = 0.60
# Multi-timeframe confluence thresholds (absolute score)
mtf_elite_threshold = 0.75
mtf_standard_threshold = 0.35
# Smart money thresholds
smart_money_confidence_threshold = 0.60
institutional_score_threshold = 0.70
# ML ensemble filter; when enabled, ml_approved = false vetoes execution
ml_enabled = true
ml_confidence_threshold = 0.70
ml_high_confidence_threshold = 0.85
# Risk gate
min_risk_reward = 1.5
max_stop_ticks = 20
# Position sizing (contracts)
base_position_size = 1.0
max_position_size = 3.0
# Maximum distance from a confluence zone for Stage B (points)
zone_proximity_points = 3.0

# Confidence component weights, renormalized to sum to 1.0.
# Valid keys: strategy, pattern, confluence, regime, mtf, smart_money,
# ml_ensemble, gamma.
[confidence_weights]
strategy = 0.15
pattern = 0.20
confluence = 0.15
regime = 0.10
mtf = 0.15
smart_money = 0.10
ml_ensemble = 0.10
gamma = 0.05

# Position size factors per options expiration cycle phase
[gamma]
expiry_week_factor = 0.7
peak_factor = 1.3
moderate_factor = 1.1
normal_factor = 1.0
post_expiry_factor = 1.05

[journal]
# Archive emitted signals to a SQLite journal
enabled = false
path = ""

[logging]
level = "info"
console = true
file = true
file_path = ""
max_size = 100
max_backups = 7
max_age = 30
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

// WriteTemplate writes the default config template to dir without
// requiring a failed load first. Used by the config init command.
func WriteTemplate(dir string) (string, error) {
	if dir == "" {
		dir = DefaultConfigDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
