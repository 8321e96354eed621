package techniques

import (
	"github.com/rs/zerolog"

	"signal-engine/internal/models"
)

// Institutional flows only count above this feature strength.
const institutionalFeatureFloor = 0.7

// SmartMoneyAnalyzer derives institutional-flow scores from the
// structure snapshot's smart-money feature, with an order-flow fallback
// when the feature calculator did not supply one.
type SmartMoneyAnalyzer struct {
	enabled bool
	logger  zerolog.Logger
}

// NewSmartMoneyAnalyzer constructs the smart-money analyzer.
func NewSmartMoneyAnalyzer(logger zerolog.Logger) *SmartMoneyAnalyzer {
	return &SmartMoneyAnalyzer{enabled: true, logger: logger}
}

// Enabled reports availability.
func (s *SmartMoneyAnalyzer) Enabled() bool {
	return s.enabled
}

// Enrich writes smart-money confidence, institutional score and the
// directional score into the components. When no usable feature exists
// the fields stay nil and the technique counts as unavailable for this
// cycle.
func (s *SmartMoneyAnalyzer) Enrich(in Inputs, c *models.SignalComponents) {
	if !s.enabled {
		return
	}

	feature, ok := s.extractFeature(in)
	if !ok {
		s.logger.Debug().Msg("Smart money: no data available")
		return
	}

	confidence := clamp(feature, 0, 1)
	c.SmartMoneyConfidence = &confidence

	institutional := 0.0
	if feature > institutionalFeatureFloor {
		institutional = feature
	}
	c.SmartMoneyInstitutional = &institutional

	score := s.directionalScore(feature, in.OrderFlow)
	c.SmartMoneyScore = &score

	s.logger.Debug().
		Float64("confidence", confidence).
		Float64("institutional", institutional).
		Float64("score", score).
		Msg("Smart money flows scored")
}

// extractFeature resolves the smart-money strength feature. Preference
// order: the structure snapshot's dedicated feature, then volume
// confirmation scaled down as a proxy.
func (s *SmartMoneyAnalyzer) extractFeature(in Inputs) (float64, bool) {
	if in.Structure == nil {
		return 0, false
	}
	if in.Structure.SmartMoneyStrength != nil {
		return *in.Structure.SmartMoneyStrength, true
	}
	if in.Structure.VolumeConfirmation != nil {
		proxy := *in.Structure.VolumeConfirmation * 0.8
		if proxy > 0.9 {
			proxy = 0.9
		}
		return proxy, true
	}
	return 0, false
}

// directionalScore maps the [0,1] feature to [-1,1]. When order flow is
// available its large-trade bias decides the sign, so a strong feature
// with dominant sell blocks reads as institutional selling.
func (s *SmartMoneyAnalyzer) directionalScore(feature float64, flow *models.OrderFlowSnapshot) float64 {
	score := (feature - 0.5) * 2

	if flow != nil && flow.LargeTradeBias < 0 && score > 0 {
		score = -score
	}

	return clamp(score, -1, 1)
}
